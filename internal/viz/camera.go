package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Elib27/galaxy-simulation/internal/octree"
)

// Camera is an orthographic orbit camera. With zero Pitch and Yaw it looks
// down the y axis, x to the right and z down the screen.
type Camera struct {
	Pitch, Yaw float64
	Zoom       float64
	// Span is the world distance visible across the shorter screen side at
	// zoom 1.
	Span float64
}

func NewCamera(span float64) *Camera {
	return &Camera{Zoom: 1, Span: span}
}

func (c *Camera) Tilt(a float64) { c.Pitch += a }
func (c *Camera) Spin(a float64) { c.Yaw += a }
func (c *Camera) ZoomIn()        { c.Zoom = math.Min(50, c.Zoom*1.25) }
func (c *Camera) ZoomOut()       { c.Zoom = math.Max(0.05, c.Zoom/1.25) }

// view maps world coordinates to camera coordinates: screen right, screen
// down, depth.
func (c *Camera) view() mgl64.Mat3 {
	topDown := mgl64.Mat3{
		1, 0, 0,
		0, 0, 1,
		0, 1, 0,
	}
	return topDown.Mul3(mgl64.Rotate3DX(c.Pitch)).Mul3(mgl64.Rotate3DY(c.Yaw))
}

// Project converts a world position to pixel coordinates on a sw x sh pixel
// canvas.
func (c *Camera) Project(p mgl64.Vec3, sw, sh int) (int, int, bool) {
	return c.project(c.view(), p, sw, sh)
}

func (c *Camera) project(view mgl64.Mat3, p mgl64.Vec3, sw, sh int) (int, int, bool) {
	q := view.Mul3x1(p)
	scale := float64(min(sw, sh)) / c.Span * c.Zoom
	x := int(math.Floor(q[0]*scale)) + sw/2
	y := int(math.Floor(q[1]*scale)) + sh/2
	return x, y, x >= 0 && x < sw && y >= 0 && y < sh
}

// RenderPoints plots every position onto the canvas and returns how many
// landed on screen.
func RenderPoints(cv *Canvas, cam *Camera, positions []mgl64.Vec3) int {
	sw, sh := cv.PixelSize()
	view := cam.view()
	visible := 0
	for _, p := range positions {
		x, y, ok := cam.project(view, p, sw, sh)
		if ok {
			cv.Set(x, y)
			visible++
		}
	}
	return visible
}

var cubeEdges = [12][2]int{
	{0, 1}, {1, 3}, {3, 2}, {2, 0},
	{4, 5}, {5, 7}, {7, 6}, {6, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// RenderCube draws the twelve edges of c.
func RenderCube(cv *Canvas, cam *Camera, c octree.Cube) {
	sw, sh := cv.PixelSize()
	view := cam.view()
	var pts [8][2]int
	for k := 0; k < 8; k++ {
		corner := c.Origin
		for axis := 0; axis < 3; axis++ {
			if k&(1<<axis) != 0 {
				corner[axis] += c.Side
			}
		}
		pts[k][0], pts[k][1], _ = cam.project(view, corner, sw, sh)
	}
	for _, e := range cubeEdges {
		a, b := pts[e[0]], pts[e[1]]
		cv.DrawLine(a[0], a[1], b[0], b[1])
	}
}
