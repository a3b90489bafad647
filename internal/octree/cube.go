package octree

import "github.com/go-gl/mathgl/mgl64"

// Cube is an axis-aligned cube given by its minimum corner and side length.
type Cube struct {
	Origin mgl64.Vec3
	Side   float64
}

// Centered returns the cube of the given side centred on the origin.
func Centered(side float64) Cube {
	h := side / 2
	return Cube{Origin: mgl64.Vec3{-h, -h, -h}, Side: side}
}

// Contains reports whether p lies in the half-open cube [origin, origin+side).
func (c Cube) Contains(p mgl64.Vec3) bool {
	return p[0] >= c.Origin[0] && p[0] < c.Origin[0]+c.Side &&
		p[1] >= c.Origin[1] && p[1] < c.Origin[1]+c.Side &&
		p[2] >= c.Origin[2] && p[2] < c.Origin[2]+c.Side
}

// Center returns the midpoint of the cube.
func (c Cube) Center() mgl64.Vec3 {
	h := c.Side / 2
	return c.Origin.Add(mgl64.Vec3{h, h, h})
}

// Octant returns the k-th child cube. Bit 0 of k selects +x, bit 1 +y, bit 2 +z.
func (c Cube) Octant(k int) Cube {
	s := c.Side / 2
	o := c.Origin
	if k&1 != 0 {
		o[0] += s
	}
	if k&2 != 0 {
		o[1] += s
	}
	if k&4 != 0 {
		o[2] += s
	}
	return Cube{Origin: o, Side: s}
}
