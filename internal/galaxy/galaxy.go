// Package galaxy owns the particle state of a simulation and generates the
// initial rotating disk.
package galaxy

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Shape describes the flattened ellipsoid the initial distribution fills.
// The vertical axis is y.
type Shape struct {
	Diameter float64
	Height   float64
}

// System holds positions and velocities of unit-mass particles.
type System struct {
	pos []mgl64.Vec3
	vel []mgl64.Vec3
}

// New wraps explicit positions and velocities. Both slices are copied.
func New(pos, vel []mgl64.Vec3) (*System, error) {
	if len(pos) != len(vel) {
		return nil, fmt.Errorf("galaxy: %d positions but %d velocities", len(pos), len(vel))
	}
	s := &System{
		pos: make([]mgl64.Vec3, len(pos)),
		vel: make([]mgl64.Vec3, len(vel)),
	}
	copy(s.pos, pos)
	copy(s.vel, vel)
	return s, nil
}

// Generate samples n particles uniformly in volume inside a sphere of the
// shape's diameter, squashes the vertical axis by height/diameter and gives
// each particle a tangential velocity in the horizontal plane proportional to
// its cylindrical radius.
func Generate(rng *rand.Rand, shape Shape, n int, speed float64) *System {
	s := &System{
		pos: make([]mgl64.Vec3, n),
		vel: make([]mgl64.Vec3, n),
	}
	radius := shape.Diameter / 2
	flatten := shape.Height / shape.Diameter

	for i := 0; i < n; i++ {
		r := math.Cbrt(rng.Float64()) * radius
		theta := rng.Float64() * 2 * math.Pi
		phi := math.Acos(rng.Float64()*2 - 1)

		s.pos[i] = mgl64.Vec3{
			r * math.Sin(phi) * math.Cos(theta),
			r * math.Sin(phi) * math.Sin(theta) * flatten,
			r * math.Cos(phi),
		}
	}

	for i, p := range s.pos {
		s.vel[i] = orbitalVelocity(p, speed, shape.Diameter)
	}
	return s
}

// orbitalVelocity rotates the horizontal radial unit vector a quarter turn
// about y and scales it by cylR*speed/(2*diameter).
func orbitalVelocity(p mgl64.Vec3, speed, diameter float64) mgl64.Vec3 {
	cyl := math.Hypot(p[0], p[2])
	if cyl == 0 {
		return mgl64.Vec3{}
	}
	mag := cyl * speed / (diameter * 2)
	return mgl64.Vec3{-p[2] / cyl * mag, 0, p[0] / cyl * mag}
}

// Len returns the number of particles.
func (s *System) Len() int { return len(s.pos) }

// Positions returns the live position slice. Callers outside the simulation
// controller must treat it as read-only.
func (s *System) Positions() []mgl64.Vec3 { return s.pos }

// Velocities returns the live velocity slice, read-only for the same reason.
func (s *System) Velocities() []mgl64.Vec3 { return s.vel }

// Clone returns a deep copy.
func (s *System) Clone() *System {
	c, _ := New(s.pos, s.vel)
	return c
}

// Buffer flattens positions into x,y,z float32 triples for renderers.
func Buffer(pos []mgl64.Vec3, dst []float32) []float32 {
	if cap(dst) < len(pos)*3 {
		dst = make([]float32, len(pos)*3)
	}
	dst = dst[:len(pos)*3]
	for i, p := range pos {
		dst[3*i] = float32(p[0])
		dst[3*i+1] = float32(p[1])
		dst[3*i+2] = float32(p[2])
	}
	return dst
}
