// Package integrators advances particle state given per-particle
// accelerations.
package integrators

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrDimensionMismatch = errors.New("integrators: dimension mismatch")

// SymplecticEuler is the semi-implicit Euler update: velocity first, then
// position from the updated velocity.
type SymplecticEuler struct{}

func NewSymplecticEuler() *SymplecticEuler {
	return &SymplecticEuler{}
}

// Step applies v += a*dt then x += v*dt to every particle in place. acc must
// have been computed from pos before the call.
func (e *SymplecticEuler) Step(pos, vel, acc []mgl64.Vec3, dt float64) error {
	if len(vel) != len(pos) || len(acc) != len(pos) {
		return fmt.Errorf("%w: %d positions, %d velocities, %d accelerations",
			ErrDimensionMismatch, len(pos), len(vel), len(acc))
	}
	for i := range pos {
		vel[i] = vel[i].Add(acc[i].Mul(dt))
		pos[i] = pos[i].Add(vel[i].Mul(dt))
	}
	return nil
}
