package metrics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Elib27/galaxy-simulation/internal/sim"
)

// Momentum is |sum v| of the latest frame. It stays near zero for a
// generated galaxy.
type Momentum struct {
	name  string
	value float64
}

func NewMomentum() *Momentum {
	return &Momentum{name: "momentum"}
}

func (m *Momentum) Name() string { return m.name }

func (m *Momentum) Observe(f sim.Frame) {
	var p mgl64.Vec3
	for _, v := range f.Velocities {
		p = p.Add(v)
	}
	m.value = p.Len()
}

func (m *Momentum) Value() float64 { return m.value }
func (m *Momentum) Reset()         { m.value = 0 }

// AngularMomentum is the vertical (y) component of sum r x v.
type AngularMomentum struct {
	name  string
	value float64
}

func NewAngularMomentum() *AngularMomentum {
	return &AngularMomentum{name: "angular_momentum"}
}

func (a *AngularMomentum) Name() string { return a.name }

func (a *AngularMomentum) Observe(f sim.Frame) {
	total := 0.0
	for i, r := range f.Positions {
		total += r.Cross(f.Velocities[i])[1]
	}
	a.value = total
}

func (a *AngularMomentum) Value() float64 { return a.value }
func (a *AngularMomentum) Reset()         { a.value = 0 }
