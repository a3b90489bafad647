package metrics

import (
	"math"

	"github.com/Elib27/galaxy-simulation/internal/sim"
)

// Dropped is the largest number of particles missing from the tree in any
// observed frame, counting both minimum-cell refusals and particles outside
// the world bounds.
type Dropped struct {
	name string
	max  int
}

func NewDropped() *Dropped {
	return &Dropped{name: "dropped"}
}

func (d *Dropped) Name() string { return d.name }

func (d *Dropped) Observe(f sim.Frame) {
	d.max = max(d.max, f.Stats.Tree.Dropped+f.Stats.Tree.Outside)
}

func (d *Dropped) Value() float64 { return float64(d.max) }
func (d *Dropped) Reset()         { d.max = 0 }

// RadialExtent is the largest cylindrical radius in the latest frame.
type RadialExtent struct {
	name  string
	value float64
}

func NewRadialExtent() *RadialExtent {
	return &RadialExtent{name: "radial_extent"}
}

func (r *RadialExtent) Name() string { return r.name }

func (r *RadialExtent) Observe(f sim.Frame) {
	r.value = 0
	for _, p := range f.Positions {
		r.value = math.Max(r.value, math.Hypot(p[0], p[2]))
	}
}

func (r *RadialExtent) Value() float64 { return r.value }
func (r *RadialExtent) Reset()         { r.value = 0 }
