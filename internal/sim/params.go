package sim

import (
	"fmt"

	"github.com/Elib27/galaxy-simulation/internal/galaxy"
)

// Limits on the adjustable parameters. The terminal panel keeps stars within
// 100..10000; the controller accepts a wider range.
const (
	MinStars        = 1
	MaxStars        = 100000
	MinInitialSpeed = 0.0
	MaxInitialSpeed = 50.0
	MinTimeStep     = 0.1
	MaxTimeStep     = 10.0
)

// Params is the full set of inputs for one simulation.
type Params struct {
	Stars        int
	InitialSpeed float64
	TimeStep     float64

	Galaxy      galaxy.Shape
	BoundSize   float64
	MinCellSize float64
	Theta       float64
	Softening   float64

	// Seed drives galaxy generation. Zero picks a time-based seed on reset.
	Seed    int64
	Workers int
}

func DefaultParams() Params {
	return Params{
		Stars:        1000,
		InitialSpeed: 5,
		TimeStep:     1,
		Galaxy:       galaxy.Shape{Diameter: 1000, Height: 50},
		BoundSize:    5000,
		MinCellSize:  0.01,
		Theta:        2,
		Softening:    30,
	}
}

func (p Params) Validate() error {
	if p.Stars < MinStars || p.Stars > MaxStars {
		return fmt.Errorf("%w: stars %d not in [%d, %d]", ErrParameterBounds, p.Stars, MinStars, MaxStars)
	}
	if !inRange(p.InitialSpeed, MinInitialSpeed, MaxInitialSpeed) {
		return fmt.Errorf("%w: initial speed %g not in [%g, %g]", ErrParameterBounds, p.InitialSpeed, MinInitialSpeed, MaxInitialSpeed)
	}
	if err := validateTimeStep(p.TimeStep); err != nil {
		return err
	}
	if !(p.Galaxy.Diameter > 0) || !(p.Galaxy.Height > 0) {
		return fmt.Errorf("%w: galaxy shape %gx%g must be positive", ErrParameterBounds, p.Galaxy.Diameter, p.Galaxy.Height)
	}
	if !(p.BoundSize > 0) {
		return fmt.Errorf("%w: bound size %g must be positive", ErrParameterBounds, p.BoundSize)
	}
	if !(p.MinCellSize > 0) {
		return fmt.Errorf("%w: minimum cell size %g must be positive", ErrParameterBounds, p.MinCellSize)
	}
	if !(p.Theta >= 0) {
		return fmt.Errorf("%w: theta %g must be non-negative", ErrParameterBounds, p.Theta)
	}
	if !(p.Softening >= 0) {
		return fmt.Errorf("%w: softening %g must be non-negative", ErrParameterBounds, p.Softening)
	}
	if p.Workers < 0 {
		return fmt.Errorf("%w: workers %d must be non-negative", ErrParameterBounds, p.Workers)
	}
	return nil
}

func validateTimeStep(m float64) error {
	if !inRange(m, MinTimeStep, MaxTimeStep) {
		return fmt.Errorf("%w: time step %g not in [%g, %g]", ErrParameterBounds, m, MinTimeStep, MaxTimeStep)
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// needsReset reports whether moving from p to q changes the generated
// particle set.
func (p Params) needsReset(q Params) bool {
	return p.Stars != q.Stars ||
		p.InitialSpeed != q.InitialSpeed ||
		p.Galaxy != q.Galaxy ||
		p.Seed != q.Seed
}
