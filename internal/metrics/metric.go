// Package metrics computes diagnostics over published simulation frames.
package metrics

import "github.com/Elib27/galaxy-simulation/internal/sim"

// Metric accumulates one scalar diagnostic over a sequence of frames.
type Metric interface {
	Name() string
	Observe(f sim.Frame)
	Value() float64
	Reset()
}

// Default returns the metric set recorded for every run.
func Default() []Metric {
	return []Metric{
		NewKineticEnergy(),
		NewMomentum(),
		NewAngularMomentum(),
		NewMeanSpeed(),
		NewSpeedStdDev(),
		NewDropped(),
		NewRadialExtent(),
	}
}
