package metrics

import "github.com/Elib27/galaxy-simulation/internal/sim"

// KineticEnergy is the total kinetic energy of the latest frame, unit masses.
type KineticEnergy struct {
	name    string
	value   float64
	initial float64
	samples int
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(f sim.Frame) {
	total := 0.0
	for _, v := range f.Velocities {
		total += 0.5 * v.LenSqr()
	}
	if e.samples == 0 {
		e.initial = total
	}
	e.value = total
	e.samples++
}

func (e *KineticEnergy) Value() float64 { return e.value }

// Growth is the ratio of the latest value to the first observed one.
func (e *KineticEnergy) Growth() float64 {
	if e.initial == 0 {
		return 0
	}
	return e.value / e.initial
}

func (e *KineticEnergy) Reset() {
	e.value = 0
	e.initial = 0
	e.samples = 0
}
