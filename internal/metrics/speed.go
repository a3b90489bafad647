package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/Elib27/galaxy-simulation/internal/sim"
)

func speeds(f sim.Frame, buf []float64) []float64 {
	buf = buf[:0]
	for _, v := range f.Velocities {
		buf = append(buf, v.Len())
	}
	return buf
}

type MeanSpeed struct {
	name  string
	value float64
	buf   []float64
}

func NewMeanSpeed() *MeanSpeed {
	return &MeanSpeed{name: "mean_speed"}
}

func (m *MeanSpeed) Name() string { return m.name }

func (m *MeanSpeed) Observe(f sim.Frame) {
	m.buf = speeds(f, m.buf)
	if len(m.buf) == 0 {
		m.value = 0
		return
	}
	m.value = stat.Mean(m.buf, nil)
}

func (m *MeanSpeed) Value() float64 { return m.value }
func (m *MeanSpeed) Reset()         { m.value = 0 }

// SpeedStdDev is the sample standard deviation of particle speeds.
type SpeedStdDev struct {
	name  string
	value float64
	buf   []float64
}

func NewSpeedStdDev() *SpeedStdDev {
	return &SpeedStdDev{name: "speed_stddev"}
}

func (s *SpeedStdDev) Name() string { return s.name }

func (s *SpeedStdDev) Observe(f sim.Frame) {
	s.buf = speeds(f, s.buf)
	if len(s.buf) < 2 {
		s.value = 0
		return
	}
	_, s.value = stat.MeanStdDev(s.buf, nil)
}

func (s *SpeedStdDev) Value() float64 { return s.value }
func (s *SpeedStdDev) Reset()         { s.value = 0 }
