package metrics

import (
	"log/slog"
	"sync"

	"github.com/Elib27/galaxy-simulation/internal/sim"
)

// Sample is one telemetry row.
type Sample struct {
	Step            int     `csv:"step"`
	Time            float64 `csv:"time"`
	KineticEnergy   float64 `csv:"kinetic_energy"`
	Momentum        float64 `csv:"momentum"`
	AngularMomentum float64 `csv:"angular_momentum"`
	MeanSpeed       float64 `csv:"mean_speed"`
	SpeedStdDev     float64 `csv:"speed_stddev"`
	RadialExtent    float64 `csv:"radial_extent"`
	Dropped         int     `csv:"dropped"`
	Outside         int     `csv:"outside"`
	Nodes           int     `csv:"nodes"`
	MaxDepth        int     `csv:"max_depth"`
	Interactions    int64   `csv:"interactions"`
	StepMillis      float64 `csv:"step_ms"`
}

func (s Sample) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", s.Step),
		slog.Float64("time", s.Time),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("angular_momentum", s.AngularMomentum),
		slog.Int("dropped", s.Dropped),
		slog.Int("outside", s.Outside),
		slog.Float64("step_ms", s.StepMillis),
	)
}

// Collector observes frames, feeds every metric and keeps one sample every
// Every frames. It implements sim.Observer.
type Collector struct {
	mu      sync.Mutex
	metrics []Metric
	every   int
	seen    int
	samples []Sample

	last    Sample
	hasLast bool
}

func NewCollector(every int, metrics ...Metric) *Collector {
	if every < 1 {
		every = 1
	}
	if len(metrics) == 0 {
		metrics = Default()
	}
	return &Collector{metrics: metrics, every: every}
}

func (c *Collector) OnFrame(f sim.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range c.metrics {
		m.Observe(f)
	}
	c.seen++
	if (c.seen-1)%c.every != 0 {
		return
	}
	c.samples = append(c.samples, c.sample(f))
}

func (c *Collector) sample(f sim.Frame) Sample {
	v := c.values()
	return Sample{
		Step:            f.Step,
		Time:            f.Time,
		KineticEnergy:   v["kinetic_energy"],
		Momentum:        v["momentum"],
		AngularMomentum: v["angular_momentum"],
		MeanSpeed:       v["mean_speed"],
		SpeedStdDev:     v["speed_stddev"],
		RadialExtent:    v["radial_extent"],
		Dropped:         f.Stats.Tree.Dropped,
		Outside:         f.Stats.Tree.Outside,
		Nodes:           f.Stats.Tree.Nodes,
		MaxDepth:        f.Stats.Tree.MaxDepth,
		Interactions:    f.Stats.Interactions,
		StepMillis:      float64(f.Stats.Duration.Microseconds()) / 1000,
	}
}

func (c *Collector) values() map[string]float64 {
	out := make(map[string]float64, len(c.metrics))
	for _, m := range c.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Values returns the current value of every metric by name.
func (c *Collector) Values() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values()
}

// Samples returns a copy of the recorded samples.
func (c *Collector) Samples() []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sample(nil), c.samples...)
}

// Drain returns the samples recorded since the previous Drain and releases
// them. Values and Last are unaffected.
func (c *Collector) Drain() []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.samples
	if len(out) > 0 {
		c.last = out[len(out)-1]
		c.hasLast = true
	}
	c.samples = nil
	return out
}

// Last returns the most recent sample.
func (c *Collector) Last() (Sample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.samples) == 0 {
		return c.last, c.hasLast
	}
	return c.samples[len(c.samples)-1], true
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.metrics {
		m.Reset()
	}
	c.seen = 0
	c.samples = nil
	c.last = Sample{}
	c.hasLast = false
}

// Series extracts one column of samples, for plotting.
func Series(samples []Sample, name string) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		var v float64
		switch name {
		case "kinetic_energy":
			v = s.KineticEnergy
		case "momentum":
			v = s.Momentum
		case "angular_momentum":
			v = s.AngularMomentum
		case "mean_speed":
			v = s.MeanSpeed
		case "speed_stddev":
			v = s.SpeedStdDev
		case "radial_extent":
			v = s.RadialExtent
		case "dropped":
			v = float64(s.Dropped)
		case "outside":
			v = float64(s.Outside)
		case "nodes":
			v = float64(s.Nodes)
		case "step_ms":
			v = s.StepMillis
		default:
			return nil
		}
		out = append(out, v)
	}
	return out
}

// SeriesNames lists the columns Series understands.
func SeriesNames() []string {
	return []string{
		"kinetic_energy", "momentum", "angular_momentum", "mean_speed",
		"speed_stddev", "radial_extent", "dropped", "outside", "nodes", "step_ms",
	}
}
