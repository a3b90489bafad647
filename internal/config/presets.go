package config

import "sort"

func preset(mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	mutate(cfg)
	return cfg
}

// binarySpeed gives a circular orbit for two unit masses 100 apart under the
// default softening: v^2/r = 1/(d^2+eps).
const binarySpeed = 0.0706

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"dense": preset(func(c *Config) {
		c.Stars = 5000
		c.Galaxy.Diameter = 600
		c.Galaxy.Height = 30
	}),
	"fast": preset(func(c *Config) {
		c.InitialSpeed = 20
		c.TimeStep = 2
	}),
	"binary": preset(func(c *Config) {
		c.Theta = 0
		c.Run.Steps = 2000
		c.Bodies = []BodyConfig{
			{Position: [3]float64{50, 0, 0}, Velocity: [3]float64{0, 0, binarySpeed}},
			{Position: [3]float64{-50, 0, 0}, Velocity: [3]float64{0, 0, -binarySpeed}},
		}
	}),
	"exact": preset(func(c *Config) {
		c.Stars = 300
		c.Theta = 0
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
