package config

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/Elib27/galaxy-simulation/internal/galaxy"
	"github.com/Elib27/galaxy-simulation/internal/sim"
)

const (
	DefaultStars        = 1000
	DefaultInitialSpeed = 5.0
	DefaultTimeStep     = 1.0
	DefaultDiameter     = 1000.0
	DefaultHeight       = 50.0
	DefaultBoundSize    = 5000.0
	DefaultMinCellSize  = 0.01
	DefaultTheta        = 2.0
	DefaultSoftening    = 30.0
	DefaultSteps        = 500
	DefaultDt           = 1.0
	DefaultSampleEvery  = 10
)

type Config struct {
	Stars        int          `yaml:"stars"`
	InitialSpeed float64      `yaml:"initial_speed"`
	TimeStep     float64      `yaml:"time_step"`
	Galaxy       GalaxyConfig `yaml:"galaxy"`
	BoundSize    float64      `yaml:"bound_size"`
	MinCellSize  float64      `yaml:"min_cell_size"`
	Theta        float64      `yaml:"theta"`
	Softening    float64      `yaml:"softening"`
	Seed         int64        `yaml:"seed"`
	Workers      int          `yaml:"workers"`
	Run          RunConfig    `yaml:"run"`

	// Bodies replaces the generated galaxy with an explicit particle set.
	Bodies []BodyConfig `yaml:"bodies,omitempty"`
}

type GalaxyConfig struct {
	Diameter float64 `yaml:"diameter"`
	Height   float64 `yaml:"height"`
}

// RunConfig drives headless runs.
type RunConfig struct {
	Steps       int     `yaml:"steps"`
	Dt          float64 `yaml:"dt"`
	SampleEvery int     `yaml:"sample_every"`
}

type BodyConfig struct {
	Position [3]float64 `yaml:"position,flow"`
	Velocity [3]float64 `yaml:"velocity,flow"`
}

func DefaultConfig() *Config {
	return &Config{
		Stars:        DefaultStars,
		InitialSpeed: DefaultInitialSpeed,
		TimeStep:     DefaultTimeStep,
		Galaxy: GalaxyConfig{
			Diameter: DefaultDiameter,
			Height:   DefaultHeight,
		},
		BoundSize:   DefaultBoundSize,
		MinCellSize: DefaultMinCellSize,
		Theta:       DefaultTheta,
		Softening:   DefaultSoftening,
		Run: RunConfig{
			Steps:       DefaultSteps,
			Dt:          DefaultDt,
			SampleEvery: DefaultSampleEvery,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Params converts the file layout into controller parameters. With explicit
// bodies the star count follows the body list.
func (c *Config) Params() sim.Params {
	stars := c.Stars
	if len(c.Bodies) > 0 {
		stars = len(c.Bodies)
	}
	return sim.Params{
		Stars:        stars,
		InitialSpeed: c.InitialSpeed,
		TimeStep:     c.TimeStep,
		Galaxy:       galaxy.Shape{Diameter: c.Galaxy.Diameter, Height: c.Galaxy.Height},
		BoundSize:    c.BoundSize,
		MinCellSize:  c.MinCellSize,
		Theta:        c.Theta,
		Softening:    c.Softening,
		Seed:         c.Seed,
		Workers:      c.Workers,
	}
}

// System returns the explicit particle set, or nil when the galaxy is generated.
func (c *Config) System() (*galaxy.System, error) {
	if len(c.Bodies) == 0 {
		return nil, nil
	}
	pos := make([]mgl64.Vec3, len(c.Bodies))
	vel := make([]mgl64.Vec3, len(c.Bodies))
	for i, b := range c.Bodies {
		pos[i] = mgl64.Vec3(b.Position)
		vel[i] = mgl64.Vec3(b.Velocity)
	}
	return galaxy.New(pos, vel)
}

func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if c.Run.Steps <= 0 {
		return fmt.Errorf("%w: run steps %d must be positive", sim.ErrParameterBounds, c.Run.Steps)
	}
	if !(c.Run.Dt > 0) {
		return fmt.Errorf("%w: run dt %g must be positive", sim.ErrParameterBounds, c.Run.Dt)
	}
	if c.Run.SampleEvery <= 0 {
		return fmt.Errorf("%w: sample interval %d must be positive", sim.ErrParameterBounds, c.Run.SampleEvery)
	}
	return nil
}

// NewController builds a controller for this configuration.
func (c *Config) NewController(opts ...sim.Option) (*sim.Controller, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	system, err := c.System()
	if err != nil {
		return nil, err
	}
	if system != nil {
		return sim.NewWithSystem(c.Params(), system, opts...)
	}
	return sim.New(c.Params(), opts...)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Bodies = append([]BodyConfig(nil), c.Bodies...)
	return &out
}
