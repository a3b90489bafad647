package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Elib27/galaxy-simulation/internal/sim"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Stars != 1000 {
		t.Errorf("expected 1000 stars, got %d", cfg.Stars)
	}
	if cfg.Theta != 2 || cfg.Softening != 30 {
		t.Errorf("unexpected solver defaults theta=%g softening=%g", cfg.Theta, cfg.Softening)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if cfg.Params() != sim.DefaultParams() {
		t.Errorf("default config params %+v differ from controller defaults %+v", cfg.Params(), sim.DefaultParams())
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "galaxy.yaml")
	data := "stars: 250\ntheta: 0.7\ngalaxy:\n  height: 80\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Stars != 250 || cfg.Theta != 0.7 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Galaxy.Height != 80 || cfg.Galaxy.Diameter != DefaultDiameter {
		t.Errorf("galaxy = %+v", cfg.Galaxy)
	}
	if cfg.Softening != DefaultSoftening {
		t.Errorf("softening default lost: %g", cfg.Softening)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("stars: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveRoundTripWithBodies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binary.yaml")
	cfg := GetPreset("binary")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Bodies) != 2 {
		t.Fatalf("expected 2 bodies, got %d", len(loaded.Bodies))
	}
	if loaded.Params().Stars != 2 {
		t.Errorf("star count should follow bodies, got %d", loaded.Params().Stars)
	}

	sys, err := loaded.System()
	if err != nil {
		t.Fatal(err)
	}
	if sys.Positions()[1] != (mgl64.Vec3{-50, 0, 0}) {
		t.Errorf("unexpected position %v", sys.Positions()[1])
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"stars", func(c *Config) { c.Stars = 0 }},
		{"time step", func(c *Config) { c.TimeStep = 20 }},
		{"run steps", func(c *Config) { c.Run.Steps = 0 }},
		{"run dt", func(c *Config) { c.Run.Dt = -1 }},
		{"sample interval", func(c *Config) { c.Run.SampleEvery = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, sim.ErrParameterBounds) {
				t.Errorf("expected ErrParameterBounds, got %v", err)
			}
		})
	}
}

func TestNewController(t *testing.T) {
	cfg := GetPreset("binary")
	c, err := cfg.NewController()
	if err != nil {
		t.Fatalf("controller failed: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 particles, got %d", c.Len())
	}

	cfg = DefaultConfig()
	cfg.Stars = 64
	cfg.Seed = 3
	c, err = cfg.NewController()
	if err != nil {
		t.Fatalf("controller failed: %v", err)
	}
	if c.Len() != 64 {
		t.Errorf("expected 64 particles, got %d", c.Len())
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("dense")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Stars != 5000 {
		t.Errorf("expected 5000 stars, got %d", cfg.Stars)
	}

	cfg.Stars = 1
	if Presets["dense"].Stars != 5000 {
		t.Error("GetPreset returned a shared config")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsAreValid(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d names, got %d", len(Presets), len(names))
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}
