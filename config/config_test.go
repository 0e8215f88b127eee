package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading embedded defaults: %v", err)
	}

	if cfg.Sim.SimResolution != 128 {
		t.Errorf("default sim_resolution = %d, want 128", cfg.Sim.SimResolution)
	}
	if cfg.Sim.DyeResolution != 512 {
		t.Errorf("default dye_resolution = %d, want 512", cfg.Sim.DyeResolution)
	}
	if cfg.Fluid.PressureIterations != 20 {
		t.Errorf("default pressure_iterations = %d, want 20", cfg.Fluid.PressureIterations)
	}
	if cfg.Fluid.Curl != 30 {
		t.Errorf("default curl = %g, want 30", cfg.Fluid.Curl)
	}
	if cfg.Fluid.Paused {
		t.Error("simulation should not start paused")
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	data := []byte("fluid:\n  curl: 15.0\n  pressure_iterations: 40\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing override: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading override: %v", err)
	}
	if cfg.Fluid.Curl != 15 {
		t.Errorf("override curl = %g, want 15", cfg.Fluid.Curl)
	}
	if cfg.Fluid.PressureIterations != 40 {
		t.Errorf("override pressure_iterations = %d, want 40", cfg.Fluid.PressureIterations)
	}
	// Untouched fields keep their defaults.
	if cfg.Sim.SimResolution != 128 {
		t.Errorf("untouched sim_resolution = %d, want 128", cfg.Sim.SimResolution)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"negative resolution", "sim:\n  sim_resolution: -1\n"},
		{"zero dissipation", "fluid:\n  density_dissipation: 0\n"},
		{"dissipation above one", "fluid:\n  velocity_dissipation: 1.2\n"},
		{"zero iterations", "fluid:\n  pressure_iterations: 0\n"},
		{"negative curl", "fluid:\n  curl: -5\n"},
		{"zero max_dt", "fluid:\n  max_dt: 0\n"},
	}

	for _, tc := range cases {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte(tc.yaml), 0644); err != nil {
			t.Fatalf("writing config: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Fluid.Curl = 42

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("writing yaml: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reloading yaml: %v", err)
	}
	if loaded.Fluid.Curl != 42 {
		t.Errorf("round-tripped curl = %g, want 42", loaded.Fluid.Curl)
	}
}
