// Package config provides configuration loading and access for the fluid backdrop.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all backdrop configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Sim       SimConfig       `yaml:"sim"`
	Fluid     FluidConfig     `yaml:"fluid"`
	Bloom     BloomConfig     `yaml:"bloom"`
	Emitters  EmitterConfig   `yaml:"emitters"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SimConfig holds the simulation grid resolutions. The physics grid is
// deliberately coarser than the dye grid; velocity and pressure run at
// SimResolution while the visible dye runs at DyeResolution.
type SimConfig struct {
	SimResolution int `yaml:"sim_resolution"`
	DyeResolution int `yaml:"dye_resolution"`
}

// FluidConfig holds the solver parameters. All of these may be changed at
// runtime through Simulation.SetParameter; the step pipeline reads them once
// per pass, so a mid-frame change takes effect immediately.
type FluidConfig struct {
	DensityDissipation  float64 `yaml:"density_dissipation"`  // per-frame dye decay factor (0,1]
	VelocityDissipation float64 `yaml:"velocity_dissipation"` // per-frame velocity decay factor (0,1]
	Pressure            float64 `yaml:"pressure"`             // carry-over factor for last frame's pressure [0,1]
	PressureIterations  int     `yaml:"pressure_iterations"`  // Jacobi relaxation iteration count
	Curl                float64 `yaml:"curl"`                 // vorticity confinement strength
	SplatRadius         float64 `yaml:"splat_radius"`         // splat falloff radius in normalized units
	SplatForce          float64 `yaml:"splat_force"`          // velocity impulse per normalized pointer delta
	Paused              bool    `yaml:"paused"`
	Colorful            bool    `yaml:"colorful"` // cycle splat hue over time
	MaxDT               float64 `yaml:"max_dt"`   // clamp for the per-tick time delta, seconds
}

// BloomConfig holds bloom post-processing parameters. Bloom operates on the
// composited dye texture only; it never touches the simulation fields.
type BloomConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Iterations int     `yaml:"iterations"`
	Resolution int     `yaml:"resolution"`
	Intensity  float64 `yaml:"intensity"`
	Threshold  float64 `yaml:"threshold"`
	SoftKnee   float64 `yaml:"soft_knee"`
}

// EmitterConfig holds ambient splat emitter parameters. Emitters keep the
// backdrop alive when there is no pointer input.
type EmitterConfig struct {
	Count         int     `yaml:"count"`           // number of drifting emitters
	Interval      float64 `yaml:"interval"`        // seconds between splats per emitter
	DriftSpeed    float64 `yaml:"drift_speed"`     // emitter travel speed in normalized units/sec
	ImpulseScale  float64 `yaml:"impulse_scale"`   // emitter splat strength relative to pointer splats
	HueCycleSpeed float64 `yaml:"hue_cycle_speed"` // hue rotations per minute when colorful
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`          // seconds per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // ticks averaged per perf report
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all parameters are inside their documented ranges.
// A config that fails validation is rejected whole; nothing is patched up.
func (c *Config) Validate() error {
	if c.Sim.SimResolution <= 0 {
		return fmt.Errorf("config: sim_resolution must be positive, got %d", c.Sim.SimResolution)
	}
	if c.Sim.DyeResolution <= 0 {
		return fmt.Errorf("config: dye_resolution must be positive, got %d", c.Sim.DyeResolution)
	}
	if c.Fluid.DensityDissipation <= 0 || c.Fluid.DensityDissipation > 1 {
		return fmt.Errorf("config: density_dissipation must be in (0,1], got %g", c.Fluid.DensityDissipation)
	}
	if c.Fluid.VelocityDissipation <= 0 || c.Fluid.VelocityDissipation > 1 {
		return fmt.Errorf("config: velocity_dissipation must be in (0,1], got %g", c.Fluid.VelocityDissipation)
	}
	if c.Fluid.Pressure < 0 || c.Fluid.Pressure > 1 {
		return fmt.Errorf("config: pressure must be in [0,1], got %g", c.Fluid.Pressure)
	}
	if c.Fluid.PressureIterations < 1 {
		return fmt.Errorf("config: pressure_iterations must be at least 1, got %d", c.Fluid.PressureIterations)
	}
	if c.Fluid.Curl < 0 {
		return fmt.Errorf("config: curl must be non-negative, got %g", c.Fluid.Curl)
	}
	if c.Fluid.SplatRadius <= 0 {
		return fmt.Errorf("config: splat_radius must be positive, got %g", c.Fluid.SplatRadius)
	}
	if c.Fluid.SplatForce < 0 {
		return fmt.Errorf("config: splat_force must be non-negative, got %g", c.Fluid.SplatForce)
	}
	if c.Fluid.MaxDT <= 0 {
		return fmt.Errorf("config: max_dt must be positive, got %g", c.Fluid.MaxDT)
	}
	if c.Bloom.Iterations < 1 {
		return fmt.Errorf("config: bloom iterations must be at least 1, got %d", c.Bloom.Iterations)
	}
	if c.Bloom.Resolution <= 0 {
		return fmt.Errorf("config: bloom resolution must be positive, got %d", c.Bloom.Resolution)
	}
	if c.Bloom.Threshold < 0 {
		return fmt.Errorf("config: bloom threshold must be non-negative, got %g", c.Bloom.Threshold)
	}
	if c.Emitters.Count < 0 {
		return fmt.Errorf("config: emitter count must be non-negative, got %d", c.Emitters.Count)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
