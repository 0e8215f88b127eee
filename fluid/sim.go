// Package fluid implements the real-time fluid field simulation that drives
// the backdrop. The solver is a grid-based stable-fluids scheme: semi-
// Lagrangian advection, vorticity confinement, and a Jacobi pressure
// projection, executed as a fixed sequence of passes over double-buffered
// field textures. All GPU work goes through the Backend interface; the core
// never talks to a graphics API itself.
package fluid

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/ripple/config"
)

// ErrDisposed is reported by any operation invoked after Dispose.
var ErrDisposed = errors.New("fluid: simulation disposed")

// ErrInvalidParameter is wrapped by SetParameter for unknown names or
// out-of-range values.
var ErrInvalidParameter = errors.New("fluid: invalid parameter")

// Component counts per field.
const (
	velocityComps = 2
	dyeComps      = 3
	scalarComps   = 1
)

// Simulation owns the full set of field buffers and advances them once per
// animation tick. It is single-threaded by contract: Step, Splat, Resize and
// Dispose must all be called from the same goroutine that drives the frame
// loop.
type Simulation struct {
	backend Backend
	cfg     *config.Config
	format  Format

	velocity   DoubleBuffer
	dye        DoubleBuffer
	pressure   DoubleBuffer
	divergence Buffer
	curl       Buffer

	simW, simH int
	dyeW, dyeH int
	outW, outH int

	// phaseHook, when set, is called with the pass name before each timed
	// phase; an empty name closes the current phase without opening another.
	// The host wires this to its perf collector.
	phaseHook func(name string)

	disposed bool
}

// New creates a simulation sized for the given output dimensions. All field
// buffers start zeroed; the fluid is at rest until the first splat.
func New(backend Backend, cfg *config.Config, outW, outH int) (*Simulation, error) {
	if outW <= 0 || outH <= 0 {
		return nil, fmt.Errorf("fluid: output dimensions must be positive, got %dx%d", outW, outH)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	format := FormatFloat
	if !backend.FloatTexturesSupported() {
		format = FormatHalf
	}

	s := &Simulation{
		backend: backend,
		cfg:     cfg,
		format:  format,
	}
	if err := s.allocFields(outW, outH); err != nil {
		return nil, err
	}
	return s, nil
}

// SetPhaseHook installs a callback invoked with the pass name at the start
// of each pipeline phase and around each splat. Pass nil to remove it.
func (s *Simulation) SetPhaseHook(fn func(name string)) {
	s.phaseHook = fn
}

func (s *Simulation) phase(name string) {
	if s.phaseHook != nil {
		s.phaseHook(name)
	}
}

// gridSize derives an aspect-corrected grid from a base resolution: the short
// side of the output maps to the base resolution and the long side scales up.
func gridSize(resolution, outW, outH int) (int, int) {
	aspect := float64(outW) / float64(outH)
	if aspect < 1 {
		aspect = 1 / aspect
	}
	short := resolution
	long := int(math.Round(float64(resolution) * aspect))
	if outW > outH {
		return long, short
	}
	return short, long
}

// fieldSet is a freshly allocated generation of buffers. It is only installed
// into the simulation once every allocation has succeeded, so a failed resize
// can never leave the field set half-initialized.
type fieldSet struct {
	velocity   DoubleBuffer
	dye        DoubleBuffer
	pressure   DoubleBuffer
	divergence Buffer
	curl       Buffer
}

func (fs *fieldSet) release(b Backend) {
	for _, buf := range []Buffer{
		fs.velocity.Read, fs.velocity.Write,
		fs.dye.Read, fs.dye.Write,
		fs.pressure.Read, fs.pressure.Write,
		fs.divergence, fs.curl,
	} {
		if buf != nil {
			b.DeleteBuffer(buf)
		}
	}
}

// allocFields builds a complete new field set for the given output size,
// then destroys the previous one. Resizing is destructive: prior simulation
// state is lost and the field restarts from rest. That matches the visual
// design; the dye is not resampled into the new grid.
func (s *Simulation) allocFields(outW, outH int) error {
	simW, simH := gridSize(s.cfg.Sim.SimResolution, outW, outH)
	dyeW, dyeH := gridSize(s.cfg.Sim.DyeResolution, outW, outH)

	var fs fieldSet
	var err error
	alloc := func(w, h, comps int, filter Filter) Buffer {
		if err != nil {
			return nil
		}
		var buf Buffer
		buf, err = s.backend.CreateBuffer(w, h, comps, s.format, filter)
		return buf
	}

	fs.velocity.Read = alloc(simW, simH, velocityComps, FilterLinear)
	fs.velocity.Write = alloc(simW, simH, velocityComps, FilterLinear)
	fs.dye.Read = alloc(dyeW, dyeH, dyeComps, FilterLinear)
	fs.dye.Write = alloc(dyeW, dyeH, dyeComps, FilterLinear)
	fs.pressure.Read = alloc(simW, simH, scalarComps, FilterNearest)
	fs.pressure.Write = alloc(simW, simH, scalarComps, FilterNearest)
	fs.divergence = alloc(simW, simH, scalarComps, FilterNearest)
	fs.curl = alloc(simW, simH, scalarComps, FilterNearest)

	if err != nil {
		fs.release(s.backend)
		return fmt.Errorf("fluid: allocating %dx%d field set: %w", simW, simH, err)
	}

	old := fieldSet{
		velocity: s.velocity, dye: s.dye, pressure: s.pressure,
		divergence: s.divergence, curl: s.curl,
	}
	old.release(s.backend)

	s.velocity = fs.velocity
	s.dye = fs.dye
	s.pressure = fs.pressure
	s.divergence = fs.divergence
	s.curl = fs.curl
	s.simW, s.simH = simW, simH
	s.dyeW, s.dyeH = dyeW, dyeH
	s.outW, s.outH = outW, outH
	return nil
}

// Resize reallocates all size-dependent buffers for new output dimensions.
// It is idempotent: a resize to dimensions that produce the current grid
// sizes is a no-op. On allocation failure the previous field set is kept
// intact and the error is returned.
func (s *Simulation) Resize(outW, outH int) error {
	if s.disposed {
		return ErrDisposed
	}
	if outW <= 0 || outH <= 0 {
		return fmt.Errorf("fluid: resize dimensions must be positive, got %dx%d", outW, outH)
	}

	simW, simH := gridSize(s.cfg.Sim.SimResolution, outW, outH)
	dyeW, dyeH := gridSize(s.cfg.Sim.DyeResolution, outW, outH)
	if simW == s.simW && simH == s.simH && dyeW == s.dyeW && dyeH == s.dyeH {
		s.outW, s.outH = outW, outH
		return nil
	}
	return s.allocFields(outW, outH)
}

// Dispose releases every owned buffer. Any later operation on the simulation
// reports ErrDisposed; a second Dispose is one of them. Buffers are never
// double-freed.
func (s *Simulation) Dispose() error {
	if s.disposed {
		return ErrDisposed
	}
	s.disposed = true
	fs := fieldSet{
		velocity: s.velocity, dye: s.dye, pressure: s.pressure,
		divergence: s.divergence, curl: s.curl,
	}
	fs.release(s.backend)
	s.velocity = DoubleBuffer{}
	s.dye = DoubleBuffer{}
	s.pressure = DoubleBuffer{}
	s.divergence = nil
	s.curl = nil
	return nil
}

// Disposed reports whether Dispose has been called.
func (s *Simulation) Disposed() bool { return s.disposed }

// DyeTexture returns the read-side dye buffer for display compositing.
// Returns nil after Dispose.
func (s *Simulation) DyeTexture() Buffer { return s.dye.Read }

// VelocityTexture returns the read-side velocity buffer. Returns nil after
// Dispose.
func (s *Simulation) VelocityTexture() Buffer { return s.velocity.Read }

// GridSize returns the current physics grid dimensions.
func (s *Simulation) GridSize() (int, int) { return s.simW, s.simH }

// DyeSize returns the current dye grid dimensions.
func (s *Simulation) DyeSize() (int, int) { return s.dyeW, s.dyeH }

// Format returns the numeric format chosen for the field buffers.
func (s *Simulation) Format() Format { return s.format }

// SetParameter updates one named configuration value. Unknown names and
// out-of-range values are rejected with ErrInvalidParameter and no mutation.
// Boolean parameters treat zero as false and anything else as true. Changing
// a resolution knob reallocates the field buffers immediately.
func (s *Simulation) SetParameter(name string, value float64) error {
	if s.disposed {
		return ErrDisposed
	}
	f := &s.cfg.Fluid
	b := &s.cfg.Bloom

	switch name {
	case "sim_resolution", "dye_resolution":
		res := int(value)
		if res <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidParameter, name, value)
		}
		prev := s.cfg.Sim
		if name == "sim_resolution" {
			s.cfg.Sim.SimResolution = res
		} else {
			s.cfg.Sim.DyeResolution = res
		}
		if err := s.allocFields(s.outW, s.outH); err != nil {
			// Failed allocation keeps the old buffers; the config has to
			// match them or a later resize would re-apply the bad value.
			s.cfg.Sim = prev
			return err
		}
		return nil
	case "density_dissipation":
		if value <= 0 || value > 1 {
			return fmt.Errorf("%w: density_dissipation must be in (0,1], got %g", ErrInvalidParameter, value)
		}
		f.DensityDissipation = value
	case "velocity_dissipation":
		if value <= 0 || value > 1 {
			return fmt.Errorf("%w: velocity_dissipation must be in (0,1], got %g", ErrInvalidParameter, value)
		}
		f.VelocityDissipation = value
	case "pressure":
		if value < 0 || value > 1 {
			return fmt.Errorf("%w: pressure must be in [0,1], got %g", ErrInvalidParameter, value)
		}
		f.Pressure = value
	case "pressure_iterations":
		if value < 1 {
			return fmt.Errorf("%w: pressure_iterations must be at least 1, got %g", ErrInvalidParameter, value)
		}
		f.PressureIterations = int(value)
	case "curl":
		if value < 0 {
			return fmt.Errorf("%w: curl must be non-negative, got %g", ErrInvalidParameter, value)
		}
		f.Curl = value
	case "splat_radius":
		if value <= 0 {
			return fmt.Errorf("%w: splat_radius must be positive, got %g", ErrInvalidParameter, value)
		}
		f.SplatRadius = value
	case "splat_force":
		if value < 0 {
			return fmt.Errorf("%w: splat_force must be non-negative, got %g", ErrInvalidParameter, value)
		}
		f.SplatForce = value
	case "max_dt":
		if value <= 0 {
			return fmt.Errorf("%w: max_dt must be positive, got %g", ErrInvalidParameter, value)
		}
		f.MaxDT = value
	case "paused":
		f.Paused = value != 0
	case "colorful":
		f.Colorful = value != 0
	case "bloom":
		b.Enabled = value != 0
	case "bloom_intensity":
		if value < 0 {
			return fmt.Errorf("%w: bloom_intensity must be non-negative, got %g", ErrInvalidParameter, value)
		}
		b.Intensity = value
	case "bloom_threshold":
		if value < 0 {
			return fmt.Errorf("%w: bloom_threshold must be non-negative, got %g", ErrInvalidParameter, value)
		}
		b.Threshold = value
	case "bloom_soft_knee":
		if value < 0 || value > 1 {
			return fmt.Errorf("%w: bloom_soft_knee must be in [0,1], got %g", ErrInvalidParameter, value)
		}
		b.SoftKnee = value
	default:
		return fmt.Errorf("%w: unknown parameter %q", ErrInvalidParameter, name)
	}
	return nil
}
