package fluid_test

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/ripple/config"
	"github.com/pthm-cable/ripple/fluid"
	"github.com/pthm-cable/ripple/fluid/cpu"
)

// newTestSim builds a simulation on a fresh CPU backend with embedded default
// config. Tests mutate the returned config freely; it is not shared.
func newTestSim(t *testing.T, outW, outH int) (*fluid.Simulation, *cpu.Backend, *config.Config) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading default config: %v", err)
	}
	be := cpu.New()
	sim, err := fluid.New(be, cfg, outW, outH)
	if err != nil {
		t.Fatalf("creating simulation: %v", err)
	}
	return sim, be, cfg
}

func norm2(data []float32) float64 {
	d := make([]float64, len(data))
	for i, v := range data {
		d[i] = float64(v)
	}
	return floats.Norm(d, 2)
}

func sumAbs(data []float32) float64 {
	var s float64
	for _, v := range data {
		s += math.Abs(float64(v))
	}
	return s
}

func TestNewAllocatesAllFields(t *testing.T) {
	sim, be, _ := newTestSim(t, 512, 512)

	// velocity pair, dye pair, pressure pair, divergence, curl
	if got := be.LiveBuffers(); got != 8 {
		t.Errorf("expected 8 live buffers after create, got %d", got)
	}

	w, h := sim.GridSize()
	if w != 128 || h != 128 {
		t.Errorf("expected 128x128 physics grid, got %dx%d", w, h)
	}
	dw, dh := sim.DyeSize()
	if dw != 512 || dh != 512 {
		t.Errorf("expected 512x512 dye grid, got %dx%d", dw, dh)
	}
	if sim.Format() != fluid.FormatFloat {
		t.Errorf("CPU backend should yield FormatFloat buffers")
	}
}

func TestNewAspectCorrection(t *testing.T) {
	sim, _, _ := newTestSim(t, 1280, 720)
	w, h := sim.GridSize()
	if h != 128 {
		t.Errorf("short side should match sim_resolution, got %d", h)
	}
	if w <= h {
		t.Errorf("wide output should produce wide grid, got %dx%d", w, h)
	}
}

func TestNewSurfacesAllocationFailure(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading default config: %v", err)
	}
	be := cpu.New()
	be.FailCreates = 3

	if _, err := fluid.New(be, cfg, 256, 256); err == nil {
		t.Fatal("expected error when allocation fails")
	}
	if got := be.LiveBuffers(); got != 0 {
		t.Errorf("failed create leaked %d buffers", got)
	}
}

func TestStepWhilePausedIsByteExact(t *testing.T) {
	sim, _, cfg := newTestSim(t, 256, 256)

	// Put real content in the fields first.
	if err := sim.Splat(0.5, 0.5, 0.2, -0.1, fluid.Color{R: 0.3, G: 0.1, B: 0.2}); err != nil {
		t.Fatalf("splat: %v", err)
	}
	if err := sim.Step(0.016); err != nil {
		t.Fatalf("step: %v", err)
	}

	cfg.Fluid.Paused = true

	dyeBefore := append([]float32(nil), fluid.BufferData(sim.DyeTexture())...)
	velBefore := append([]float32(nil), fluid.BufferData(sim.VelocityTexture())...)
	dyeHandle := sim.DyeTexture()
	velHandle := sim.VelocityTexture()

	for i := 0; i < 10; i++ {
		if err := sim.Step(0.016); err != nil {
			t.Fatalf("paused step: %v", err)
		}
	}

	if sim.DyeTexture() != dyeHandle || sim.VelocityTexture() != velHandle {
		t.Error("paused steps must not swap buffers")
	}
	dyeAfter := fluid.BufferData(sim.DyeTexture())
	velAfter := fluid.BufferData(sim.VelocityTexture())
	for i := range dyeBefore {
		if dyeAfter[i] != dyeBefore[i] {
			t.Fatalf("dye changed at %d while paused: %g -> %g", i, dyeBefore[i], dyeAfter[i])
		}
	}
	for i := range velBefore {
		if velAfter[i] != velBefore[i] {
			t.Fatalf("velocity changed at %d while paused: %g -> %g", i, velBefore[i], velAfter[i])
		}
	}
}

// TestQuiescentDecay runs the end-to-end scenario: seed the field, then step
// 60 times with no further input. Dye intensity must decay monotonically and
// velocity must trend toward rest.
func TestQuiescentDecay(t *testing.T) {
	sim, _, _ := newTestSim(t, 512, 512)

	for i := 0; i < 4; i++ {
		x := 0.3 + 0.1*float32(i)
		if err := sim.Splat(x, 0.5, 0.1, 0.05, fluid.Color{R: 0.4, G: 0.2, B: 0.3}); err != nil {
			t.Fatalf("seed splat: %v", err)
		}
	}

	dye0 := sumAbs(fluid.BufferData(sim.DyeTexture()))
	vel0 := norm2(fluid.BufferData(sim.VelocityTexture()))
	if dye0 == 0 || vel0 == 0 {
		t.Fatal("seed splats left fields empty")
	}

	prev := dye0
	for i := 0; i < 60; i++ {
		if err := sim.Step(0.016); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		cur := sumAbs(fluid.BufferData(sim.DyeTexture()))
		// Allow a sliver of slack for bilinear resampling at the walls.
		if cur > prev*1.001 {
			t.Fatalf("dye intensity rose at step %d: %g -> %g", i, prev, cur)
		}
		prev = cur
	}

	dye60 := prev
	vel60 := norm2(fluid.BufferData(sim.VelocityTexture()))

	// 0.97^60 is about 0.16; anything above half the seed means dissipation
	// is broken.
	if dye60 > dye0*0.5 {
		t.Errorf("dye decayed too little: %g of initial %g", dye60, dye0)
	}
	if vel60 >= vel0 {
		t.Errorf("velocity did not trend toward rest: %g -> %g", vel0, vel60)
	}
	for _, v := range fluid.BufferData(sim.VelocityTexture()) {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatal("velocity field contains non-finite values")
		}
	}
}

func TestStepClampsExtremeDT(t *testing.T) {
	sim, _, _ := newTestSim(t, 256, 256)
	if err := sim.Splat(0.5, 0.5, 1.0, 1.0, fluid.Color{R: 1, G: 1, B: 1}); err != nil {
		t.Fatalf("splat: %v", err)
	}

	// A pathological frame gap must not blow the field up.
	if err := sim.Step(1000); err != nil {
		t.Fatalf("step: %v", err)
	}
	for _, v := range fluid.BufferData(sim.VelocityTexture()) {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatal("extreme dt produced non-finite velocity")
		}
	}
}

func TestResizeReallocates(t *testing.T) {
	sim, be, _ := newTestSim(t, 512, 512)

	if err := sim.Resize(256, 256); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if got := be.LiveBuffers(); got != 8 {
		t.Errorf("expected exactly 8 live buffers after resize, got %d", got)
	}
	// Square outputs of any size map to the same grids; the state restarts
	// regardless because resize is destructive.
	w, h := sim.GridSize()
	if w != 128 || h != 128 {
		t.Errorf("expected 128x128 grid after square resize, got %dx%d", w, h)
	}

	if err := sim.Resize(1280, 720); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if got := be.LiveBuffers(); got != 8 {
		t.Errorf("resize leaked buffers: %d live", got)
	}
	w, h = sim.GridSize()
	if h != 128 || w <= h {
		t.Errorf("expected wide grid after 1280x720 resize, got %dx%d", w, h)
	}
}

func TestResizeIdempotent(t *testing.T) {
	sim, be, _ := newTestSim(t, 512, 512)
	dye := sim.DyeTexture()

	// Same dimensions produce the same grids: no reallocation.
	if err := sim.Resize(512, 512); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if sim.DyeTexture() != dye {
		t.Error("no-op resize must keep existing buffers")
	}
	if got := be.LiveBuffers(); got != 8 {
		t.Errorf("no-op resize changed live buffer count to %d", got)
	}
}

func TestResizeFailureKeepsOldFields(t *testing.T) {
	sim, be, _ := newTestSim(t, 512, 512)
	dye := sim.DyeTexture()

	be.FailCreates = 2
	if err := sim.Resize(1024, 768); err == nil {
		t.Fatal("expected resize to fail")
	}
	if got := be.LiveBuffers(); got != 8 {
		t.Errorf("failed resize leaked buffers: %d live", got)
	}
	if sim.DyeTexture() != dye {
		t.Error("failed resize must keep the previous field set")
	}
	// The simulation must still step.
	if err := sim.Step(0.016); err != nil {
		t.Errorf("step after failed resize: %v", err)
	}
}

func TestResizeRejectsInvalidDimensions(t *testing.T) {
	sim, _, _ := newTestSim(t, 512, 512)
	if err := sim.Resize(0, 256); err == nil {
		t.Error("expected error for zero width")
	}
	if err := sim.Resize(256, -1); err == nil {
		t.Error("expected error for negative height")
	}
}

func TestDisposeReleasesEverything(t *testing.T) {
	sim, be, _ := newTestSim(t, 512, 512)

	if err := sim.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if got := be.LiveBuffers(); got != 0 {
		t.Errorf("dispose leaked %d buffers", got)
	}
	if !sim.Disposed() {
		t.Error("Disposed() should report true")
	}
}

func TestUseAfterDispose(t *testing.T) {
	sim, _, _ := newTestSim(t, 512, 512)
	if err := sim.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}

	if err := sim.Dispose(); !errors.Is(err, fluid.ErrDisposed) {
		t.Errorf("second dispose: got %v, want ErrDisposed", err)
	}
	if err := sim.Step(0.016); !errors.Is(err, fluid.ErrDisposed) {
		t.Errorf("step after dispose: got %v, want ErrDisposed", err)
	}
	if err := sim.Splat(0.5, 0.5, 0, 0, fluid.Color{}); !errors.Is(err, fluid.ErrDisposed) {
		t.Errorf("splat after dispose: got %v, want ErrDisposed", err)
	}
	if err := sim.Resize(64, 64); !errors.Is(err, fluid.ErrDisposed) {
		t.Errorf("resize after dispose: got %v, want ErrDisposed", err)
	}
	if err := sim.SetParameter("curl", 10); !errors.Is(err, fluid.ErrDisposed) {
		t.Errorf("setparameter after dispose: got %v, want ErrDisposed", err)
	}
	if sim.DyeTexture() != nil {
		t.Error("DyeTexture should be nil after dispose")
	}
}

func TestSetParameter(t *testing.T) {
	sim, _, cfg := newTestSim(t, 512, 512)

	if err := sim.SetParameter("curl", 12.5); err != nil {
		t.Fatalf("set curl: %v", err)
	}
	if cfg.Fluid.Curl != 12.5 {
		t.Errorf("curl not applied: %g", cfg.Fluid.Curl)
	}

	if err := sim.SetParameter("paused", 1); err != nil {
		t.Fatalf("set paused: %v", err)
	}
	if !cfg.Fluid.Paused {
		t.Error("paused not applied")
	}
	if err := sim.SetParameter("paused", 0); err != nil {
		t.Fatalf("clear paused: %v", err)
	}
	if cfg.Fluid.Paused {
		t.Error("paused not cleared")
	}

	if err := sim.SetParameter("pressure_iterations", 35); err != nil {
		t.Fatalf("set pressure_iterations: %v", err)
	}
	if cfg.Fluid.PressureIterations != 35 {
		t.Errorf("pressure_iterations not applied: %d", cfg.Fluid.PressureIterations)
	}
}

func TestSetParameterRejectsInvalid(t *testing.T) {
	sim, _, cfg := newTestSim(t, 512, 512)
	before := cfg.Fluid

	cases := []struct {
		name  string
		value float64
	}{
		{"density_dissipation", 0},
		{"density_dissipation", 1.5},
		{"velocity_dissipation", -0.1},
		{"pressure", 2},
		{"pressure_iterations", 0},
		{"curl", -1},
		{"splat_radius", 0},
		{"max_dt", -0.5},
		{"no_such_knob", 1},
	}
	for _, tc := range cases {
		if err := sim.SetParameter(tc.name, tc.value); !errors.Is(err, fluid.ErrInvalidParameter) {
			t.Errorf("SetParameter(%q, %g): got %v, want ErrInvalidParameter", tc.name, tc.value, err)
		}
	}

	if cfg.Fluid != before {
		t.Error("rejected parameters must leave config untouched")
	}
}

func TestSetParameterResolutionReallocates(t *testing.T) {
	sim, be, _ := newTestSim(t, 512, 512)

	if err := sim.SetParameter("sim_resolution", 64); err != nil {
		t.Fatalf("set sim_resolution: %v", err)
	}
	w, h := sim.GridSize()
	if w != 64 || h != 64 {
		t.Errorf("expected 64x64 grid after resolution change, got %dx%d", w, h)
	}
	if got := be.LiveBuffers(); got != 8 {
		t.Errorf("resolution change leaked buffers: %d live", got)
	}
}

func TestSetParameterResolutionFailureRestoresConfig(t *testing.T) {
	sim, be, cfg := newTestSim(t, 512, 512)
	prev := cfg.Sim.SimResolution
	dye := sim.DyeTexture()

	be.FailCreates = 1
	if err := sim.SetParameter("sim_resolution", 64); err == nil {
		t.Fatal("expected resolution change to fail")
	}
	if cfg.Sim.SimResolution != prev {
		t.Errorf("failed change left config at %d, want %d restored", cfg.Sim.SimResolution, prev)
	}
	if sim.DyeTexture() != dye {
		t.Error("failed change must keep the previous field set")
	}

	// A later resize must derive its grid from the restored resolution, not
	// the rejected one.
	if err := sim.Resize(600, 600); err != nil {
		t.Fatalf("resize after failed change: %v", err)
	}
	if w, h := sim.GridSize(); w != prev || h != prev {
		t.Errorf("resize applied the rejected resolution: %dx%d grid", w, h)
	}
}
