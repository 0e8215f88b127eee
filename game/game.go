// Package game hosts the frame loop: it owns the fluid simulation, the
// ambient emitter entities, pointer input, and telemetry output.
package game

import (
	"fmt"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/ripple/components"
	"github.com/pthm-cable/ripple/config"
	"github.com/pthm-cable/ripple/fluid"
	"github.com/pthm-cable/ripple/fluid/cpu"
	"github.com/pthm-cable/ripple/renderer"
	"github.com/pthm-cable/ripple/telemetry"
	"github.com/pthm-cable/ripple/ui"
)

// Fixed timestep for headless runs.
const HeadlessDT = 1.0 / 60.0

// Options configures game construction.
type Options struct {
	Seed      int64
	LogStats  bool
	OutputDir string
	Headless  bool
}

// Game holds the complete backdrop state.
type Game struct {
	cfg     *config.Config
	sim     *fluid.Simulation
	backend fluid.Backend

	world         *ecs.World
	emitterMapper *ecs.Map3[
		components.Position,
		components.Motion,
		components.Emitter,
	]
	emitterFilter *ecs.Filter3[
		components.Position,
		components.Motion,
		components.Emitter,
	]
	rng *rand.Rand

	// Emitter drift noise field
	driftNoise opensimplex.Noise
	driftTime  float64

	// Rendering (nil when headless)
	backdrop *renderer.Backdrop
	panel    *ui.Panel

	// Telemetry
	perf          *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	logStats      bool
	windowTicks   int32

	// Pointer state
	pointerDown  bool
	pointerX     float32
	pointerY     float32
	pointerColor fluid.Color

	tick     int32
	headless bool

	// Window dimensions
	width, height int
}

// NewGameWithOptions creates a game instance. In headless mode the simulation
// runs on the CPU backend; otherwise field passes execute as fragment shaders
// on render textures.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := config.Cfg()
	world := ecs.NewWorld()

	g := &Game{
		cfg:      cfg,
		world:    world,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		logStats: opts.LogStats,
		headless: opts.Headless,
		width:    cfg.Screen.Width,
		height:   cfg.Screen.Height,
		emitterMapper: ecs.NewMap3[
			components.Position,
			components.Motion,
			components.Emitter,
		](world),
		emitterFilter: ecs.NewFilter3[
			components.Position,
			components.Motion,
			components.Emitter,
		](world),
	}

	var backend fluid.Backend
	if opts.Headless {
		backend = cpu.New()
	} else {
		b, err := renderer.NewBackend()
		if err != nil {
			return nil, fmt.Errorf("creating render backend: %w", err)
		}
		backend = b
	}
	g.backend = backend

	sim, err := fluid.New(backend, cfg, g.width, g.height)
	if err != nil {
		return nil, fmt.Errorf("creating simulation: %w", err)
	}
	g.sim = sim

	windowTicks := int32(cfg.Telemetry.StatsWindow * 60)
	if windowTicks < 1 {
		windowTicks = 1
	}
	g.windowTicks = windowTicks
	g.perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	sim.SetPhaseHook(g.perf.StartPhase)

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		sim.Dispose()
		return nil, err
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		sim.Dispose()
		om.Close()
		return nil, err
	}

	if !opts.Headless {
		g.backdrop = renderer.NewBackdrop(int32(g.width), int32(g.height), cfg)
		g.panel = ui.NewPanel(cfg)
	}

	g.spawnEmitters()

	return g, nil
}

// Update advances one frame in graphical mode: input, emitters, one
// simulation step, telemetry.
func (g *Game) Update() {
	g.handleInput()
	g.step(g.frameDT())
}

// UpdateHeadless advances one fixed-dt tick with no input or rendering.
func (g *Game) UpdateHeadless() {
	g.step(HeadlessDT)
}

func (g *Game) step(dt float32) {
	g.perf.StartTick()

	if !g.cfg.Fluid.Paused {
		g.updateEmitters(dt)
	}
	if err := g.sim.Step(dt); err != nil {
		panic(err) // only ErrDisposed can surface here; stepping after Unload is a bug
	}

	g.perf.EndTick()
	g.tick++

	if g.tick%g.windowTicks == 0 {
		g.flushTelemetry()
	}
}

// Unload releases the simulation and all rendering and output resources.
func (g *Game) Unload() {
	if g.sim != nil && !g.sim.Disposed() {
		g.sim.Dispose()
	}
	if u, ok := g.backend.(interface{ Unload() }); ok {
		u.Unload()
	}
	if g.backdrop != nil {
		g.backdrop.Unload()
	}
	if g.outputManager != nil {
		g.outputManager.Close()
	}
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int32 {
	return g.tick
}

// Sim exposes the simulation for tests and debug tooling.
func (g *Game) Sim() *fluid.Simulation {
	return g.sim
}
