package game

import (
	"testing"

	"github.com/pthm-cable/ripple/config"
	"github.com/pthm-cable/ripple/telemetry"
)

// newHeadlessGame builds a game on the CPU backend with a small grid so the
// per-tick cost stays reasonable under the race detector.
func newHeadlessGame(t *testing.T) *Game {
	t.Helper()
	config.MustInit("")
	cfg := config.Cfg()
	cfg.Sim.SimResolution = 32
	cfg.Sim.DyeResolution = 32
	cfg.Fluid.Paused = false
	// Short interval so every emitter fires several times within the run.
	cfg.Emitters.Interval = 0.2

	g, err := NewGameWithOptions(Options{Seed: 1, Headless: true})
	if err != nil {
		t.Fatalf("NewGameWithOptions: %v", err)
	}
	t.Cleanup(g.Unload)
	return g
}

func TestHeadlessRunProducesDye(t *testing.T) {
	g := newHeadlessGame(t)

	// Two seconds of simulated time covers several emitter intervals.
	for i := 0; i < 120; i++ {
		g.UpdateHeadless()
	}
	if got := g.Tick(); got != 120 {
		t.Fatalf("tick counter = %d, want 120", got)
	}

	stats := telemetry.CollectFieldStats(g.Sim(), g.Tick())
	if stats.DyeTotal <= 0 {
		t.Errorf("emitters should have injected dye, total = %g", stats.DyeTotal)
	}
	if stats.Divergent {
		t.Error("field diverged during headless run")
	}
}

func TestPausedRunLeavesFieldEmpty(t *testing.T) {
	g := newHeadlessGame(t)
	g.cfg.Fluid.Paused = true

	for i := 0; i < 30; i++ {
		g.UpdateHeadless()
	}

	stats := telemetry.CollectFieldStats(g.Sim(), g.Tick())
	if stats.DyeTotal != 0 {
		t.Errorf("paused run should not inject dye, total = %g", stats.DyeTotal)
	}
}

func TestSpawnEmittersMatchesConfig(t *testing.T) {
	g := newHeadlessGame(t)

	count := 0
	query := g.emitterFilter.Query()
	for query.Next() {
		_, _, em := query.Get()
		if em.Interval <= 0 {
			t.Errorf("emitter has non-positive interval %g", em.Interval)
		}
		count++
	}
	if count != g.cfg.Emitters.Count {
		t.Errorf("spawned %d emitters, want %d", count, g.cfg.Emitters.Count)
	}
}

func TestUnloadIsIdempotent(t *testing.T) {
	g := newHeadlessGame(t)
	g.UpdateHeadless()
	g.Unload()
	g.Unload()
}
