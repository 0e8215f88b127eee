package telemetry

import (
	"testing"
	"time"

	"github.com/pthm-cable/ripple/fluid"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate a few ticks
	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(fluid.PhaseAdvectVelocity)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(fluid.PhasePressure)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}

	if len(stats.PhaseAvg) == 0 {
		t.Error("expected phase averages to be populated")
	}

	if _, ok := stats.PhaseAvg[fluid.PhaseAdvectVelocity]; !ok {
		t.Error("expected advect_velocity phase to be tracked")
	}

	if _, ok := stats.PhaseAvg[fluid.PhasePressure]; !ok {
		t.Error("expected pressure phase to be tracked")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5) // Small window

	// Fill window completely
	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase(fluid.PhaseCurl)
		pc.EndTick()
	}

	stats := pc.Stats()

	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration after window filled")
	}

	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate with uneven phase durations
	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(100 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	fastPct := stats.PhasePct["fast"]
	slowPct := stats.PhasePct["slow"]

	if slowPct <= fastPct {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", slowPct, fastPct)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	// Empty collector should return zero values without panicking
	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg tick duration for empty collector")
	}

	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}

	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

// Pointer splats fire between EndTick and the next StartTick. Their time
// must land in the following tick's sample, never in the one already
// recorded.
func TestPerfCollector_PhaseBetweenTicks(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.StartTick()
	pc.StartPhase(fluid.PhasePressure)
	time.Sleep(100 * time.Microsecond)
	pc.EndTick()
	recorded := pc.samples[0].Phases

	pc.StartPhase(fluid.PhaseSplat)
	time.Sleep(100 * time.Microsecond)
	pc.StartPhase("")

	if d := recorded[fluid.PhaseSplat]; d != 0 {
		t.Errorf("between-tick splat mutated the recorded sample: %v", d)
	}

	pc.StartTick()
	pc.StartPhase(fluid.PhaseAdvectVelocity)
	time.Sleep(50 * time.Microsecond)
	pc.EndTick()

	if d := pc.samples[1].Phases[fluid.PhaseSplat]; d <= 0 {
		t.Error("between-tick splat time should count toward the next tick")
	}
	if pc.Stats().PhaseAvg[fluid.PhaseSplat] <= 0 {
		t.Error("splat phase missing from aggregated stats")
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 3; i++ {
		pc.StartTick()
		pc.StartPhase(fluid.PhasePressure)
		time.Sleep(50 * time.Microsecond)
		pc.EndTick()
	}

	record := pc.Stats().ToCSV(42)

	if record.Tick != 42 {
		t.Errorf("expected tick 42, got %d", record.Tick)
	}
	if record.PressureUS <= 0 {
		t.Error("expected positive pressure phase duration")
	}
	if record.CurlUS != 0 {
		t.Errorf("expected zero curl duration for untracked phase, got %d", record.CurlUS)
	}
}
