package game

import (
	"log/slog"

	"github.com/pthm-cable/ripple/telemetry"
)

// flushTelemetry emits one stats window: perf timings plus field summaries.
func (g *Game) flushTelemetry() {
	perfStats := g.perf.Stats()
	fieldStats := telemetry.CollectFieldStats(g.sim, g.tick)

	if g.logStats {
		perfStats.LogStats()
		fieldStats.LogStats()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WritePerf(perfStats, g.tick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
		if err := g.outputManager.WriteFieldStats(fieldStats); err != nil {
			slog.Error("failed to write field stats", "error", err)
		}
	}

	if fieldStats.Divergent {
		slog.Warn("field diverged", "tick", g.tick)
	}
}
