package telemetry

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/ripple/fluid"
)

// FieldStats summarizes the dye and velocity fields at a single tick.
type FieldStats struct {
	Tick        int32   `csv:"tick"`
	DyeTotal    float64 `csv:"dye_total"`
	DyeMean     float64 `csv:"dye_mean"`
	DyeMax      float64 `csv:"dye_max"`
	VelNorm     float64 `csv:"vel_norm"`
	VelMax      float64 `csv:"vel_max"`
	Divergent   bool    `csv:"divergent"`
	GridWidth   int32   `csv:"grid_width"`
	GridHeight  int32   `csv:"grid_height"`
	DyeCellsLit float64 `csv:"dye_cells_lit_pct"`
}

// LogStats logs the field summary via slog.
func (s FieldStats) LogStats() {
	slog.Info("fields",
		"tick", s.Tick,
		"dye_total", s.DyeTotal,
		"dye_max", s.DyeMax,
		"vel_norm", s.VelNorm,
		"vel_max", s.VelMax,
		"lit_pct", s.DyeCellsLit,
		"divergent", s.Divergent,
	)
}

// litThreshold is the dye intensity above which a cell counts as visible.
const litThreshold = 0.01

// CollectFieldStats computes summary statistics from the simulation's
// current dye and velocity buffers. Returns the zero value when a buffer
// does not expose its raw data (non-CPU backends).
func CollectFieldStats(sim *fluid.Simulation, tick int32) FieldStats {
	dye := fluid.BufferData(sim.DyeTexture())
	vel := fluid.BufferData(sim.VelocityTexture())
	if dye == nil || vel == nil {
		return FieldStats{Tick: tick}
	}

	abs := make([]float64, len(dye))
	for i, v := range dye {
		abs[i] = math.Abs(float64(v))
	}
	total := floats.Sum(abs)
	dyeMax := floats.Max(abs)

	lit := 0
	for _, v := range abs {
		if v > litThreshold {
			lit++
		}
	}

	vel64 := make([]float64, len(vel))
	velMax := 0.0
	for i, v := range vel {
		vel64[i] = float64(v)
		if a := math.Abs(float64(v)); a > velMax {
			velMax = a
		}
	}
	velNorm := floats.Norm(vel64, 2)

	gw, gh := sim.GridSize()

	finite := !math.IsNaN(total) && !math.IsInf(total, 0) &&
		!math.IsNaN(velNorm) && !math.IsInf(velNorm, 0)

	return FieldStats{
		Tick:        tick,
		DyeTotal:    total,
		DyeMean:     total / float64(len(dye)),
		DyeMax:      dyeMax,
		VelNorm:     velNorm,
		VelMax:      velMax,
		Divergent:   !finite,
		GridWidth:   int32(gw),
		GridHeight:  int32(gh),
		DyeCellsLit: float64(lit) / float64(len(dye)) * 100,
	}
}
