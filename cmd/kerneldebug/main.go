// Kernel debug tool - runs the CPU reference solver for a number of ticks and
// writes the dye field to a PNG for inspection.
//
// Usage: go run ./cmd/kerneldebug -ticks 240 -splats 6 -out dye.png
package main

import (
	"flag"
	"image"
	"image/png"
	"log/slog"
	"math/rand"
	"os"

	"github.com/pthm-cable/ripple/config"
	"github.com/pthm-cable/ripple/fluid"
	"github.com/pthm-cable/ripple/fluid/cpu"
	"github.com/pthm-cable/ripple/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outPath := flag.String("out", "dye.png", "Output PNG path")
	width := flag.Int("width", 1280, "Output width the grids are sized for")
	height := flag.Int("height", 720, "Output height the grids are sized for")
	ticks := flag.Int("ticks", 240, "Simulation ticks to run")
	splats := flag.Int("splats", 6, "Seed splats before stepping")
	seed := flag.Int64("seed", 1, "RNG seed")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	sim, err := fluid.New(cpu.New(), config.Cfg(), *width, *height)
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}
	defer sim.Dispose()

	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *splats; i++ {
		x := 0.2 + rng.Float32()*0.6
		y := 0.2 + rng.Float32()*0.6
		dx := (rng.Float32() - 0.5) * 0.02
		dy := (rng.Float32() - 0.5) * 0.02
		if err := sim.Splat(x, y, dx, dy, fluid.RandomColor(rng)); err != nil {
			slog.Error("splat failed", "error", err)
			os.Exit(1)
		}
	}

	for t := 0; t < *ticks; t++ {
		if err := sim.Step(1.0 / 60.0); err != nil {
			slog.Error("step failed", "tick", t, "error", err)
			os.Exit(1)
		}
	}

	stats := telemetry.CollectFieldStats(sim, int32(*ticks))
	stats.LogStats()
	if stats.Divergent {
		slog.Error("field diverged")
		os.Exit(1)
	}

	if err := writeDyePNG(sim, *outPath); err != nil {
		slog.Error("failed to write image", "error", err)
		os.Exit(1)
	}
	slog.Info("wrote dye field", "path", *outPath)
}

// writeDyePNG tone-maps the dye grid into an 8-bit image. Row order is
// flipped so the image matches the on-screen orientation.
func writeDyePNG(sim *fluid.Simulation, path string) error {
	dye := sim.DyeTexture()
	data := fluid.BufferData(dye)
	w, h := dye.Width(), dye.Height()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := (h - 1 - y) * w
		for x := 0; x < w; x++ {
			i := (row + x) * 3
			o := img.PixOffset(x, y)
			img.Pix[o] = toByte(data[i])
			img.Pix[o+1] = toByte(data[i+1])
			img.Pix[o+2] = toByte(data[i+2])
			img.Pix[o+3] = 255
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}
