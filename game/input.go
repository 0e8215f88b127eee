package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ripple/fluid"
)

// handleInput processes keyboard and pointer input.
func (g *Game) handleInput() {
	g.handleResize()

	// Fullscreen toggle
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		v := 1.0
		if g.cfg.Fluid.Paused {
			v = 0.0
		}
		if err := g.sim.SetParameter("paused", v); err != nil {
			slog.Error("failed to toggle pause", "error", err)
		}
	}

	// Control panel toggle
	if rl.IsKeyPressed(rl.KeyTab) {
		g.panel.Toggle()
	}

	g.handlePointer()
}

// handlePointer turns pointer drags into splats. Coordinates are normalized
// to [0,1] with the origin at the bottom left to match field texture space.
func (g *Game) handlePointer() {
	mouse := rl.GetMousePosition()

	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && !g.panel.Contains(mouse.X, mouse.Y) {
		g.pointerDown = true
		g.pointerX, g.pointerY = g.normalizePointer(mouse.X, mouse.Y)
		g.pointerColor = g.splatColor()
	}
	if rl.IsMouseButtonReleased(rl.MouseButtonLeft) {
		g.pointerDown = false
	}
	if !g.pointerDown {
		return
	}

	x, y := g.normalizePointer(mouse.X, mouse.Y)
	dx := x - g.pointerX
	dy := y - g.pointerY
	g.pointerX, g.pointerY = x, y

	if dx == 0 && dy == 0 {
		return
	}
	if err := g.sim.Splat(x, y, dx, dy, g.pointerColor); err != nil {
		slog.Error("splat failed", "error", err)
	}
}

func (g *Game) normalizePointer(mx, my float32) (float32, float32) {
	return mx / float32(g.width), 1 - my/float32(g.height)
}

// splatColor picks the dye color for a new drag. Each drag gets its own
// color when the colorful mode is on.
func (g *Game) splatColor() fluid.Color {
	if g.cfg.Fluid.Colorful {
		return fluid.RandomColor(g.rng)
	}
	return fluid.Color{R: 0.15, G: 0.15, B: 0.15}
}

// handleResize checks for window resize and propagates new dimensions.
// Resizing restarts the field from rest.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := rl.GetScreenWidth()
	h := rl.GetScreenHeight()
	if w == g.width && h == g.height {
		return
	}
	g.width, g.height = w, h

	if err := g.sim.Resize(w, h); err != nil {
		slog.Error("simulation resize failed", "error", err, "width", w, "height", h)
	}
	if g.backdrop != nil {
		g.backdrop.Resize(int32(w), int32(h))
	}
}

func (g *Game) frameDT() float32 {
	dt := rl.GetFrameTime()
	if dt <= 0 {
		dt = HeadlessDT
	}
	return dt
}
