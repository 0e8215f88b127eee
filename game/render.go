package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Draw composites the dye field to the screen and renders the control panel.
func (g *Game) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	g.backdrop.Draw(g.sim.DyeTexture())

	if g.panel.Visible() {
		g.panel.Draw(g.sim)
	}

	rl.EndDrawing()
	g.perf.RecordFrame()
}
