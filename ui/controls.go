// Package ui renders the runtime control panel for the fluid parameters.
package ui

import (
	"fmt"
	"log/slog"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ripple/config"
	"github.com/pthm-cable/ripple/fluid"
)

const (
	panelX      = 10
	panelY      = 10
	panelWidth  = 290
	sliderWidth = panelWidth - 110
	rowHeight   = 34
)

// Panel is the tweak panel: sliders and toggles bound to the simulation's
// runtime parameters. Hidden by default.
type Panel struct {
	cfg     *config.Config
	visible bool
	height  float32
}

// NewPanel creates the control panel.
func NewPanel(cfg *config.Config) *Panel {
	return &Panel{cfg: cfg}
}

// Toggle switches panel visibility.
func (p *Panel) Toggle() {
	p.visible = !p.visible
}

// Visible returns whether the panel is shown.
func (p *Panel) Visible() bool {
	return p.visible
}

// Contains reports whether a screen point falls inside the open panel.
// Pointer drags that start here must not splat.
func (p *Panel) Contains(x, y float32) bool {
	if !p.visible {
		return false
	}
	return x >= panelX && x <= panelX+panelWidth && y >= panelY && y <= panelY+p.height
}

// Draw renders the panel and pushes any changed values into the simulation.
func (p *Panel) Draw(sim *fluid.Simulation) {
	f := &p.cfg.Fluid
	b := &p.cfg.Bloom

	rl.DrawRectangle(panelX, panelY, panelWidth, int32(p.height), rl.Color{R: 20, G: 20, B: 28, A: 220})

	y := float32(panelY + 10)
	rl.DrawText("Fluid", panelX+10, int32(y), 16, rl.White)
	y += 24

	p.slider(sim, &y, "density_dissipation", "Dye decay", f.DensityDissipation, 0.8, 1, "%.3f")
	p.slider(sim, &y, "velocity_dissipation", "Vel decay", f.VelocityDissipation, 0.8, 1, "%.3f")
	p.slider(sim, &y, "pressure", "Pressure", f.Pressure, 0, 1, "%.2f")
	p.slider(sim, &y, "pressure_iterations", "Iterations", float64(f.PressureIterations), 1, 60, "%.0f")
	p.slider(sim, &y, "curl", "Curl", f.Curl, 0, 50, "%.1f")
	p.slider(sim, &y, "splat_radius", "Radius", f.SplatRadius, 0.01, 1, "%.2f")
	p.slider(sim, &y, "splat_force", "Force", f.SplatForce, 0, 20, "%.1f")

	p.toggle(sim, &y, "paused", "Paused", f.Paused)
	p.toggle(sim, &y, "colorful", "Colorful", f.Colorful)

	y += 6
	rl.DrawText("Bloom", panelX+10, int32(y), 16, rl.White)
	y += 24

	p.toggle(sim, &y, "bloom", "Enabled", b.Enabled)
	p.slider(sim, &y, "bloom_intensity", "Intensity", b.Intensity, 0, 1, "%.2f")
	p.slider(sim, &y, "bloom_threshold", "Threshold", b.Threshold, 0, 2, "%.2f")
	p.slider(sim, &y, "bloom_soft_knee", "Soft knee", b.SoftKnee, 0, 1, "%.2f")

	p.height = y + 10 - panelY
}

// slider draws one labeled slider row and applies the value on change.
func (p *Panel) slider(sim *fluid.Simulation, y *float32, param, label string, value, min, max float64, format string) {
	rl.DrawText(label, panelX+10, int32(*y+2), 12, rl.Gray)

	bounds := rl.Rectangle{X: panelX + 100, Y: *y, Width: sliderWidth, Height: 18}
	next := gui.SliderBar(bounds, "", "", float32(value), float32(min), float32(max))
	rl.DrawText(fmt.Sprintf(format, value), panelX+100+sliderWidth+6, int32(*y+2), 12, rl.LightGray)

	if float64(next) != value {
		if err := sim.SetParameter(param, float64(next)); err != nil {
			slog.Error("failed to set parameter", "param", param, "error", err)
		}
	}
	*y += rowHeight - 10
}

// toggle draws one checkbox row and applies the value on change.
func (p *Panel) toggle(sim *fluid.Simulation, y *float32, param, label string, value bool) {
	bounds := rl.Rectangle{X: panelX + 100, Y: *y, Width: 18, Height: 18}
	next := gui.CheckBox(bounds, "", value)
	rl.DrawText(label, panelX+10, int32(*y+2), 12, rl.Gray)

	if next != value {
		v := 0.0
		if next {
			v = 1.0
		}
		if err := sim.SetParameter(param, v); err != nil {
			slog.Error("failed to set parameter", "param", param, "error", err)
		}
	}
	*y += rowHeight - 10
}
