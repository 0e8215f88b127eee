package fluid

import "math/rand"

// Color is an RGB dye color with components in [0,1].
type Color struct {
	R, G, B float32
}

// Scale returns the color with every component multiplied by f.
func (c Color) Scale(f float32) Color {
	return Color{c.R * f, c.G * f, c.B * f}
}

// HSV converts a hue/saturation/value triple to RGB. Hue is in [0,1) and
// wraps.
func HSV(h, s, v float32) Color {
	h -= float32(int(h))
	if h < 0 {
		h++
	}
	i := int(h * 6)
	f := h*6 - float32(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	switch i % 6 {
	case 0:
		return Color{v, t, p}
	case 1:
		return Color{q, v, p}
	case 2:
		return Color{p, v, t}
	case 3:
		return Color{p, q, v}
	case 4:
		return Color{t, p, v}
	default:
		return Color{v, p, q}
	}
}

// RandomColor picks a fully saturated random hue, dimmed to backdrop
// brightness.
func RandomColor(rng *rand.Rand) Color {
	return HSV(rng.Float32(), 1, 1).Scale(0.15)
}
