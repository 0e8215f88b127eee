// Package components defines ECS components for ambient splat emitters.
package components

// Position is an emitter's location in normalized texture coordinates
// (0..1 on both axes, origin at the bottom left), the same space splats
// are addressed in.
type Position struct {
	X, Y float32
}

// Motion holds an emitter's drift state. Heading advances by a random walk
// each tick so emitters wander rather than travel in straight lines.
type Motion struct {
	Heading float32 // radians
	Speed   float32 // normalized units per second
	Phase   float32 // offset into the drift noise field
}

// Emitter drives periodic splats into the fluid field.
type Emitter struct {
	Hue      float32 // current hue, 0..1, advanced by the hue cycle
	Timer    float32 // seconds until the next burst
	Interval float32 // seconds between bursts
	Impulse  float32 // velocity impulse scale applied at each burst
}
