package game

import (
	"log/slog"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/ripple/components"
	"github.com/pthm-cable/ripple/fluid"
)

// Spatial frequency of the drift noise field, in noise units per screen.
const emitterNoiseScale = 2.5

// How fast the drift field itself evolves.
const emitterNoiseDrift = 0.08

// spawnEmitters creates the ambient emitter entities. Hues start evenly
// spread around the wheel so concurrent bursts stay distinguishable.
func (g *Game) spawnEmitters() {
	cfg := g.cfg.Emitters
	g.driftNoise = opensimplex.New(g.rng.Int63())
	for i := 0; i < cfg.Count; i++ {
		pos := components.Position{X: g.rng.Float32(), Y: g.rng.Float32()}
		mot := components.Motion{
			Heading: g.rng.Float32() * 2 * math.Pi,
			Speed:   float32(cfg.DriftSpeed),
			Phase:   g.rng.Float32() * 100,
		}
		em := components.Emitter{
			Hue:      float32(i) / float32(cfg.Count),
			Timer:    g.rng.Float32() * float32(cfg.Interval),
			Interval: float32(cfg.Interval),
			Impulse:  float32(cfg.ImpulseScale),
		}
		g.emitterMapper.NewEntity(&pos, &mot, &em)
	}
}

// updateEmitters drifts each emitter along the noise field and fires its
// periodic bursts.
func (g *Game) updateEmitters(dt float32) {
	// Hue cycle speed is in rotations per minute.
	hueRate := float32(g.cfg.Emitters.HueCycleSpeed) / 60
	g.driftTime += float64(dt) * emitterNoiseDrift

	query := g.emitterFilter.Query()
	for query.Next() {
		pos, mot, em := query.Get()

		// Sampling the noise field at the emitter's position gives smooth,
		// loopy paths; the phase offset decorrelates the emitters.
		n := g.driftNoise.Eval3(
			float64(pos.X)*emitterNoiseScale,
			float64(pos.Y)*emitterNoiseScale,
			g.driftTime+float64(mot.Phase),
		)
		mot.Heading = float32(n) * 2 * math.Pi
		dirX := float32(math.Cos(float64(mot.Heading)))
		dirY := float32(math.Sin(float64(mot.Heading)))
		pos.X = wrap01(pos.X + dirX*mot.Speed*dt)
		pos.Y = wrap01(pos.Y + dirY*mot.Speed*dt)

		if g.cfg.Fluid.Colorful {
			em.Hue = wrap01(em.Hue + hueRate*dt)
		}

		em.Timer -= dt
		if em.Timer > 0 {
			continue
		}
		em.Timer += em.Interval

		// The splat takes a per-frame pointer delta; the impulse is
		// expressed per second.
		dx := dirX * em.Impulse * HeadlessDT
		dy := dirY * em.Impulse * HeadlessDT
		if err := g.sim.Splat(pos.X, pos.Y, dx, dy, g.emitterColor(em.Hue)); err != nil {
			slog.Error("emitter splat failed", "error", err)
		}
	}
}

func (g *Game) emitterColor(hue float32) fluid.Color {
	if g.cfg.Fluid.Colorful {
		return fluid.HSV(hue, 1, 1).Scale(0.15)
	}
	return fluid.Color{R: 0.1, G: 0.1, B: 0.1}
}

// wrap01 wraps x into [0,1).
func wrap01(x float32) float32 {
	x -= float32(math.Floor(float64(x)))
	return x
}
