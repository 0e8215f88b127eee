package fluid

// Splat injects a localized impulse at a normalized position: a velocity kick
// of (dx, dy) and a blob of dye color, both with radial exponential falloff.
// The force is scaled by the larger grid dimension so a drag feels the same
// at every resolution. Safe to call any number of times per tick; each call
// reads the current state, writes, and swaps before returning.
func (s *Simulation) Splat(x, y, dx, dy float32, color Color) error {
	if s.disposed {
		return ErrDisposed
	}
	s.phase(PhaseSplat)
	defer s.phase("")

	maxDim := s.simW
	if s.simH > maxDim {
		maxDim = s.simH
	}
	forceScale := float32(s.cfg.Fluid.SplatForce) * float32(maxDim)
	radius := s.correctRadius(float32(s.cfg.Fluid.SplatRadius) / 100)
	aspect := float32(s.outW) / float32(s.outH)

	err := s.backend.Run(KernelSplat, s.velocity.Write, PassArgs{
		Source: s.velocity.Read,
		Point:  [2]float32{x, y},
		Force:  [3]float32{dx * forceScale, dy * forceScale, 0},
		Radius: radius,
		Aspect: aspect,
	})
	if err != nil {
		return err
	}
	s.velocity.Swap()

	err = s.backend.Run(KernelSplat, s.dye.Write, PassArgs{
		Source: s.dye.Read,
		Point:  [2]float32{x, y},
		Force:  [3]float32{color.R, color.G, color.B},
		Radius: radius,
		Aspect: aspect,
	})
	if err != nil {
		return err
	}
	s.dye.Swap()

	return nil
}

// correctRadius widens the falloff radius on wide outputs so splats stay
// round instead of squashing with the aspect ratio.
func (s *Simulation) correctRadius(radius float32) float32 {
	aspect := float32(s.outW) / float32(s.outH)
	if aspect > 1 {
		radius *= aspect
	}
	return radius
}
