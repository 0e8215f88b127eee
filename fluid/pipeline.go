package fluid

// Phase names reported through the phase hook: one per pipeline stage, plus
// the splat injector.
const (
	PhaseAdvectVelocity   = "advect_velocity"
	PhaseAdvectDye        = "advect_dye"
	PhaseCurl             = "curl"
	PhaseVorticity        = "vorticity"
	PhaseDivergence       = "divergence"
	PhasePressure         = "pressure"
	PhaseGradientSubtract = "gradient_subtract"
	PhaseSplat            = "splat"
)

// Step advances the simulation by dt seconds, running the full pass sequence
// over the simulation grid. When the pause flag is set nothing runs and every
// field keeps its exact contents. dt is clamped to the configured maximum;
// the fixed-iteration pressure solve has no divergence guard, so bounding dt
// is what keeps extreme frame gaps from destabilizing the field.
//
// Pass order is the stable-fluids sequence: advect (with dissipation), curl,
// vorticity confinement, divergence, Jacobi pressure solve, pressure-gradient
// subtraction. Each pass reads only fully-written output of earlier passes;
// the double buffers are swapped immediately after their write pass.
func (s *Simulation) Step(dt float32) error {
	if s.disposed {
		return ErrDisposed
	}
	if s.cfg.Fluid.Paused {
		return nil
	}
	if maxDT := float32(s.cfg.Fluid.MaxDT); dt > maxDT {
		dt = maxDT
	}
	if dt <= 0 {
		return nil
	}

	// Semi-Lagrangian advection of velocity through itself, folding in the
	// per-frame dissipation factor. Unconditionally stable for any dt at the
	// cost of numerical smoothing.
	s.phase(PhaseAdvectVelocity)
	err := s.backend.Run(KernelAdvect, s.velocity.Write, PassArgs{
		Velocity:    s.velocity.Read,
		Source:      s.velocity.Read,
		DT:          dt,
		Dissipation: float32(s.cfg.Fluid.VelocityDissipation),
	})
	if err != nil {
		return err
	}
	s.velocity.Swap()

	// Dye rides the same velocity field, sampled across the resolution gap.
	s.phase(PhaseAdvectDye)
	err = s.backend.Run(KernelAdvect, s.dye.Write, PassArgs{
		Velocity:    s.velocity.Read,
		Source:      s.dye.Read,
		DT:          dt,
		Dissipation: float32(s.cfg.Fluid.DensityDissipation),
	})
	if err != nil {
		return err
	}
	s.dye.Swap()

	// Scalar curl of the velocity field, central differences.
	s.phase(PhaseCurl)
	err = s.backend.Run(KernelCurl, s.curl, PassArgs{Velocity: s.velocity.Read})
	if err != nil {
		return err
	}

	// Vorticity confinement: push velocity along the rotated gradient of
	// |curl| to restore the small-scale swirl that advection smoothed away.
	s.phase(PhaseVorticity)
	err = s.backend.Run(KernelVorticity, s.velocity.Write, PassArgs{
		Velocity:     s.velocity.Read,
		Curl:         s.curl,
		CurlStrength: float32(s.cfg.Fluid.Curl),
		DT:           dt,
	})
	if err != nil {
		return err
	}
	s.velocity.Swap()

	s.phase(PhaseDivergence)
	err = s.backend.Run(KernelDivergence, s.divergence, PassArgs{Velocity: s.velocity.Read})
	if err != nil {
		return err
	}

	// Jacobi relaxation on the pressure Poisson equation. Last frame's
	// pressure, damped by the carry-over factor, seeds the solve so the fixed
	// iteration count starts closer to convergence.
	s.phase(PhasePressure)
	err = s.backend.Run(KernelClear, s.pressure.Write, PassArgs{
		Source:      s.pressure.Read,
		ClearFactor: float32(s.cfg.Fluid.Pressure),
	})
	if err != nil {
		return err
	}
	s.pressure.Swap()

	for i := 0; i < s.cfg.Fluid.PressureIterations; i++ {
		err = s.backend.Run(KernelPressure, s.pressure.Write, PassArgs{
			Pressure:   s.pressure.Read,
			Divergence: s.divergence,
		})
		if err != nil {
			return err
		}
		s.pressure.Swap()
	}

	// Projection: subtracting the pressure gradient leaves a divergence-free
	// velocity field. This is the step that makes the motion fluid-like.
	s.phase(PhaseGradientSubtract)
	err = s.backend.Run(KernelGradientSubtract, s.velocity.Write, PassArgs{
		Velocity: s.velocity.Read,
		Pressure: s.pressure.Read,
	})
	if err != nil {
		return err
	}
	s.velocity.Swap()

	return nil
}
