package cpu

import (
	"fmt"
	"math"

	"github.com/pthm-cable/ripple/fluid"
)

// clear writes Source scaled by ClearFactor into the target. With a factor of
// zero this zeroes the field; the pressure solve uses it to damp last frame's
// pressure before relaxation.
func (be *Backend) clear(out *Buffer, args fluid.PassArgs) error {
	src, err := input(fluid.KernelClear, "source", args.Source)
	if err != nil {
		return err
	}
	if len(src.data) != len(out.data) {
		return fmt.Errorf("cpu: %s pass: source is %dx%dx%d, target is %dx%dx%d",
			fluid.KernelClear, src.w, src.h, src.comps, out.w, out.h, out.comps)
	}
	f := args.ClearFactor
	for i := range out.data {
		out.data[i] = src.data[i] * f
	}
	return nil
}

// advect traces each cell backward through the velocity field and samples the
// source there: semi-Lagrangian transport, bilinear over the previous frame.
// The sampled value is scaled by the dissipation factor on the way out.
// Velocity is stored in cells-per-second of its own grid; the source may be a
// different resolution (dye) and is sampled in normalized coordinates.
func (be *Backend) advect(out *Buffer, args fluid.PassArgs) error {
	vel, err := input(fluid.KernelAdvect, "velocity", args.Velocity)
	if err != nil {
		return err
	}
	src, err := input(fluid.KernelAdvect, "source", args.Source)
	if err != nil {
		return err
	}

	velTexelX, velTexelY := vel.Texel()
	dt := args.DT
	diss := args.Dissipation

	idx := 0
	for y := 0; y < out.h; y++ {
		v := (float32(y) + 0.5) / float32(out.h)
		for x := 0; x < out.w; x++ {
			u := (float32(x) + 0.5) / float32(out.w)

			vx := vel.sample(u, v, 0)
			vy := vel.sample(u, v, 1)
			su := u - dt*vx*velTexelX
			sv := v - dt*vy*velTexelY

			for c := 0; c < out.comps; c++ {
				out.data[idx+c] = diss * src.sample(su, sv, c)
			}
			idx += out.comps
		}
	}
	return nil
}

// curl computes the scalar vorticity of the velocity field with central
// differences.
func (be *Backend) curl(out *Buffer, args fluid.PassArgs) error {
	vel, err := input(fluid.KernelCurl, "velocity", args.Velocity)
	if err != nil {
		return err
	}
	for y := 0; y < out.h; y++ {
		for x := 0; x < out.w; x++ {
			dvyx := vel.at(x+1, y, 1) - vel.at(x-1, y, 1)
			dvxy := vel.at(x, y+1, 0) - vel.at(x, y-1, 0)
			out.data[y*out.w+x] = 0.5 * (dvyx - dvxy)
		}
	}
	return nil
}

// vorticity adds the confinement force: the gradient of |curl| rotated 90
// degrees, normalized, scaled by the local curl and the configured strength.
// This restores small-scale rotation lost to advection smoothing.
func (be *Backend) vorticity(out *Buffer, args fluid.PassArgs) error {
	vel, err := input(fluid.KernelVorticity, "velocity", args.Velocity)
	if err != nil {
		return err
	}
	crl, err := input(fluid.KernelVorticity, "curl", args.Curl)
	if err != nil {
		return err
	}

	strength := args.CurlStrength
	dt := args.DT

	idx := 0
	for y := 0; y < out.h; y++ {
		for x := 0; x < out.w; x++ {
			l := abs32(crl.at(x-1, y, 0))
			r := abs32(crl.at(x+1, y, 0))
			b := abs32(crl.at(x, y-1, 0))
			t := abs32(crl.at(x, y+1, 0))
			c := crl.at(x, y, 0)

			fx := 0.5 * (t - b)
			fy := -0.5 * (r - l)
			mag := float32(math.Sqrt(float64(fx*fx+fy*fy))) + 1e-4
			fx = fx / mag * strength * c
			fy = fy / mag * strength * c

			out.data[idx] = vel.at(x, y, 0) + fx*dt
			out.data[idx+1] = vel.at(x, y, 1) + fy*dt
			idx += 2
		}
	}
	return nil
}

// divergence measures net outflow per cell with central differences. At the
// walls the outside velocity mirrors the cell's own, negated: the boundary is
// closed and fluid cannot leave the grid.
func (be *Backend) divergence(out *Buffer, args fluid.PassArgs) error {
	vel, err := input(fluid.KernelDivergence, "velocity", args.Velocity)
	if err != nil {
		return err
	}
	w, h := out.w, out.h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := vel.at(x-1, y, 0)
			r := vel.at(x+1, y, 0)
			b := vel.at(x, y-1, 1)
			t := vel.at(x, y+1, 1)
			if x == 0 {
				l = -vel.at(x, y, 0)
			}
			if x == w-1 {
				r = -vel.at(x, y, 0)
			}
			if y == 0 {
				b = -vel.at(x, y, 1)
			}
			if y == h-1 {
				t = -vel.at(x, y, 1)
			}
			out.data[y*w+x] = 0.5 * (r - l + t - b)
		}
	}
	return nil
}

// pressure runs one Jacobi relaxation iteration on the discrete Poisson
// equation: each cell becomes the average of its neighbors minus the local
// divergence. Edge neighbors clamp to the cell itself (Neumann boundary).
func (be *Backend) pressure(out *Buffer, args fluid.PassArgs) error {
	p, err := input(fluid.KernelPressure, "pressure", args.Pressure)
	if err != nil {
		return err
	}
	div, err := input(fluid.KernelPressure, "divergence", args.Divergence)
	if err != nil {
		return err
	}
	w, h := out.w, out.h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := p.at(x-1, y, 0) + p.at(x+1, y, 0) + p.at(x, y-1, 0) + p.at(x, y+1, 0)
			out.data[y*w+x] = (sum - div.data[y*w+x]) * 0.25
		}
	}
	return nil
}

// gradientSubtract projects the velocity field: subtracting the central-
// difference pressure gradient removes the divergent component. The 0.5
// factor matches the divergence stencil so the projection cancels exactly
// for smooth fields.
func (be *Backend) gradientSubtract(out *Buffer, args fluid.PassArgs) error {
	vel, err := input(fluid.KernelGradientSubtract, "velocity", args.Velocity)
	if err != nil {
		return err
	}
	p, err := input(fluid.KernelGradientSubtract, "pressure", args.Pressure)
	if err != nil {
		return err
	}
	idx := 0
	for y := 0; y < out.h; y++ {
		for x := 0; x < out.w; x++ {
			gx := 0.5 * (p.at(x+1, y, 0) - p.at(x-1, y, 0))
			gy := 0.5 * (p.at(x, y+1, 0) - p.at(x, y-1, 0))
			out.data[idx] = vel.at(x, y, 0) - gx
			out.data[idx+1] = vel.at(x, y, 1) - gy
			idx += 2
		}
	}
	return nil
}

// splat adds a radial exponential impulse around a normalized point. The
// falloff exp(-d²/r) leaves the field essentially untouched a few radii out.
func (be *Backend) splat(out *Buffer, args fluid.PassArgs) error {
	src, err := input(fluid.KernelSplat, "source", args.Source)
	if err != nil {
		return err
	}
	if len(src.data) != len(out.data) {
		return fmt.Errorf("cpu: %s pass: source is %dx%dx%d, target is %dx%dx%d",
			fluid.KernelSplat, src.w, src.h, src.comps, out.w, out.h, out.comps)
	}
	px, py := args.Point[0], args.Point[1]
	radius := args.Radius
	aspect := args.Aspect
	if aspect == 0 {
		aspect = 1
	}

	idx := 0
	for y := 0; y < out.h; y++ {
		v := (float32(y) + 0.5) / float32(out.h)
		for x := 0; x < out.w; x++ {
			u := (float32(x) + 0.5) / float32(out.w)
			dx := (u - px) * aspect
			dy := v - py
			fall := float32(math.Exp(float64(-(dx*dx + dy*dy) / radius)))

			for c := 0; c < out.comps; c++ {
				add := float32(0)
				if c < 3 {
					add = fall * args.Force[c]
				}
				out.data[idx+c] = src.data[idx+c] + add
			}
			idx += out.comps
		}
	}
	return nil
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
