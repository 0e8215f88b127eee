// Package renderer executes the simulation passes as fragment shaders over
// raylib render textures and composites the dye field to the screen.
package renderer

import (
	"fmt"
	"path/filepath"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ripple/fluid"
)

// Render textures are 8-bit RGBA, so field values are stored in a fixed-point
// encoding: buffers with one or two components pack each value into a 16-bit
// pair of channels over [-fieldRange/2, fieldRange/2], and the three-component
// dye stores each channel directly scaled by 1/dyeScale. The shaders decode
// on read and encode on write, and sample with a manual bilinear tap because
// hardware filtering would interpolate the packed bytes.
const (
	fieldRange = 300.0
	dyeScale   = 2.0
)

// Encoded zero for the 16-bit packed channels: 32767 = 127*256 + 255.
var (
	clearPacked2 = rl.Color{R: 127, G: 255, B: 127, A: 255}
	clearPacked1 = rl.Color{R: 127, G: 255, B: 0, A: 255}
	clearDye     = rl.Color{R: 0, G: 0, B: 0, A: 255}
)

// fieldTexture is one simulation field stored in a render texture.
type fieldTexture struct {
	rt      rl.RenderTexture2D
	w, h    int
	comps   int
	deleted bool
}

func (t *fieldTexture) Width() int  { return t.w }
func (t *fieldTexture) Height() int { return t.h }

func (t *fieldTexture) Texel() (float32, float32) {
	return 1 / float32(t.w), 1 / float32(t.h)
}

// passShader is one loaded kernel program with its uniform locations.
type passShader struct {
	shader rl.Shader
	locs   map[string]int32
}

func (p *passShader) loc(name string) int32 {
	l, ok := p.locs[name]
	if !ok {
		l = rl.GetShaderLocation(p.shader, name)
		p.locs[name] = l
	}
	return l
}

func (p *passShader) setFloat(name string, v float32) {
	rl.SetShaderValue(p.shader, p.loc(name), []float32{v}, rl.ShaderUniformFloat)
}

func (p *passShader) setVec2(name string, x, y float32) {
	rl.SetShaderValue(p.shader, p.loc(name), []float32{x, y}, rl.ShaderUniformVec2)
}

func (p *passShader) setVec3(name string, x, y, z float32) {
	rl.SetShaderValue(p.shader, p.loc(name), []float32{x, y, z}, rl.ShaderUniformVec3)
}

func (p *passShader) setTexture(name string, t *fieldTexture) {
	rl.SetShaderValueTexture(p.shader, p.loc(name), t.rt.Texture)
}

// Backend runs simulation kernels as shader passes. It must be created after
// the raylib window, and all calls must come from the render thread.
type Backend struct {
	shaders map[fluid.Kernel]*passShader
	live    map[*fieldTexture]struct{}
}

// shaderDir is the on-disk location of the kernel fragment shaders, relative
// to the working directory like the rest of the assets.
const shaderDir = "shaders"

// NewBackend loads the kernel shaders and prepares the pass executor.
func NewBackend() (*Backend, error) {
	b := &Backend{
		shaders: make(map[fluid.Kernel]*passShader),
		live:    make(map[*fieldTexture]struct{}),
	}

	kernels := []fluid.Kernel{
		fluid.KernelClear,
		fluid.KernelAdvect,
		fluid.KernelCurl,
		fluid.KernelVorticity,
		fluid.KernelDivergence,
		fluid.KernelPressure,
		fluid.KernelGradientSubtract,
		fluid.KernelSplat,
	}
	for _, k := range kernels {
		path := filepath.Join(shaderDir, k.String()+".fs")
		shader := rl.LoadShader("", path)
		if !rl.IsShaderValid(shader) {
			b.unloadShaders()
			return nil, fmt.Errorf("renderer: loading %s: shader did not compile", path)
		}
		b.shaders[k] = &passShader{shader: shader, locs: make(map[string]int32)}
	}
	return b, nil
}

func (b *Backend) unloadShaders() {
	for _, ps := range b.shaders {
		rl.UnloadShader(ps.shader)
	}
}

// Unload releases all shaders and any buffers still alive.
func (b *Backend) Unload() {
	b.unloadShaders()
	for t := range b.live {
		rl.UnloadRenderTexture(t.rt)
		t.deleted = true
	}
	b.live = make(map[*fieldTexture]struct{})
}

// FloatTexturesSupported reports false: passes run on 8-bit render textures
// with the fixed-point encoding, which is the half-precision fallback path.
func (b *Backend) FloatTexturesSupported() bool { return false }

// CreateBuffer allocates a render texture cleared to the encoded zero value.
// The filter argument is accepted for interface compatibility but sampling is
// always point-filtered; the shaders interpolate decoded values themselves.
func (b *Backend) CreateBuffer(w, h, comps int, format fluid.Format, filter fluid.Filter) (fluid.Buffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("renderer: invalid buffer size %dx%d", w, h)
	}
	if comps < 1 || comps > 3 {
		return nil, fmt.Errorf("renderer: unsupported component count %d", comps)
	}

	rt := rl.LoadRenderTexture(int32(w), int32(h))
	if rt.ID == 0 {
		return nil, fmt.Errorf("renderer: allocating %dx%d render texture failed", w, h)
	}
	// Packed buffers must never be hardware-filtered: interpolating the
	// high/low bytes produces garbage. The direct-encoded dye is linear in
	// its bytes, so it keeps the requested filter for smooth display scaling.
	if comps == 3 && filter == fluid.FilterLinear {
		rl.SetTextureFilter(rt.Texture, rl.FilterBilinear)
	} else {
		rl.SetTextureFilter(rt.Texture, rl.FilterPoint)
	}
	rl.SetTextureWrap(rt.Texture, rl.WrapClamp)

	t := &fieldTexture{rt: rt, w: w, h: h, comps: comps}
	rl.BeginTextureMode(rt)
	rl.ClearBackground(t.clearColor())
	rl.EndTextureMode()

	b.live[t] = struct{}{}
	return t, nil
}

func (t *fieldTexture) clearColor() rl.Color {
	switch t.comps {
	case 1:
		return clearPacked1
	case 2:
		return clearPacked2
	default:
		return clearDye
	}
}

// DeleteBuffer releases the render texture. Double deletion is a no-op.
func (b *Backend) DeleteBuffer(buf fluid.Buffer) {
	t, ok := buf.(*fieldTexture)
	if !ok || t.deleted {
		return
	}
	t.deleted = true
	delete(b.live, t)
	rl.UnloadRenderTexture(t.rt)
}

// Run executes one kernel into the target render texture.
func (b *Backend) Run(k fluid.Kernel, target fluid.Buffer, args fluid.PassArgs) error {
	out, ok := target.(*fieldTexture)
	if !ok {
		return fmt.Errorf("renderer: %s target is not a render texture buffer", k)
	}
	if out.deleted {
		return fmt.Errorf("renderer: %s target was deleted", k)
	}
	for _, in := range []fluid.Buffer{args.Velocity, args.Source, args.Curl, args.Divergence, args.Pressure} {
		if in == target {
			return fmt.Errorf("renderer: %s target aliases an input buffer", k)
		}
	}
	ps, ok := b.shaders[k]
	if !ok {
		return fmt.Errorf("renderer: unknown kernel %d", int(k))
	}

	rl.BeginTextureMode(out.rt)
	rl.BeginShaderMode(ps.shader)

	tx, ty := out.Texel()
	ps.setVec2("texelSize", tx, ty)
	// Advect and splat run against both the packed velocity field and the
	// direct-encoded dye, so they select the codec by component count.
	ps.setFloat("uComps", float32(out.comps))

	if err := b.bindKernelArgs(k, ps, out, args); err != nil {
		rl.EndShaderMode()
		rl.EndTextureMode()
		return err
	}

	rl.DrawRectangle(0, 0, int32(out.w), int32(out.h), rl.White)
	rl.EndShaderMode()
	rl.EndTextureMode()
	return nil
}

// bindKernelArgs sets the per-kernel uniforms and samplers.
func (b *Backend) bindKernelArgs(k fluid.Kernel, ps *passShader, out *fieldTexture, args fluid.PassArgs) error {
	in := func(name string, buf fluid.Buffer) (*fieldTexture, error) {
		t, ok := buf.(*fieldTexture)
		if !ok || t == nil {
			return nil, fmt.Errorf("renderer: %s requires a live %s buffer", k, name)
		}
		if t.deleted {
			return nil, fmt.Errorf("renderer: %s %s buffer was deleted", k, name)
		}
		return t, nil
	}

	switch k {
	case fluid.KernelClear:
		src, err := in("source", args.Source)
		if err != nil {
			return err
		}
		ps.setTexture("uSource", src)
		ps.setFloat("uClearFactor", args.ClearFactor)

	case fluid.KernelAdvect:
		vel, err := in("velocity", args.Velocity)
		if err != nil {
			return err
		}
		src, err := in("source", args.Source)
		if err != nil {
			return err
		}
		vtx, vty := vel.Texel()
		stx, sty := src.Texel()
		ps.setTexture("uVelocity", vel)
		ps.setTexture("uSource", src)
		ps.setVec2("velTexelSize", vtx, vty)
		ps.setVec2("srcTexelSize", stx, sty)
		ps.setFloat("uDT", args.DT)
		ps.setFloat("uDissipation", args.Dissipation)

	case fluid.KernelCurl:
		vel, err := in("velocity", args.Velocity)
		if err != nil {
			return err
		}
		ps.setTexture("uVelocity", vel)

	case fluid.KernelVorticity:
		vel, err := in("velocity", args.Velocity)
		if err != nil {
			return err
		}
		crl, err := in("curl", args.Curl)
		if err != nil {
			return err
		}
		ps.setTexture("uVelocity", vel)
		ps.setTexture("uCurl", crl)
		ps.setFloat("uCurlStrength", args.CurlStrength)
		ps.setFloat("uDT", args.DT)

	case fluid.KernelDivergence:
		vel, err := in("velocity", args.Velocity)
		if err != nil {
			return err
		}
		ps.setTexture("uVelocity", vel)

	case fluid.KernelPressure:
		p, err := in("pressure", args.Pressure)
		if err != nil {
			return err
		}
		div, err := in("divergence", args.Divergence)
		if err != nil {
			return err
		}
		ps.setTexture("uPressure", p)
		ps.setTexture("uDivergence", div)

	case fluid.KernelGradientSubtract:
		vel, err := in("velocity", args.Velocity)
		if err != nil {
			return err
		}
		p, err := in("pressure", args.Pressure)
		if err != nil {
			return err
		}
		ps.setTexture("uVelocity", vel)
		ps.setTexture("uPressure", p)

	case fluid.KernelSplat:
		src, err := in("source", args.Source)
		if err != nil {
			return err
		}
		aspect := args.Aspect
		if aspect == 0 {
			aspect = 1
		}
		ps.setTexture("uSource", src)
		ps.setVec2("uPoint", args.Point[0], args.Point[1])
		ps.setVec3("uForce", args.Force[0], args.Force[1], args.Force[2])
		ps.setFloat("uRadius", args.Radius)
		ps.setFloat("uAspect", aspect)

	default:
		return fmt.Errorf("renderer: unknown kernel %d", int(k))
	}
	return nil
}
