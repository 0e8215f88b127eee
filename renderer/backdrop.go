package renderer

import (
	"path/filepath"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ripple/config"
	"github.com/pthm-cable/ripple/fluid"
)

// Backdrop composites the dye field to the screen, optionally running the
// bloom chain: bright-pass prefilter, separable blur ping-pong, additive
// combine over the scene.
type Backdrop struct {
	cfg *config.Config

	display   *passShader
	prefilter *passShader
	blur      *passShader

	scene  rl.RenderTexture2D
	bloomA rl.RenderTexture2D
	bloomB rl.RenderTexture2D

	width, height  int32
	bloomW, bloomH int32
}

// NewBackdrop creates the compositor. Must be called after the raylib window.
func NewBackdrop(width, height int32, cfg *config.Config) *Backdrop {
	b := &Backdrop{cfg: cfg}
	b.display = loadPassShader("display.fs")
	b.prefilter = loadPassShader("bloom_prefilter.fs")
	b.blur = loadPassShader("bloom_blur.fs")
	b.allocTargets(width, height)
	return b
}

func loadPassShader(name string) *passShader {
	shader := rl.LoadShader("", filepath.Join(shaderDir, name))
	return &passShader{shader: shader, locs: make(map[string]int32)}
}

func (b *Backdrop) allocTargets(width, height int32) {
	b.width, b.height = width, height

	b.scene = rl.LoadRenderTexture(width, height)
	rl.SetTextureFilter(b.scene.Texture, rl.FilterBilinear)

	// The blur chain runs at a fixed reduced resolution; the short screen
	// side maps to the configured bloom resolution.
	res := int32(b.cfg.Bloom.Resolution)
	if width >= height {
		b.bloomW = res * width / height
		b.bloomH = res
	} else {
		b.bloomW = res
		b.bloomH = res * height / width
	}
	b.bloomA = rl.LoadRenderTexture(b.bloomW, b.bloomH)
	b.bloomB = rl.LoadRenderTexture(b.bloomW, b.bloomH)
	rl.SetTextureFilter(b.bloomA.Texture, rl.FilterBilinear)
	rl.SetTextureFilter(b.bloomB.Texture, rl.FilterBilinear)
}

func (b *Backdrop) freeTargets() {
	rl.UnloadRenderTexture(b.scene)
	rl.UnloadRenderTexture(b.bloomA)
	rl.UnloadRenderTexture(b.bloomB)
}

// Resize recreates the screen-sized and bloom render targets.
func (b *Backdrop) Resize(width, height int32) {
	b.freeTargets()
	b.allocTargets(width, height)
}

// Draw renders the dye buffer to the screen.
func (b *Backdrop) Draw(dye fluid.Buffer) {
	tex, ok := dye.(*fieldTexture)
	if !ok || tex == nil {
		return
	}

	// Decode the dye into the scene target.
	rl.BeginTextureMode(b.scene)
	rl.ClearBackground(rl.Black)
	rl.BeginShaderMode(b.display.shader)
	b.display.setVec2("texelSize", 1/float32(b.width), 1/float32(b.height))
	b.display.setFloat("uDyeScale", dyeScale)
	b.display.setTexture("uDye", tex)
	rl.DrawRectangle(0, 0, b.width, b.height, rl.White)
	rl.EndShaderMode()
	rl.EndTextureMode()

	if b.cfg.Bloom.Enabled {
		b.runBloom()
	}

	// Render textures sample upside down; flip once at the screen.
	src := rl.Rectangle{X: 0, Y: 0, Width: float32(b.width), Height: -float32(b.height)}
	dst := rl.Rectangle{X: 0, Y: 0, Width: float32(b.width), Height: float32(b.height)}
	rl.DrawTexturePro(b.scene.Texture, src, dst, rl.Vector2{}, 0, rl.White)

	if b.cfg.Bloom.Enabled {
		intensity := b.cfg.Bloom.Intensity
		if intensity > 1 {
			intensity = 1
		}
		tint := uint8(255 * intensity)
		bsrc := rl.Rectangle{X: 0, Y: 0, Width: float32(b.bloomW), Height: -float32(b.bloomH)}
		rl.BeginBlendMode(rl.BlendAdditive)
		rl.DrawTexturePro(b.bloomA.Texture, bsrc, dst, rl.Vector2{}, 0,
			rl.Color{R: tint, G: tint, B: tint, A: 255})
		rl.EndBlendMode()
	}
}

// runBloom extracts bright regions from the scene and blurs them, leaving the
// result in bloomA.
func (b *Backdrop) runBloom() {
	threshold := float32(b.cfg.Bloom.Threshold)
	knee := threshold * float32(b.cfg.Bloom.SoftKnee) // soft transition width

	rl.BeginTextureMode(b.bloomA)
	rl.ClearBackground(rl.Black)
	rl.BeginShaderMode(b.prefilter.shader)
	b.prefilter.setVec2("texelSize", 1/float32(b.bloomW), 1/float32(b.bloomH))
	b.prefilter.setFloat("uThreshold", threshold)
	b.prefilter.setVec3("uCurve", threshold-knee, knee*2, 0.25/(knee+1e-5))
	rl.SetShaderValueTexture(b.prefilter.shader, b.prefilter.loc("uScene"), b.scene.Texture)
	rl.DrawRectangle(0, 0, b.bloomW, b.bloomH, rl.White)
	rl.EndShaderMode()
	rl.EndTextureMode()

	// Separable blur: alternate horizontal and vertical passes between the
	// two bloom targets. An even iteration count lands back in bloomA.
	iterations := b.cfg.Bloom.Iterations
	if iterations%2 != 0 {
		iterations++
	}
	src, dst := &b.bloomA, &b.bloomB
	for i := 0; i < iterations; i++ {
		var dirX, dirY float32
		if i%2 == 0 {
			dirX = 1 / float32(b.bloomW)
		} else {
			dirY = 1 / float32(b.bloomH)
		}

		rl.BeginTextureMode(*dst)
		rl.BeginShaderMode(b.blur.shader)
		b.blur.setVec2("texelSize", 1/float32(b.bloomW), 1/float32(b.bloomH))
		b.blur.setVec2("uDirection", dirX, dirY)
		rl.SetShaderValueTexture(b.blur.shader, b.blur.loc("uSource"), src.Texture)
		rl.DrawRectangle(0, 0, b.bloomW, b.bloomH, rl.White)
		rl.EndShaderMode()
		rl.EndTextureMode()

		src, dst = dst, src
	}
}

// Unload releases all GPU resources.
func (b *Backdrop) Unload() {
	rl.UnloadShader(b.display.shader)
	rl.UnloadShader(b.prefilter.shader)
	rl.UnloadShader(b.blur.shader)
	b.freeTargets()
}
