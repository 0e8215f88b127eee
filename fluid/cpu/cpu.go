// Package cpu provides a pure-Go reference backend for the fluid simulation.
// Every kernel is implemented with the same finite-difference formulas the
// GPU shaders use, over plain float32 grids. It backs headless runs and all
// solver tests.
package cpu

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/ripple/fluid"
)

// ErrAllocFailed is returned when buffer allocation is rejected.
var ErrAllocFailed = errors.New("cpu: buffer allocation failed")

// Buffer is a CPU field buffer: one float32 grid with interleaved components.
type Buffer struct {
	w, h, comps int
	filter      fluid.Filter
	data        []float32
}

// Width returns the grid width.
func (b *Buffer) Width() int { return b.w }

// Height returns the grid height.
func (b *Buffer) Height() int { return b.h }

// Texel returns one cell's size in normalized coordinates.
func (b *Buffer) Texel() (float32, float32) {
	return 1 / float32(b.w), 1 / float32(b.h)
}

// Comps returns the number of components per cell.
func (b *Buffer) Comps() int { return b.comps }

// Data returns the raw interleaved grid. Callers must treat it as read-only;
// only kernels write field buffers.
func (b *Buffer) Data() []float32 { return b.data }

// at reads one component with clamp-to-edge addressing.
func (b *Buffer) at(x, y, c int) float32 {
	if x < 0 {
		x = 0
	} else if x >= b.w {
		x = b.w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= b.h {
		y = b.h - 1
	}
	return b.data[(y*b.w+x)*b.comps+c]
}

// sample reads one component at normalized coordinates with bilinear
// filtering over cell centers, clamped at the edges. Buffers created with
// FilterNearest snap to the containing cell instead.
func (b *Buffer) sample(u, v float32, c int) float32 {
	fx := u*float32(b.w) - 0.5
	fy := v*float32(b.h) - 0.5

	if b.filter == fluid.FilterNearest {
		return b.at(int(fx+0.5), int(fy+0.5), c)
	}

	x0 := floorInt(fx)
	y0 := floorInt(fy)
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	v00 := b.at(x0, y0, c)
	v10 := b.at(x0+1, y0, c)
	v01 := b.at(x0, y0+1, c)
	v11 := b.at(x0+1, y0+1, c)

	top := v00 + (v10-v00)*tx
	bot := v01 + (v11-v01)*tx
	return top + (bot-top)*ty
}

func floorInt(f float32) int {
	i := int(f)
	if f < 0 && float32(i) != f {
		i--
	}
	return i
}

// Backend executes fluid kernels on the CPU. It tracks live buffers so tests
// can assert that resize and dispose leak nothing.
type Backend struct {
	live map[*Buffer]struct{}

	// FailCreates makes the next N CreateBuffer calls fail. Test hook for
	// the allocation-failure path.
	FailCreates int
}

// New creates a CPU backend.
func New() *Backend {
	return &Backend{live: make(map[*Buffer]struct{})}
}

// FloatTexturesSupported always reports true; CPU grids are full float32.
func (be *Backend) FloatTexturesSupported() bool { return true }

// LiveBuffers returns the number of currently allocated buffers.
func (be *Backend) LiveBuffers() int { return len(be.live) }

// CreateBuffer allocates a zero-initialized grid.
func (be *Backend) CreateBuffer(w, h, comps int, format fluid.Format, filter fluid.Filter) (fluid.Buffer, error) {
	if be.FailCreates > 0 {
		be.FailCreates--
		return nil, ErrAllocFailed
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("cpu: buffer dimensions must be positive, got %dx%d", w, h)
	}
	if comps < 1 || comps > 4 {
		return nil, fmt.Errorf("cpu: component count must be 1-4, got %d", comps)
	}
	buf := &Buffer{
		w: w, h: h, comps: comps,
		filter: filter,
		data:   make([]float32, w*h*comps),
	}
	be.live[buf] = struct{}{}
	return buf, nil
}

// DeleteBuffer releases a buffer. Deleting twice, or deleting nil, is a no-op.
func (be *Backend) DeleteBuffer(b fluid.Buffer) {
	buf, ok := b.(*Buffer)
	if !ok {
		return
	}
	delete(be.live, buf)
}

// Run executes one kernel over the target grid.
func (be *Backend) Run(k fluid.Kernel, target fluid.Buffer, args fluid.PassArgs) error {
	out, ok := target.(*Buffer)
	if !ok || out == nil {
		return fmt.Errorf("cpu: %s pass: target is not a cpu buffer", k)
	}
	if _, live := be.live[out]; !live {
		return fmt.Errorf("cpu: %s pass: target buffer already deleted", k)
	}
	for _, in := range []fluid.Buffer{args.Velocity, args.Source, args.Curl, args.Divergence, args.Pressure} {
		if in == target {
			return fmt.Errorf("cpu: %s pass: target aliases an input buffer", k)
		}
	}

	switch k {
	case fluid.KernelClear:
		return be.clear(out, args)
	case fluid.KernelAdvect:
		return be.advect(out, args)
	case fluid.KernelCurl:
		return be.curl(out, args)
	case fluid.KernelVorticity:
		return be.vorticity(out, args)
	case fluid.KernelDivergence:
		return be.divergence(out, args)
	case fluid.KernelPressure:
		return be.pressure(out, args)
	case fluid.KernelGradientSubtract:
		return be.gradientSubtract(out, args)
	case fluid.KernelSplat:
		return be.splat(out, args)
	default:
		return fmt.Errorf("cpu: unknown kernel %d", int(k))
	}
}

func input(k fluid.Kernel, slot string, b fluid.Buffer) (*Buffer, error) {
	buf, ok := b.(*Buffer)
	if !ok || buf == nil {
		return nil, fmt.Errorf("cpu: %s pass: missing %s input", k, slot)
	}
	return buf, nil
}
