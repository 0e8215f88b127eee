package fluid

// Kernel identifies one of the fixed simulation programs. A backend maps each
// kernel to whatever it executes passes with - a fragment shader, a compute
// dispatch, or a plain CPU loop.
type Kernel int

const (
	KernelClear Kernel = iota
	KernelAdvect
	KernelCurl
	KernelVorticity
	KernelDivergence
	KernelPressure
	KernelGradientSubtract
	KernelSplat
)

var kernelNames = [...]string{
	"clear",
	"advect",
	"curl",
	"vorticity",
	"divergence",
	"pressure",
	"gradient_subtract",
	"splat",
}

func (k Kernel) String() string {
	if k < 0 || int(k) >= len(kernelNames) {
		return "unknown"
	}
	return kernelNames[k]
}

// PassArgs carries the input bindings and scalar uniforms for one pass.
// Only the fields a kernel documents are read; the rest are ignored.
type PassArgs struct {
	// Input buffer slots. A kernel samples these with bilinear interpolation
	// in normalized coordinates, so inputs may be sized differently from the
	// pass target (the dye advection samples the coarser velocity grid).
	Velocity   Buffer
	Source     Buffer
	Curl       Buffer
	Divergence Buffer
	Pressure   Buffer

	DT           float32
	Dissipation  float32    // advect: per-frame decay factor
	CurlStrength float32    // vorticity: confinement force scale
	ClearFactor  float32    // clear: multiplier applied to Source
	Point        [2]float32 // splat: center in normalized coordinates
	Force        [3]float32 // splat: velocity impulse (x,y,_) or dye color (r,g,b)
	Radius       float32    // splat: normalized falloff radius
	Aspect       float32    // splat: width/height correction
}

// Backend executes simulation kernels against 2D field buffers. The
// simulation core issues every pass through this interface and never touches
// a graphics API directly, which keeps the solver portable across render
// backends and testable on the CPU.
type Backend interface {
	// CreateBuffer allocates a zero-initialized buffer with the given grid
	// size, component count and sampling filter. A failed allocation is
	// reported to the caller; the backend must not hand back a half-made
	// buffer.
	CreateBuffer(w, h, comps int, format Format, filter Filter) (Buffer, error)

	// DeleteBuffer releases the buffer's texture and render target memory.
	// Deleting an already-deleted buffer is a no-op.
	DeleteBuffer(b Buffer)

	// Run executes one kernel over the target buffer. The target must never
	// appear among the input slots of args; double buffering guarantees this.
	Run(k Kernel, target Buffer, args PassArgs) error

	// FloatTexturesSupported reports whether the backend can allocate full
	// floating-point field buffers. When false the simulation requests
	// FormatHalf and accepts the reduced precision.
	FloatTexturesSupported() bool
}
