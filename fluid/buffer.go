package fluid

// Format selects the numeric storage precision of a field buffer. Backends
// that cannot allocate full floating-point textures fall back to FormatHalf;
// the choice affects visual smoothness only, never the pass ordering.
type Format int

const (
	FormatFloat Format = iota
	FormatHalf
)

// Filter selects the sampling mode used when a kernel reads a buffer.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

// Buffer is one simulation field texture together with its off-screen render
// target. Buffers are created and destroyed only by a Backend; the simulation
// owns them exclusively and external code may read but never write them.
type Buffer interface {
	Width() int
	Height() int
	// Texel returns the size of one grid cell in normalized [0,1] coordinates.
	Texel() (float32, float32)
}

// DoubleBuffer is a read/write pair of field buffers. Every pass reads the
// stable Read side and writes the Write side; Swap exchanges the two
// references in constant time without moving any data. Read and Write are
// never the same buffer.
type DoubleBuffer struct {
	Read  Buffer
	Write Buffer
}

// Swap exchanges the read and write buffers. After a swap the buffer that was
// just written becomes the new read source.
func (d *DoubleBuffer) Swap() {
	d.Read, d.Write = d.Write, d.Read
}

// BufferData returns the raw float32 grid of a buffer when its backend
// exposes one (the CPU backend does; GPU backends require a readback
// instead). Returns nil otherwise.
func BufferData(b Buffer) []float32 {
	if r, ok := b.(interface{ Data() []float32 }); ok {
		return r.Data()
	}
	return nil
}
