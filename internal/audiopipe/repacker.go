package audiopipe

// Layout mirrores ndi.Layout without creating a dependency on the ndi
// package, so this package can be tested in isolation from cgo.
type Layout int

const (
	Interleaved Layout = iota
	Planar
)

// Frame is one arbitrarily-sized block of stereo float32 audio handed to
// the Repacker. Samples is the sample count per channel; for Planar
// layout, Stride is the number of float32s per channel in Data (which
// may exceed Samples).
type Frame struct {
	Samples int
	Stride  int
	Layout  Layout
	Data    []float32
}

// Repacker converts arbitrarily-sized stereo frames into a continuous
// interleaved sample stream and hands out fixed-size Chunks of exactly
// SamplesPerChunk stereo samples. It holds a residual buffer of fewer
// than SamplesPerChunk stereo samples across frame boundaries.
type Repacker struct {
	residual []float32 // interleaved stereo; len always < 2*SamplesPerChunk
}

// NewRepacker creates an empty Repacker.
func NewRepacker() *Repacker {
	return &Repacker{residual: make([]float32, 0, 2*SamplesPerChunk)}
}

// Residual returns the number of buffered stereo sample-pairs, always
// in [0, SamplesPerChunk). Exposed for tests that assert the residual
// never grows unbounded.
func (r *Repacker) Residual() int {
	return len(r.residual) / 2
}

// Reset discards the residual buffer.
func (r *Repacker) Reset() {
	r.residual = r.residual[:0]
}

// Push interleaves f (assumed already gated to 2 channels) and appends
// it to the residual stream, returning every full Chunk that became
// available. Any leftover samples remain buffered for the next Push.
func (r *Repacker) Push(f Frame) []Chunk {
	r.residual = appendInterleaved(r.residual, f)

	var chunks []Chunk
	const chunkFloats = SamplesPerChunk * TargetChannels
	for len(r.residual) >= chunkFloats {
		var c Chunk
		copy(c.Samples[:], r.residual[:chunkFloats])
		chunks = append(chunks, c)
		r.residual = r.residual[chunkFloats:]
	}

	// Compact: the backing array only grows from the front being sliced
	// away, so copy the remainder down to avoid unbounded slice growth.
	if len(r.residual) > 0 {
		rem := make([]float32, len(r.residual), 2*SamplesPerChunk)
		copy(rem, r.residual)
		r.residual = rem
	} else {
		r.residual = r.residual[:0]
	}

	return chunks
}

func appendInterleaved(dst []float32, f Frame) []float32 {
	switch f.Layout {
	case Planar:
		stride := f.Stride
		if stride <= 0 {
			stride = f.Samples
		}
		left := f.Data[:min(stride, len(f.Data))]
		rightStart := stride
		rightEnd := stride + f.Samples
		if rightEnd > len(f.Data) {
			rightEnd = len(f.Data)
		}
		var right []float32
		if rightStart < len(f.Data) {
			right = f.Data[rightStart:rightEnd]
		}
		for i := 0; i < f.Samples; i++ {
			var l, rr float32
			if i < len(left) {
				l = left[i]
			}
			if i < len(right) {
				rr = right[i]
			}
			dst = append(dst, l, rr)
		}
	default: // Interleaved
		n := f.Samples * TargetChannels
		if n > len(f.Data) {
			n = len(f.Data)
		}
		dst = append(dst, f.Data[:n]...)
	}
	return dst
}
