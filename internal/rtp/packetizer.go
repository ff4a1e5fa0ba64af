package rtp

import (
	"math/rand"

	"github.com/aes67bridge/core/internal/audiopipe"
)

// Kind distinguishes the two packetizer flavors this bridge produces.
// They differ only in sample width, scale factor and payload type, so a
// tagged variant is a better fit than separate polymorphic types.
type Kind int

const (
	// KindL24 is AES67's 24-bit signed big-endian PCM, dynamic payload
	// type 98.
	KindL24 Kind = iota
	// KindL16 is the 16-bit monitor flow, static payload type 11.
	KindL16
)

const (
	payloadTypeL24 = 98
	payloadTypeL16 = 11

	scaleL24Pos = 1<<23 - 1
	scaleL24Neg = 1 << 23
	scaleL16Pos = 1<<15 - 1
	scaleL16Neg = 1 << 15

	bytesPerSampleL24 = 3
	bytesPerSampleL16 = 2
)

// Packetizer produces RTP packets for one flow (L24 or L16) from
// AudioChunks. Sequence number and timestamp are frozen for the life of
// the Packetizer; construct a new one on every Slot Engine start.
type Packetizer struct {
	kind    Kind
	ssrc    uint32
	seq     uint16
	ts      uint32
	payload byte
	bytes   int
}

// New creates a Packetizer with randomly-seeded sequence number and
// timestamp, per RFC 3550's recommendation that both start unpredictable.
func New(kind Kind, ssrc uint32) *Packetizer {
	p := &Packetizer{
		kind: kind,
		ssrc: ssrc,
		seq:  uint16(rand.Uint32()),
		ts:   rand.Uint32(),
	}
	switch kind {
	case KindL24:
		p.payload = payloadTypeL24
		p.bytes = bytesPerSampleL24
	case KindL16:
		p.payload = payloadTypeL16
		p.bytes = bytesPerSampleL16
	}
	return p
}

// PacketSize returns the total RTP packet size (header + payload) this
// Packetizer produces, useful for pre-sizing send buffers.
func (p *Packetizer) PacketSize() int {
	return headerSize + audiopipe.SamplesPerChunk*audiopipe.TargetChannels*p.bytes
}

// Packetize serializes chunk into a new RTP packet and advances the
// sequence number by 1 (mod 2^16) and the timestamp by
// audiopipe.SamplesPerChunk (mod 2^32).
func (p *Packetizer) Packetize(chunk *audiopipe.Chunk) []byte {
	buf := make([]byte, p.PacketSize())
	writeHeader(buf, p.payload, p.seq, p.ts, p.ssrc)

	payload := buf[headerSize:]
	switch p.kind {
	case KindL24:
		encodeL24(payload, chunk.Samples[:])
	case KindL16:
		encodeL16(payload, chunk.Samples[:])
	}

	p.seq++
	p.ts += audiopipe.SamplesPerChunk

	return buf
}

// Seq returns the next sequence number to be used, for diagnostics/tests.
func (p *Packetizer) Seq() uint16 { return p.seq }

// Timestamp returns the next RTP timestamp to be used, for diagnostics/tests.
func (p *Packetizer) Timestamp() uint32 { return p.ts }

func encodeL24(dst []byte, samples []float32) {
	for i, s := range samples {
		v := clampScale(s, scaleL24Pos, scaleL24Neg)
		o := i * 3
		dst[o] = byte(v >> 16)
		dst[o+1] = byte(v >> 8)
		dst[o+2] = byte(v)
	}
}

func encodeL16(dst []byte, samples []float32) {
	for i, s := range samples {
		v := clampScale(s, scaleL16Pos, scaleL16Neg)
		o := i * 2
		dst[o] = byte(v >> 8)
		dst[o+1] = byte(v)
	}
}

// clampScale clamps x to [-1.0, 1.0] and scales it to an integer sample.
// The positive and negative halves of the range use different scale
// factors (posScale = 2^(n-1)-1, negScale = 2^(n-1)) so
// that -1.0 maps exactly onto the most negative representable value,
// matching the asymmetric full-scale convention AES67 receivers expect.
// NaN encodes as 0.
func clampScale(x float32, posScale, negScale int32) int32 {
	if x != x { // NaN
		return 0
	}
	if x > 1.0 {
		x = 1.0
	} else if x < -1.0 {
		x = -1.0
	}
	if x >= 0 {
		return int32(float64(x)*float64(posScale) + 0.5)
	}
	return int32(float64(x)*float64(negScale) - 0.5)
}
