package rtp

import (
	"math"
	"testing"

	"github.com/aes67bridge/core/internal/audiopipe"
)

func decode24(b []byte) int32 {
	v := int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
	if b[0]&0x80 != 0 {
		v |= -1 << 24 // sign-extend the 24-bit value into int32
	}
	return v
}

func decode16(b []byte) int16 {
	return int16(b[0])<<8 | int16(b[1])
}

func TestPacketizeL24Sizes(t *testing.T) {
	t.Parallel()

	p := New(KindL24, 0x1)
	var chunk audiopipe.Chunk
	pkt := p.Packetize(&chunk)

	if p.PacketSize() != 300 {
		t.Errorf("PacketSize: got %d, want 300", p.PacketSize())
	}
	if len(pkt) != 300 {
		t.Errorf("packet length: got %d, want 300", len(pkt))
	}
	if len(pkt)-headerSize != 288 {
		t.Errorf("payload length: got %d, want 288", len(pkt)-headerSize)
	}
}

func TestPacketizeL16Sizes(t *testing.T) {
	t.Parallel()

	p := New(KindL16, 0x1)
	var chunk audiopipe.Chunk
	pkt := p.Packetize(&chunk)

	if p.PacketSize() != 204 {
		t.Errorf("PacketSize: got %d, want 204", p.PacketSize())
	}
	if len(pkt) != 204 {
		t.Errorf("packet length: got %d, want 204", len(pkt))
	}
	if len(pkt)-headerSize != 192 {
		t.Errorf("payload length: got %d, want 192", len(pkt)-headerSize)
	}
}

func TestClampScaleFullScaleValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		x    float32
		want int32
	}{
		{"positive overrange clamps to max", 2.0, 0x7FFFFF},
		{"negative overrange clamps to min", -2.0, -0x800000},
		{"zero", 0.0, 0},
		{"exact positive full scale", 1.0, 0x7FFFFF},
		{"exact negative full scale", -1.0, -0x800000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := clampScale(tc.x, scaleL24Pos, scaleL24Neg)
			if got != tc.want {
				t.Errorf("clampScale(%v): got %#x, want %#x", tc.x, got, tc.want)
			}
		})
	}
}

func TestEncodeL24BitPatterns(t *testing.T) {
	t.Parallel()

	samples := []float32{2.0, -2.0, 0.0}
	dst := make([]byte, len(samples)*3)
	encodeL24(dst, samples)

	want := [][3]byte{
		{0x7F, 0xFF, 0xFF},
		{0x80, 0x00, 0x00},
		{0x00, 0x00, 0x00},
	}
	for i, w := range want {
		got := [3]byte{dst[i*3], dst[i*3+1], dst[i*3+2]}
		if got != w {
			t.Errorf("sample %d (%v): got %#02x, want %#02x", i, samples[i], got, w)
		}
	}
}

func TestEncodeL24RoundTripAccuracy(t *testing.T) {
	t.Parallel()

	const epsilon = 1.0 / (1 << 23)
	samples := []float32{0.5, -0.5, 0.999, -0.999, 0.1234, -0.75}
	dst := make([]byte, len(samples)*3)
	encodeL24(dst, samples)

	for i, s := range samples {
		v := decode24(dst[i*3 : i*3+3])
		var decoded float64
		if v >= 0 {
			decoded = float64(v) / float64(scaleL24Pos)
		} else {
			decoded = float64(v) / float64(scaleL24Neg)
		}
		if diff := math.Abs(decoded - float64(s)); diff > epsilon {
			t.Errorf("sample %d: decoded %v from %v, diff %v exceeds %v", i, decoded, s, diff, epsilon)
		}
	}
}

func TestEncodeL16RoundTripAccuracy(t *testing.T) {
	t.Parallel()

	const epsilon = 1.0 / (1 << 15)
	samples := []float32{0.5, -0.5, 0.999, -0.999, 0.1234, -0.75}
	dst := make([]byte, len(samples)*2)
	encodeL16(dst, samples)

	for i, s := range samples {
		v := decode16(dst[i*2 : i*2+2])
		var decoded float64
		if v >= 0 {
			decoded = float64(v) / float64(scaleL16Pos)
		} else {
			decoded = float64(v) / float64(scaleL16Neg)
		}
		if diff := math.Abs(decoded - float64(s)); diff > epsilon {
			t.Errorf("sample %d: decoded %v from %v, diff %v exceeds %v", i, decoded, s, diff, epsilon)
		}
	}
}

func TestPacketizeSequenceAndTimestampAdvance(t *testing.T) {
	t.Parallel()

	p := New(KindL24, 0x42)
	startSeq := p.Seq()
	startTS := p.Timestamp()

	var chunk audiopipe.Chunk
	const n = 5
	for i := 0; i < n; i++ {
		p.Packetize(&chunk)
	}

	if got, want := p.Seq(), startSeq+n; got != want {
		t.Errorf("seq after %d packets: got %d, want %d", n, got, want)
	}
	if got, want := p.Timestamp(), startTS+n*uint32(audiopipe.SamplesPerChunk); got != want {
		t.Errorf("timestamp after %d packets: got %d, want %d", n, got, want)
	}
}

func TestPacketizeSequenceWraps(t *testing.T) {
	t.Parallel()

	p := &Packetizer{kind: KindL24, payload: payloadTypeL24, bytes: bytesPerSampleL24, seq: math.MaxUint16}
	var chunk audiopipe.Chunk
	p.Packetize(&chunk)
	if p.Seq() != 0 {
		t.Errorf("seq after wraparound: got %d, want 0", p.Seq())
	}
}

func TestPacketizeTimestampWraps(t *testing.T) {
	t.Parallel()

	p := &Packetizer{kind: KindL24, payload: payloadTypeL24, bytes: bytesPerSampleL24, ts: math.MaxUint32}
	var chunk audiopipe.Chunk
	p.Packetize(&chunk)
	want := uint32(audiopipe.SamplesPerChunk - 1)
	if p.Timestamp() != want {
		t.Errorf("timestamp after wraparound: got %d, want %d", p.Timestamp(), want)
	}
}

func TestPacketizeUsesCorrectPayloadType(t *testing.T) {
	t.Parallel()

	var chunk audiopipe.Chunk

	pL24 := New(KindL24, 1)
	if got := pL24.Packetize(&chunk)[1]; got != payloadTypeL24 {
		t.Errorf("L24 payload type byte: got %d, want %d", got, payloadTypeL24)
	}

	pL16 := New(KindL16, 1)
	if got := pL16.Packetize(&chunk)[1]; got != payloadTypeL16 {
		t.Errorf("L16 payload type byte: got %d, want %d", got, payloadTypeL16)
	}
}
