// Package audiopipe validates incoming NDI audio frames against the
// bridge's fixed target format and repacks them into fixed-size stereo
// chunks at the AES67 packet cadence.
package audiopipe

// SamplesPerChunk is the number of stereo sample-pairs in one AudioChunk:
// 48 samples at 48kHz is exactly 1ms, the AES67 packet cadence.
const SamplesPerChunk = 48

// TargetSampleRate and TargetChannels are the only format this bridge
// accepts; see Gate.
const (
	TargetSampleRate = 48000
	TargetChannels   = 2
)

// Chunk holds SamplesPerChunk stereo samples, interleaved left/right,
// ready for packetization. Repacker.Push returns Chunks by value, copied
// out of its residual buffer, so a Chunk stays valid after later Pushes.
type Chunk struct {
	Samples [SamplesPerChunk * TargetChannels]float32
}
