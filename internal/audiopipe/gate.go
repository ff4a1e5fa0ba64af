package audiopipe

import "fmt"

// Gate validates that every frame's format matches the bridge's fixed
// target (48000Hz, 2ch) before it reaches the Repacker. It remembers the
// parameters of the first frame it saw and re-checks on every call, so a
// mid-stream format change is caught just as reliably as a bad first
// frame.
type Gate struct {
	seen       bool
	sampleRate int
	channels   int
}

// Check validates sampleRate/channels against the target format, and
// against the first frame seen if this isn't the first call. It returns
// a non-nil error describing the mismatch; the caller (the Slot Engine)
// is expected to transition to Failed with that error's message.
func (g *Gate) Check(sampleRate, channels int) error {
	if sampleRate != TargetSampleRate || channels != TargetChannels {
		return fmt.Errorf("unsupported format: %dHz/%dch", sampleRate, channels)
	}
	if !g.seen {
		g.seen = true
		g.sampleRate = sampleRate
		g.channels = channels
		return nil
	}
	if sampleRate != g.sampleRate || channels != g.channels {
		return fmt.Errorf("unsupported format: %dHz/%dch", sampleRate, channels)
	}
	return nil
}

// Reset clears the remembered first-frame parameters, so the next Check
// call re-establishes them.
func (g *Gate) Reset() {
	g.seen = false
}
