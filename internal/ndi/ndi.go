// Package ndi wraps the NDI SDK's receive and discovery APIs behind a
// small interface, so the rest of the bridge never touches cgo directly.
// The real binding (build tag "ndi") talks to libndi.so; without that
// tag every function returns ErrUnavailable so the module still builds
// and runs (against the stub) on machines without the proprietary SDK.
package ndi

import (
	"errors"
	"time"
)

// ErrUnavailable is returned by every operation in this package when
// built without the "ndi" build tag, i.e. without the NDI SDK present.
var ErrUnavailable = errors.New("ndi: SDK not available, build with -tags ndi")

// ErrTimeout is returned by Receiver.CaptureAudio when no audio frame
// arrived before the deadline. It is not a failure of the receiver.
var ErrTimeout = errors.New("ndi: capture timed out")

// ErrClosed is returned by CaptureAudio after the receiver has been closed.
var ErrClosed = errors.New("ndi: receiver closed")

// Layout describes how an AudioFrame's samples are arranged in memory.
type Layout int

const (
	// Interleaved means Data is [ch0, ch1, ch0, ch1, ...].
	Interleaved Layout = iota
	// Planar means Data is [ch0 samples..., ch1 samples...], each
	// channel occupying Stride float32s (Stride may exceed Samples).
	Planar
)

// Source describes one discoverable NDI source on the network.
type Source struct {
	Name string
}

// AudioFrame is one buffer of PCM audio delivered by the NDI receiver.
// SampleRate, Channels and Samples describe its shape; Data holds the
// raw float32 samples per Layout.
type AudioFrame struct {
	SampleRate int
	Channels   int
	Samples    int // samples per channel
	Stride     int // float32s per channel when Layout == Planar
	Layout     Layout
	Data       []float32
}

// Receiver is a connected NDI audio receiver for a single source.
type Receiver interface {
	// CaptureAudio blocks until an audio frame arrives, the timeout
	// elapses (ErrTimeout), or the receiver is closed (ErrClosed).
	CaptureAudio(timeout time.Duration) (AudioFrame, error)
	// Close releases the receiver and any NDI-owned resources.
	Close() error
}

// Finder discovers NDI sources currently visible on the network.
type Finder interface {
	// ListSources blocks up to timeout waiting for the network to
	// settle, then returns every source currently known.
	ListSources(timeout time.Duration) ([]Source, error)
	// Close releases the underlying NDI finder instance.
	Close() error
}

// Connect resolves sourceName against the network and returns a
// connected Receiver. It keeps the source name's backing storage alive
// for the Receiver's lifetime — see doc.go for why this matters.
func Connect(sourceName string) (Receiver, error) {
	return connect(sourceName)
}

// NewFinder creates a Finder for discovering NDI sources.
func NewFinder() (Finder, error) {
	return newFinder()
}
