//go:build !ndi

package ndi

import "time"

// stubReceiver and stubFinder satisfy Receiver/Finder without the NDI
// SDK present. Every call fails with ErrUnavailable so callers get a
// precise runtime error instead of the module failing to build.

type stubReceiver struct{}

func connect(sourceName string) (Receiver, error) {
	return nil, ErrUnavailable
}

func (stubReceiver) CaptureAudio(time.Duration) (AudioFrame, error) {
	return AudioFrame{}, ErrUnavailable
}

func (stubReceiver) Close() error { return nil }

type stubFinder struct{}

func newFinder() (Finder, error) {
	return nil, ErrUnavailable
}

func (stubFinder) ListSources(time.Duration) ([]Source, error) {
	return nil, ErrUnavailable
}

func (stubFinder) Close() error { return nil }
