// Package stt defines the Provider interface for Speech-to-Text backends.
//
// A learner's listening attempt is captured as one short recording and
// transcribed in a single batch request. Streaming partials are not needed:
// the tutor only ever evaluates the complete attempt.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
)

// ErrUnsupportedFormat is returned when a provider cannot handle the audio
// format of a [Request].
var ErrUnsupportedFormat = errors.New("stt: unsupported audio format")

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts one recorded attempt into text. A recording that
	// holds no speech yields an empty Transcript and a nil error; errors are
	// reserved for transport and decoding failures.
	Transcribe(ctx context.Context, req Request) (Transcript, error)
}
