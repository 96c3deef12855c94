// Package tts defines the Provider interface for Text-to-Speech backends.
//
// The tutor only ever synthesises one short utterance at a time (the slow
// pronunciation of a single word), so the interface is a single
// request/response call returning an encoded audio clip that a browser can
// play directly.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders text with the given voice. The returned audio is a
	// complete, self-describing clip (see [Audio.MIMEType]).
	Synthesize(ctx context.Context, text string, voice Voice) (Audio, error)
}
