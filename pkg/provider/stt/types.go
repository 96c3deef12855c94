package stt

import "time"

// Format identifies the encoding of [Request.Audio].
type Format string

const (
	// FormatWAV is a RIFF/WAV container holding 16-bit PCM.
	FormatWAV Format = "wav"

	// FormatPCM16 is raw 16-bit signed little-endian PCM. SampleRate and
	// Channels must be set.
	FormatPCM16 Format = "pcm16"
)

// Request is one recorded attempt to transcribe.
type Request struct {
	// Audio holds the recording in the given Format.
	Audio []byte

	Format Format

	// SampleRate is the audio sample rate in Hz. Ignored for WAV, whose
	// header carries it.
	SampleRate int

	// Channels is the number of interleaved channels. Ignored for WAV.
	Channels int

	// Language is the BCP-47 tag for recognition (e.g., "es-ES"). Empty uses
	// the provider default.
	Language string

	// Prompt lists words the learner is expected to say. Providers that
	// support it bias recognition toward them.
	Prompt []string
}

// Transcript is the result of transcribing one attempt.
type Transcript struct {
	// Text is the transcribed speech. Empty when nothing was recognised.
	Text string

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// provider does not report one.
	Confidence float64

	// Duration is the length of the submitted audio.
	Duration time.Duration
}
