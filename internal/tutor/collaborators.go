package tutor

import "context"

// Renderer draws display directives. Render is called synchronously while
// the session holds its lock; implementations must not call back into the
// [Session].
type Renderer interface {
	Render(ctx context.Context, d Directive)
}

// Speaker pronounces text aloud at the given rate, where 1.0 is normal speed.
// It is fire-and-forget: failures are the speaker's own concern.
type Speaker interface {
	Speak(ctx context.Context, text string, rate float64)
}

// CuePlayer plays audio cues.
type CuePlayer interface {
	Play(ctx context.Context, c Cue)
}

// RendererFunc adapts a function to [Renderer].
type RendererFunc func(ctx context.Context, d Directive)

func (f RendererFunc) Render(ctx context.Context, d Directive) { f(ctx, d) }

// SpeakerFunc adapts a function to [Speaker].
type SpeakerFunc func(ctx context.Context, text string, rate float64)

func (f SpeakerFunc) Speak(ctx context.Context, text string, rate float64) { f(ctx, text, rate) }

// CuePlayerFunc adapts a function to [CuePlayer].
type CuePlayerFunc func(ctx context.Context, c Cue)

func (f CuePlayerFunc) Play(ctx context.Context, c Cue) { f(ctx, c) }

type nopRenderer struct{}

func (nopRenderer) Render(context.Context, Directive) {}

type nopSpeaker struct{}

func (nopSpeaker) Speak(context.Context, string, float64) {}

type nopCuePlayer struct{}

func (nopCuePlayer) Play(context.Context, Cue) {}
