package resilience

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MrWong99/leeconmigo/internal/observe"
	"github.com/MrWong99/leeconmigo/pkg/provider/stt"
	"github.com/MrWong99/leeconmigo/pkg/provider/tts"
)

// STT is an [stt.Provider] that fails over across a [Group] of STT
// backends, tracing and measuring every backend call.
type STT struct {
	group   *Group[stt.Provider]
	metrics *observe.Metrics
}

var _ stt.Provider = (*STT)(nil)

// NewSTT wraps group. A nil m records to [observe.DefaultMetrics].
func NewSTT(group *Group[stt.Provider], m *observe.Metrics) *STT {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &STT{group: group, metrics: m}
}

// Group returns the underlying group, e.g. for health reporting.
func (s *STT) Group() *Group[stt.Provider] { return s.group }

// Transcribe implements stt.Provider.
func (s *STT) Transcribe(ctx context.Context, req stt.Request) (stt.Transcript, error) {
	return Do(s.group, func(name string, p stt.Provider) (stt.Transcript, error) {
		ctx, span := observe.StartSpan(ctx, "stt.Transcribe")
		defer span.End()
		span.SetAttributes(attribute.String("provider", name), attribute.Int("audio.bytes", len(req.Audio)))

		start := time.Now()
		tr, err := p.Transcribe(ctx, req)
		s.metrics.RecordProviderCall(ctx, name, "stt", time.Since(start).Seconds(), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return tr, err
	})
}

// TTS is a [tts.Provider] that fails over across a [Group] of TTS
// backends, tracing and measuring every backend call.
type TTS struct {
	group   *Group[tts.Provider]
	metrics *observe.Metrics
}

var _ tts.Provider = (*TTS)(nil)

// NewTTS wraps group. A nil m records to [observe.DefaultMetrics].
func NewTTS(group *Group[tts.Provider], m *observe.Metrics) *TTS {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &TTS{group: group, metrics: m}
}

// Group returns the underlying group, e.g. for health reporting.
func (t *TTS) Group() *Group[tts.Provider] { return t.group }

// Synthesize implements tts.Provider.
func (t *TTS) Synthesize(ctx context.Context, text string, voice tts.Voice) (tts.Audio, error) {
	return Do(t.group, func(name string, p tts.Provider) (tts.Audio, error) {
		ctx, span := observe.StartSpan(ctx, "tts.Synthesize")
		defer span.End()
		span.SetAttributes(attribute.String("provider", name), attribute.Float64("speed", voice.SpeedFactor))

		start := time.Now()
		a, err := p.Synthesize(ctx, text, voice)
		t.metrics.RecordProviderCall(ctx, name, "tts", time.Since(start).Seconds(), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return a, err
	})
}
