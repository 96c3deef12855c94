// Package tutor implements the per-phrase attempt state machine of the
// read-along tutor.
//
// A [Session] walks a learner through a [song.Song] phrase by phrase. Each
// completed listening attempt is scored by a [match.Evaluator]; success
// flashes and waits for the caller to acknowledge it with [Session.Advance],
// failure escalates through three hint levels (highlight, isolate,
// syllables). Display, speech and audio cues are delegated to the
// [Renderer], [Speaker] and [CuePlayer] collaborators.
//
// The protocol is two-phase: [Session.BeginAttempt] marks a listening
// attempt as in flight and [Session.CompleteAttempt] delivers its
// transcript, or nil when nothing usable was captured. While a success is
// pending acknowledgement the session rejects new attempts.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/leeconmigo/internal/match"
	"github.com/MrWong99/leeconmigo/internal/observe"
	"github.com/MrWong99/leeconmigo/internal/song"
	"github.com/MrWong99/leeconmigo/internal/syllable"
)

// DefaultSpeechRate is the rate used for slow pronunciation at
// [HintSyllables].
const DefaultSpeechRate = 0.5

// Guard errors returned when an operation is not valid in the current phase.
var (
	ErrNotStarted       = errors.New("tutor: session not started")
	ErrTransitioning    = errors.New("tutor: success pending, next phrase not loaded yet")
	ErrSongComplete     = errors.New("tutor: song complete")
	ErrAttemptInFlight  = errors.New("tutor: listening attempt already in flight")
	ErrNotTransitioning = errors.New("tutor: no success to acknowledge")
)

// Phase is the state of a [Session].
type Phase int

const (
	// PhaseIdle is the phase before [Session.Start].
	PhaseIdle Phase = iota

	// PhasePresenting shows the current phrase and awaits an attempt.
	PhasePresenting

	// PhaseListening has an attempt in flight.
	PhaseListening

	// PhaseEvaluating is held only for the duration of an evaluation.
	PhaseEvaluating

	// PhaseTransitioning follows a success until [Session.Advance].
	PhaseTransitioning

	// PhaseComplete follows the last phrase.
	PhaseComplete
)

var phaseNames = [...]string{"idle", "presenting", "listening", "evaluating", "transitioning", "complete"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// State is a snapshot of a session's attempt state.
type State struct {
	Phase Phase

	// PhraseIndex is the index of the current phrase within the song.
	PhraseIndex int

	// AttemptCount is the number of failed attempts on the current phrase.
	// It only grows within a phrase and resets when a phrase loads.
	AttemptCount int

	// ProblematicWord is the phrase position targeted by hints, or
	// [match.NoIndex] before the first failure.
	ProblematicWord int

	// Hint is the hint level currently applied.
	Hint HintLevel
}

// Option configures a [Session].
type Option func(*Session)

// WithRenderer sets the display collaborator.
func WithRenderer(r Renderer) Option {
	return func(s *Session) { s.renderer = r }
}

// WithSpeaker sets the speech-output collaborator.
func WithSpeaker(sp Speaker) Option {
	return func(s *Session) { s.speaker = sp }
}

// WithCuePlayer sets the audio-cue collaborator.
func WithCuePlayer(c CuePlayer) Option {
	return func(s *Session) { s.cues = c }
}

// WithEvaluator replaces the default positional evaluator.
func WithEvaluator(e *match.Evaluator) Option {
	return func(s *Session) { s.eval = e }
}

// WithSpeechRate sets the slow pronunciation rate. Non-positive values are
// ignored.
func WithSpeechRate(rate float64) Option {
	return func(s *Session) {
		if rate > 0 {
			s.speechRate = rate
		}
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session owns the attempt state of one learner reading one song. All
// methods are safe for concurrent use; calls are serialised.
type Session struct {
	song       song.Song
	eval       *match.Evaluator
	renderer   Renderer
	speaker    Speaker
	cues       CuePlayer
	metrics    *observe.Metrics
	speechRate float64

	mu     sync.Mutex
	state  State
	phrase match.Phrase
}

// New creates a session for s. Call [Session.Start] to present the first
// phrase.
func New(s song.Song, opts ...Option) *Session {
	sess := &Session{
		song:       s,
		eval:       match.NewEvaluator(),
		renderer:   nopRenderer{},
		speaker:    nopSpeaker{},
		cues:       nopCuePlayer{},
		speechRate: DefaultSpeechRate,
		state:      State{Phase: PhaseIdle, ProblematicWord: match.NoIndex},
	}
	for _, o := range opts {
		o(sess)
	}
	if sess.metrics == nil {
		sess.metrics = observe.DefaultMetrics()
	}
	return sess
}

// Song returns the song being read.
func (s *Session) Song() song.Song { return s.song }

// Snapshot returns the current attempt state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start loads the first phrase. Calling Start again restarts the song from
// the beginning.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx, 0)
}

// Restart discards all progress and presents the first phrase again.
func (s *Session) Restart(ctx context.Context) {
	s.Start(ctx)
	observe.Logger(ctx).Info("song restarted", "song", s.song.Title())
}

// BeginAttempt marks a listening attempt as in flight.
func (s *Session) BeginAttempt(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	if s.state.Phase == PhaseListening {
		return ErrAttemptInFlight
	}
	s.state.Phase = PhaseListening
	s.renderer.Render(ctx, Listening{Prompt: PromptListening})
	return nil
}

// CompleteAttempt delivers the result of one listening attempt. A nil or
// blank transcript means nothing usable was captured and counts as a failed
// attempt. CompleteAttempt may be called without a preceding
// [Session.BeginAttempt].
//
// The returned error is non-nil only when the attempt is rejected by a
// phase guard; the outcome is then the zero value and the state is left
// unchanged.
func (s *Session) CompleteAttempt(ctx context.Context, transcript *string) (match.Outcome, error) {
	ctx, span := observe.StartSpan(ctx, "tutor.CompleteAttempt")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return match.Outcome{}, err
	}

	text := ""
	if transcript != nil {
		text = strings.TrimSpace(*transcript)
	}

	s.state.Phase = PhaseEvaluating
	start := time.Now()
	outcome := s.eval.Evaluate(s.phrase, text)
	s.metrics.EvaluationDuration.Record(ctx, time.Since(start).Seconds())

	span.SetAttributes(
		attribute.Int("phrase", s.state.PhraseIndex),
		attribute.Bool("success", outcome.Success),
		attribute.Int("matched", outcome.Matched),
		attribute.Int("total", outcome.Total),
	)
	observe.Logger(ctx).Info("attempt evaluated",
		"phrase", s.state.PhraseIndex,
		"heard", text,
		"success", outcome.Success,
		"matched", outcome.Matched,
		"total", outcome.Total,
		"first_unmatched", outcome.FirstUnmatched,
	)

	switch {
	case outcome.Success:
		s.metrics.RecordAttempt(ctx, observe.ResultSuccess)
		s.succeed(ctx)
	case text == "":
		s.metrics.RecordAttempt(ctx, observe.ResultEmpty)
		s.fail(ctx, outcome, PromptNoResult)
	default:
		s.metrics.RecordAttempt(ctx, observe.ResultFailure)
		s.fail(ctx, outcome, "")
	}
	return outcome, nil
}

// Advance acknowledges a success and loads the next phrase, or shows the
// completion screen after the last one.
func (s *Session) Advance(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != PhaseTransitioning {
		return ErrNotTransitioning
	}
	s.load(ctx, s.state.PhraseIndex+1)
	return nil
}

// guard rejects attempts outside the presenting and listening phases.
func (s *Session) guard() error {
	switch s.state.Phase {
	case PhaseIdle:
		return ErrNotStarted
	case PhaseTransitioning:
		return ErrTransitioning
	case PhaseComplete:
		return ErrSongComplete
	}
	return nil
}

// load resets the attempt state for phrase i. Caller must hold s.mu.
func (s *Session) load(ctx context.Context, i int) {
	if i >= s.song.Len() {
		s.state = State{Phase: PhaseComplete, PhraseIndex: s.song.Len(), ProblematicWord: match.NoIndex}
		s.phrase = match.Phrase{}
		s.metrics.SongsCompleted.Add(ctx, 1)
		observe.Logger(ctx).Info("song complete", "song", s.song.Title())
		s.renderer.Render(ctx, ShowCompletion{Prompt: PromptCompletion})
		return
	}

	s.phrase = s.song.Phrase(i)
	s.state = State{Phase: PhasePresenting, PhraseIndex: i, ProblematicWord: match.NoIndex}
	observe.Logger(ctx).Debug("phrase loaded", "phrase", i, "text", s.phrase.Text())
	s.renderer.Render(ctx, ShowPhrase{
		Index:  i,
		Total:  s.song.Len(),
		Words:  s.phrase.Display(),
		Prompt: PromptStart,
	})
}

// succeed enters the transitioning phase. Caller must hold s.mu.
func (s *Session) succeed(ctx context.Context) {
	s.state.Phase = PhaseTransitioning
	s.metrics.PhrasesCompleted.Add(ctx, 1)
	s.cues.Play(ctx, CueSuccess)
	s.renderer.Render(ctx, FlashSuccess{Prompt: PromptSuccess})
}

// fail escalates the hint level for a failed attempt. Caller must hold s.mu.
func (s *Session) fail(ctx context.Context, outcome match.Outcome, prompt string) {
	s.state.AttemptCount++
	target := outcome.FirstUnmatched
	if target < 0 || target >= s.phrase.Len() {
		target = 0
	}
	s.state.ProblematicWord = target
	s.state.Hint = hintForAttempt(s.state.AttemptCount)
	s.state.Phase = PhasePresenting

	level := s.state.Hint
	if prompt == "" {
		prompt = level.Prompt()
	}
	hint := ApplyHint{Level: level, Target: target, Prompt: prompt}
	if level >= HintIsolate {
		for i := range s.phrase.Len() {
			if i != target {
				hint.Dimmed = append(hint.Dimmed, i)
			}
		}
	}

	word := s.phrase.Word(target).Text
	if level == HintSyllables {
		hint.Syllabified = syllable.Syllabify(word)
	}

	s.metrics.RecordHint(ctx, int(level))
	observe.Logger(ctx).Debug("hint applied",
		"phrase", s.state.PhraseIndex,
		"attempt", s.state.AttemptCount,
		"level", int(level),
		"word", word,
	)

	s.cues.Play(ctx, CueGentle)
	s.renderer.Render(ctx, hint)
	if level == HintSyllables {
		s.speaker.Speak(ctx, syllable.SlowText(word), s.speechRate)
	}
}
