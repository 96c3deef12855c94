// Package console runs the read-along tutor in a terminal. The learner types
// what they read instead of speaking it, which makes the console useful for
// trying out songs and matching strategies without a microphone.
//
// Input is read line by line: a line is one attempt, an empty line is an
// attempt that produced no result, ":r" restarts the song and ":q" quits.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrWong99/leeconmigo/internal/config"
	"github.com/MrWong99/leeconmigo/internal/match"
	"github.com/MrWong99/leeconmigo/internal/observe"
	"github.com/MrWong99/leeconmigo/internal/progress"
	"github.com/MrWong99/leeconmigo/internal/song"
	"github.com/MrWong99/leeconmigo/internal/tutor"
)

// Console commands.
const (
	cmdRestart = ":r"
	cmdQuit    = ":q"
)

// Option configures [Run].
type Option func(*options)

type options struct {
	tutor    config.TutorConfig
	metrics  *observe.Metrics
	progress progress.Recorder
}

// WithTutorConfig sets the hold, speech rate and matching strategy.
func WithTutorConfig(tc config.TutorConfig) Option {
	return func(o *options) { o.tutor = tc }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithProgress records every evaluated attempt to r.
func WithProgress(r progress.Recorder) Option {
	return func(o *options) { o.progress = r }
}

type styles struct {
	title     lipgloss.Style
	progress  lipgloss.Style
	word      lipgloss.Style
	highlight lipgloss.Style
	dimmed    lipgloss.Style
	prompt    lipgloss.Style
	success   lipgloss.Style
	speech    lipgloss.Style
	errText   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:     r.NewStyle().Bold(true).Padding(0, 1),
		progress:  r.NewStyle().Foreground(lipgloss.Color("8")),
		word:      r.NewStyle().Bold(true),
		highlight: r.NewStyle().Bold(true).Background(lipgloss.Color("11")).Foreground(lipgloss.Color("0")),
		dimmed:    r.NewStyle().Faint(true),
		prompt:    r.NewStyle().Foreground(lipgloss.Color("14")),
		success:   r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		speech:    r.NewStyle().Foreground(lipgloss.Color("13")).Italic(true),
		errText:   r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// screen implements the tutor collaborators by writing to the terminal.
type screen struct {
	out   io.Writer
	st    styles
	words []string
}

func (s *screen) Render(_ context.Context, d tutor.Directive) {
	switch d := d.(type) {
	case tutor.ShowPhrase:
		s.words = d.Words
		fmt.Fprintf(s.out, "\n%s %s\n", s.st.progress.Render(fmt.Sprintf("[%d/%d]", d.Index+1, d.Total)), s.phrase(nil))
		fmt.Fprintln(s.out, s.st.prompt.Render(d.Prompt))
	case tutor.Listening:
		fmt.Fprintln(s.out, s.st.prompt.Render(d.Prompt))
	case tutor.ApplyHint:
		fmt.Fprintf(s.out, "      %s\n", s.phrase(&d))
		fmt.Fprintln(s.out, s.st.prompt.Render(d.Prompt))
	case tutor.FlashSuccess:
		fmt.Fprintln(s.out, s.st.success.Render(d.Prompt))
	case tutor.ShowCompletion:
		fmt.Fprintf(s.out, "\n%s\n", s.st.success.Render(d.Prompt))
	}
}

// phrase renders the current words, applying h when non-nil. Highlighted
// words are bracketed and dimmed words masked so hints stay visible on
// terminals without colour.
func (s *screen) phrase(h *tutor.ApplyHint) string {
	parts := make([]string, len(s.words))
	for i, w := range s.words {
		switch {
		case h != nil && i == h.Target:
			if h.Syllabified != "" {
				w = h.Syllabified
			}
			parts[i] = s.st.highlight.Render("[" + w + "]")
		case h != nil && slices.Contains(h.Dimmed, i):
			parts[i] = s.st.dimmed.Render(strings.Repeat("·", utf8.RuneCountInString(w)))
		default:
			parts[i] = s.st.word.Render(w)
		}
	}
	return strings.Join(parts, " ")
}

func (s *screen) Speak(_ context.Context, text string, rate float64) {
	fmt.Fprintln(s.out, s.st.speech.Render(fmt.Sprintf("🔊 %s (x%.2g)", text, rate)))
}

func (s *screen) Play(_ context.Context, c tutor.Cue) {
	if c == tutor.CueSuccess {
		fmt.Fprint(s.out, s.st.success.Render("♪ "))
	}
}

// Run reads sg line by line from in until the song is complete, in is
// exhausted, ":q" is entered or ctx is cancelled. Only a failure to read in
// is returned as an error.
func Run(ctx context.Context, in io.Reader, out io.Writer, sg song.Song, opts ...Option) error {
	o := options{tutor: config.Config{}.WithDefaults().Tutor}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}

	sessionID := uuid.NewString()
	scr := &screen{out: out, st: newStyles(lipgloss.NewRenderer(out))}
	sess := tutor.New(sg,
		tutor.WithRenderer(scr),
		tutor.WithSpeaker(scr),
		tutor.WithCuePlayer(scr),
		tutor.WithEvaluator(match.NewEvaluator(match.WithStrategy(o.tutor.MatchStrategy))),
		tutor.WithSpeechRate(o.tutor.SpeechRate),
		tutor.WithMetrics(o.metrics),
	)

	o.metrics.ActiveSessions.Add(ctx, 1)
	defer o.metrics.ActiveSessions.Add(context.WithoutCancel(ctx), -1)

	fmt.Fprintln(out, scr.st.title.Render(sg.Title()))
	fmt.Fprintln(out, scr.st.progress.Render("Escribe lo que lees. Enter vacío = no se oyó, :r = otra vez, :q = salir"))
	sess.Start(ctx)

	stop := make(chan struct{})
	defer close(stop)
	lines := readLines(in, stop)
	for sess.Snapshot().Phase != tutor.PhaseComplete {
		fmt.Fprint(out, "> ")

		var ln line
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			ln = l
		}
		if ln.err != nil {
			return fmt.Errorf("console: read input: %w", ln.err)
		}

		text := strings.TrimSpace(ln.text)
		switch text {
		case cmdQuit:
			return nil
		case cmdRestart:
			sess.Restart(ctx)
			continue
		}

		var transcript *string
		if text != "" {
			transcript = &text
		}
		outcome, err := sess.CompleteAttempt(ctx, transcript)
		if err != nil {
			fmt.Fprintln(out, scr.st.errText.Render(err.Error()))
			continue
		}
		if o.progress != nil {
			st := sess.Snapshot()
			err := o.progress.Record(ctx, progress.Record{
				SessionID: sessionID,
				Song:      sg.Title(),
				Phrase:    st.PhraseIndex,
				Heard:     text,
				Success:   outcome.Success,
				Matched:   outcome.Matched,
				Total:     outcome.Total,
				Failures:  st.AttemptCount,
				Hint:      int(st.Hint),
			})
			if err != nil {
				observe.Logger(ctx).Warn("failed to record progress", "err", err)
			}
		}
		if !outcome.Success {
			continue
		}

		if !hold(ctx, o.tutor.SuccessHold) {
			return nil
		}
		if err := sess.Advance(ctx); err != nil {
			return fmt.Errorf("console: advance: %w", err)
		}
	}
	return nil
}

type line struct {
	text string
	err  error
}

// readLines scans in on its own goroutine so that Run can stop on ctx while
// a read is blocked. The channel is closed at end of input or once stop is
// closed.
func readLines(in io.Reader, stop <-chan struct{}) <-chan line {
	ch := make(chan line)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case ch <- line{text: sc.Text()}:
			case <-stop:
				return
			}
		}
		if err := sc.Err(); err != nil {
			select {
			case ch <- line{err: err}:
			case <-stop:
			}
		}
	}()
	return ch
}

// hold waits d and reports whether ctx is still live.
func hold(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
