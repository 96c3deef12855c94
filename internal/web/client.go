package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/leeconmigo/internal/config"
	"github.com/MrWong99/leeconmigo/internal/match"
	"github.com/MrWong99/leeconmigo/internal/observe"
	"github.com/MrWong99/leeconmigo/internal/progress"
	"github.com/MrWong99/leeconmigo/internal/tutor"
	"github.com/MrWong99/leeconmigo/pkg/provider/stt"
	"github.com/MrWong99/leeconmigo/pkg/provider/tts"
)

const (
	// maxAudioBytes caps one uploaded recording (about a minute of 16 kHz
	// mono WAV).
	maxAudioBytes = 2 << 20

	outboundBuffer    = 32
	speechBuffer      = 4
	writeTimeout      = 10 * time.Second
	transcribeTimeout = 30 * time.Second
	synthesizeTimeout = 30 * time.Second
)

// errClientGone ends a connection's goroutines when the browser leaves.
var errClientGone = errors.New("web: client gone")

type outbound struct {
	msg    any
	binary []byte
}

type speechJob struct {
	text string
	rate float64
}

// client drives one tutor session over one websocket connection. All writes
// to the connection happen on writeLoop.
type client struct {
	id   string
	conn *websocket.Conn
	sess *tutor.Session
	cfg  config.TutorConfig
	stt  stt.Provider
	tts  tts.Provider
	prog progress.Recorder
	log  *slog.Logger

	out    chan outbound
	speech chan speechJob

	advance *holdTimer
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxAudioBytes)

	s.sessions.Add(1)
	defer s.sessions.Done()

	tc, sg := s.snapshot()
	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		cfg:     tc,
		stt:     s.stt,
		tts:     s.tts,
		prog:    s.progress,
		out:     make(chan outbound, outboundBuffer),
		speech:  make(chan speechJob, speechBuffer),
		advance: newHoldTimer(),
	}
	c.log = observe.Logger(r.Context()).With("session", c.id)
	c.sess = tutor.New(sg,
		tutor.WithRenderer(tutor.RendererFunc(c.render)),
		tutor.WithSpeaker(tutor.SpeakerFunc(c.speak)),
		tutor.WithCuePlayer(tutor.CuePlayerFunc(c.play)),
		tutor.WithEvaluator(match.NewEvaluator(match.WithStrategy(tc.MatchStrategy))),
		tutor.WithSpeechRate(tc.SpeechRate),
		tutor.WithMetrics(s.metrics),
	)

	ctx := r.Context()
	s.metrics.ActiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveSessions.Add(context.WithoutCancel(ctx), -1)

	c.log.Info("session opened", "song", sg.Title())
	err = c.run(ctx)
	c.stopAdvance()
	if err != nil {
		c.log.Warn("session ended with error", "err", err)
		conn.Close(websocket.StatusInternalError, "internal error")
		return
	}
	c.log.Info("session closed", "state", c.sess.Snapshot().Phase.String())
	conn.Close(websocket.StatusNormalClosure, "")
}

func (c *client) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.writeLoop(gctx) })
	g.Go(func() error { return c.speechLoop(gctx) })
	g.Go(func() error { return c.readLoop(gctx) })

	capture := captureBrowser
	if c.stt != nil {
		capture = captureServer
	}
	c.send(gctx, outbound{msg: helloMessage{
		Type:         msgHello,
		Session:      c.id,
		Song:         c.sess.Song().Title(),
		Phrases:      c.sess.Song().Len(),
		Language:     c.cfg.Language,
		Capture:      capture,
		ServerSpeech: c.tts != nil,
	}})

	if err := g.Wait(); err != nil && !errors.Is(err, errClientGone) {
		return err
	}
	return nil
}

func (c *client) readLoop(ctx context.Context) error {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return errClientGone
			}
			if ctx.Err() != nil {
				return errClientGone
			}
			return fmt.Errorf("web: read: %w", err)
		}

		if typ == websocket.MessageBinary {
			c.handleAudio(ctx, data)
			continue
		}

		var m clientMessage
		if err := json.Unmarshal(data, &m); err != nil {
			c.sendError(ctx, "bad_message", "message is not valid JSON")
			continue
		}
		c.handle(ctx, m)
	}
}

func (c *client) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case o := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.conn, o.msg)
			if err == nil && o.binary != nil {
				err = c.conn.Write(wctx, websocket.MessageBinary, o.binary)
			}
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("web: write: %w", err)
			}
		}
	}
}

// speechLoop synthesises slow pronunciation off the session lock. Failures
// fall back to browser speech.
func (c *client) speechLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-c.speech:
			sctx, cancel := context.WithTimeout(ctx, synthesizeTimeout)
			audio, err := c.tts.Synthesize(sctx, job.text, tts.Voice{
				SpeedFactor: job.rate,
				Language:    c.cfg.Language,
			})
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.log.Warn("speech synthesis failed, using browser speech", "err", err)
				c.send(ctx, outbound{msg: c.speakMessage(job)})
				continue
			}
			c.send(ctx, outbound{
				msg:    audioMessage{Type: msgAudio, MIMEType: audio.MIMEType, Text: job.text},
				binary: audio.Data,
			})
		}
	}
}

func (c *client) handle(ctx context.Context, m clientMessage) {
	switch m.Type {
	case msgStart:
		c.stopAdvance()
		c.sess.Start(ctx)
	case msgRestart:
		c.stopAdvance()
		c.sess.Restart(ctx)
	case msgBegin:
		if err := c.sess.BeginAttempt(ctx); err != nil {
			c.reject(ctx, err)
		}
	case msgResult:
		c.complete(ctx, m.Transcript)
	default:
		c.sendError(ctx, "unknown_type", fmt.Sprintf("unknown message type %q", m.Type))
	}
}

// handleAudio transcribes one uploaded recording and completes the attempt
// with it. Recognition failures count as an attempt with no result.
func (c *client) handleAudio(ctx context.Context, wav []byte) {
	if c.stt == nil {
		c.sendError(ctx, "no_recognizer", "server-side recognition is not configured")
		return
	}

	st := c.sess.Snapshot()
	if st.Phase != tutor.PhasePresenting && st.Phase != tutor.PhaseListening {
		c.complete(ctx, nil)
		return
	}

	var prompt []string
	for _, w := range c.sess.Song().Phrase(st.PhraseIndex).Keywords() {
		prompt = append(prompt, w.Text)
	}

	tctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	tr, err := c.stt.Transcribe(tctx, stt.Request{
		Audio:    wav,
		Format:   stt.FormatWAV,
		Language: c.cfg.Language,
		Prompt:   prompt,
	})
	cancel()
	if err != nil {
		c.log.Warn("transcription failed", "phrase", st.PhraseIndex, "err", err)
		c.complete(ctx, nil)
		return
	}

	c.send(ctx, outbound{msg: heardMessage{Type: msgHeard, Text: tr.Text}})
	c.complete(ctx, &tr.Text)
}

func (c *client) complete(ctx context.Context, transcript *string) {
	outcome, err := c.sess.CompleteAttempt(ctx, transcript)
	if err != nil {
		c.reject(ctx, err)
		return
	}
	c.record(ctx, transcript, outcome)
	if outcome.Success {
		c.scheduleAdvance(ctx)
	}
}

// record journals an evaluated attempt. Journal failures are only logged.
func (c *client) record(ctx context.Context, transcript *string, o match.Outcome) {
	if c.prog == nil {
		return
	}
	st := c.sess.Snapshot()
	r := progress.Record{
		SessionID: c.id,
		Song:      c.sess.Song().Title(),
		Phrase:    st.PhraseIndex,
		Success:   o.Success,
		Matched:   o.Matched,
		Total:     o.Total,
		Failures:  st.AttemptCount,
		Hint:      int(st.Hint),
	}
	if transcript != nil {
		r.Heard = *transcript
	}
	if err := c.prog.Record(ctx, r); err != nil {
		c.log.Warn("failed to record progress", "err", err)
	}
}

// scheduleAdvance loads the next phrase once the success has been shown for
// the configured hold.
func (c *client) scheduleAdvance(ctx context.Context) {
	c.advance.schedule(c.cfg.SuccessHold, func() {
		if ctx.Err() != nil {
			return
		}
		if err := c.sess.Advance(ctx); err != nil && !errors.Is(err, tutor.ErrNotTransitioning) {
			c.log.Warn("advance failed", "err", err)
		}
	})
}

func (c *client) stopAdvance() { c.advance.stop() }

// reject reports a guard error to the browser.
func (c *client) reject(ctx context.Context, err error) {
	code := "rejected"
	switch {
	case errors.Is(err, tutor.ErrNotStarted):
		code = "not_started"
	case errors.Is(err, tutor.ErrTransitioning):
		code = "transitioning"
	case errors.Is(err, tutor.ErrSongComplete):
		code = "song_complete"
	case errors.Is(err, tutor.ErrAttemptInFlight):
		code = "attempt_in_flight"
	}
	c.log.Debug("attempt rejected", "code", code)
	c.sendError(ctx, code, err.Error())
}

func (c *client) sendError(ctx context.Context, code, msg string) {
	c.send(ctx, outbound{msg: errorMessage{Type: msgError, Code: code, Message: msg}})
}

// send queues o for writeLoop. It gives up when ctx ends.
func (c *client) send(ctx context.Context, o outbound) {
	select {
	case c.out <- o:
	case <-ctx.Done():
	}
}

func (c *client) render(ctx context.Context, d tutor.Directive) {
	c.send(ctx, outbound{msg: directiveMessage{Type: msgDirective, Kind: d.Kind(), Data: d}})
}

func (c *client) play(ctx context.Context, cue tutor.Cue) {
	c.send(ctx, outbound{msg: cueMessage{Type: msgCue, Cue: cue}})
}

func (c *client) speak(ctx context.Context, text string, rate float64) {
	job := speechJob{text: text, rate: rate}
	if c.tts == nil {
		c.send(ctx, outbound{msg: c.speakMessage(job)})
		return
	}
	select {
	case c.speech <- job:
	default:
		c.log.Warn("speech queue full, dropping", "text", text)
	}
}

func (c *client) speakMessage(job speechJob) speakMessage {
	return speakMessage{Type: msgSpeak, Text: job.text, Rate: job.rate, Language: c.cfg.Language}
}
