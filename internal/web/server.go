// Package web serves the read-along tutor to browsers.
//
// The page at "/" drives one [tutor.Session] per websocket connection on
// "/ws". Speech recognition runs in the browser when it supports the Web
// Speech API; otherwise the page uploads WAV recordings which are
// transcribed by the configured STT provider. Slow pronunciation is either
// synthesised server-side by the configured TTS provider or delegated to the
// browser's speech synthesis.
//
// Liveness and readiness probes are served on /healthz and /readyz, and
// Prometheus metrics on /metrics.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/leeconmigo/internal/config"
	"github.com/MrWong99/leeconmigo/internal/observe"
	"github.com/MrWong99/leeconmigo/internal/progress"
	"github.com/MrWong99/leeconmigo/internal/song"
	"github.com/MrWong99/leeconmigo/pkg/provider/stt"
	"github.com/MrWong99/leeconmigo/pkg/provider/tts"
)

//go:embed static
var staticFiles embed.FS

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Option configures a [Server].
type Option func(*Server)

// WithSTT enables server-side recognition of uploaded recordings.
func WithSTT(p stt.Provider) Option {
	return func(s *Server) { s.stt = p }
}

// WithTTS enables server-side synthesis of slow pronunciation.
func WithTTS(p tts.Provider) Option {
	return func(s *Server) { s.tts = p }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithProgress records every evaluated attempt to r.
func WithProgress(r progress.Recorder) Option {
	return func(s *Server) { s.progress = r }
}

// WithCheckers adds readiness checks to /readyz.
func WithCheckers(c ...Checker) Option {
	return func(s *Server) { s.checkers = append(s.checkers, c...) }
}

// WithMetricsHandler replaces the /metrics handler. Default: the
// Prometheus default gatherer.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// Server is the tutor's HTTP front end.
type Server struct {
	cfg            config.ServerConfig
	stt            stt.Provider
	tts            tts.Provider
	metrics        *observe.Metrics
	progress       progress.Recorder
	checkers       []Checker
	metricsHandler http.Handler

	mu    sync.RWMutex
	tutor config.TutorConfig
	song  song.Song

	sessions sync.WaitGroup
}

// NewServer creates a server presenting s with the given tutor settings.
func NewServer(cfg config.ServerConfig, tc config.TutorConfig, s song.Song, opts ...Option) *Server {
	srv := &Server{
		cfg:   cfg,
		tutor: tc,
		song:  s,
	}
	for _, o := range opts {
		o(srv)
	}
	if srv.metrics == nil {
		srv.metrics = observe.DefaultMetrics()
	}
	if srv.metricsHandler == nil {
		srv.metricsHandler = promhttp.Handler()
	}
	return srv
}

// Reconfigure replaces the tutor settings and song used by connections
// opened from now on. Sessions already running keep their snapshot.
func (s *Server) Reconfigure(tc config.TutorConfig, sg song.Song) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tutor = tc
	s.song = sg
}

func (s *Server) snapshot() (config.TutorConfig, song.Song) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tutor, s.song
}

// Handler returns the server's routes wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("web: embedded static files: %v", err))
	}
	mux.Handle("GET /", http.FileServerFS(static))
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("GET /healthz", healthz)
	mux.Handle("GET /readyz", readyz(s.checkers))
	mux.Handle("GET /metrics", s.metricsHandler)

	return observe.Middleware(s.metrics)(mux)
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully and waits for open sessions to end.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is [Server.Run] on an existing listener, which it closes on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tc := s.cfg.TLS; tc != nil {
			err = hs.ServeTLS(ln, tc.CertFile, tc.KeyFile)
		} else {
			err = hs.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web: serve: %w", err)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web: shutdown: %w", err)
		}
		return nil
	})

	observe.Logger(ctx).Info("web server listening", "addr", ln.Addr().String(), "tls", s.cfg.TLS != nil)
	err := g.Wait()
	s.sessions.Wait()
	return err
}
