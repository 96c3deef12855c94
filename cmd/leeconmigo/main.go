// Command leeconmigo serves the read-along tutor, either as a web page or in
// the terminal with -console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/leeconmigo/internal/config"
	"github.com/MrWong99/leeconmigo/internal/console"
	"github.com/MrWong99/leeconmigo/internal/observe"
	"github.com/MrWong99/leeconmigo/internal/progress"
	"github.com/MrWong99/leeconmigo/internal/song"
	"github.com/MrWong99/leeconmigo/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	consoleMode := flag.Bool("console", false, "read along in the terminal instead of serving the web page")
	report := flag.String("report", "", "print a per-phrase summary of the given progress file and exit")
	flag.Parse()

	if *report != "" {
		if err := printReport(os.Stdout, *report); err != nil {
			fmt.Fprintf(os.Stderr, "leeconmigo: %v\n", err)
			return 1
		}
		return 0
	}

	// ── Load configuration ────────────────────────────────────────────────────
	loaded, err := config.Load(*configPath)
	missing := errors.Is(err, os.ErrNotExist)
	switch {
	case missing:
		loaded = &config.Config{}
	case err != nil:
		fmt.Fprintf(os.Stderr, "leeconmigo: %v\n", err)
		return 1
	}
	cfg := loaded.WithDefaults()

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(newLogger(os.Stderr, cfg.Server.LogFormat, level))

	if missing {
		slog.Warn("config file not found, using built-in defaults", "config", *configPath)
	}
	slog.Info("leeconmigo starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	sg, err := buildSong(cfg.Song)
	if err != nil {
		slog.Error("invalid song", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	var journal progress.Recorder
	if path := cfg.Server.ProgressFile; path != "" {
		journal = progress.NewFileStore(path)
		slog.Info("recording progress", "file", path)
	}

	// ── Console mode ──────────────────────────────────────────────────────────
	if *consoleMode {
		opts := []console.Option{console.WithTutorConfig(cfg.Tutor), console.WithMetrics(metrics)}
		if journal != nil {
			opts = append(opts, console.WithProgress(journal))
		}
		err := console.Run(ctx, os.Stdin, os.Stdout, sg, opts...)
		if err != nil {
			slog.Error("console error", "err", err)
			return 1
		}
		return 0
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	speech, err := buildProviders(cfg, reg, metrics)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(os.Stdout, cfg, sg)

	// ── Web server ────────────────────────────────────────────────────────────
	webOpts := speech.webOptions(metrics)
	if journal != nil {
		webOpts = append(webOpts, web.WithProgress(journal))
	}
	srv := web.NewServer(cfg.Server, cfg.Tutor, sg, webOpts...)

	if !missing {
		w, err := config.NewWatcher(*configPath, func(diff config.ConfigDiff, next *config.Config) {
			applyReload(diff, next.WithDefaults(), level, srv)
		})
		if err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	slog.Info("server ready, press Ctrl+C to shut down")
	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildSong returns the configured song, or the built-in one when no phrases
// are configured.
func buildSong(sc config.SongConfig) (song.Song, error) {
	if len(sc.Phrases) == 0 {
		return song.Default(), nil
	}
	title := sc.Title
	if title == "" {
		title = sc.Phrases[0]
	}
	return song.New(title, sc.Phrases)
}

// applyReload applies the hot-reloadable parts of a changed config.
func applyReload(diff config.ConfigDiff, cfg config.Config, level *slog.LevelVar, srv *web.Server) {
	if diff.LogLevelChanged {
		level.Set(slogLevel(cfg.Server.LogLevel))
		slog.Info("log level changed", "level", cfg.Server.LogLevel)
	}
	if diff.TutorChanged || diff.SongChanged {
		sg, err := buildSong(cfg.Song)
		if err != nil {
			slog.Warn("reloaded song rejected, keeping the previous one", "err", err)
			return
		}
		srv.Reconfigure(cfg.Tutor, sg)
		slog.Info("tutor settings reloaded", "song", sg.Title(), "phrases", sg.Len())
	}
	if diff.RestartRequired {
		slog.Warn("config change needs a restart to take effect")
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(w io.Writer, cfg config.Config, sg song.Song) {
	fmt.Fprintln(w, "╔═══════════════════════════════════════╗")
	fmt.Fprintln(w, "║       Lee conmigo: startup summary    ║")
	fmt.Fprintln(w, "╠═══════════════════════════════════════╣")
	printRow(w, "Song", sg.Title())
	fmt.Fprintf(w, "║  %-12s    : %-19d ║\n", "Phrases", sg.Len())
	printRow(w, "Language", cfg.Tutor.Language)
	printRow(w, "Matching", string(cfg.Tutor.MatchStrategy))
	printProvider(w, "STT", cfg.Providers.STT, len(cfg.Providers.STTFallbacks), "(browser)")
	printProvider(w, "TTS", cfg.Providers.TTS, len(cfg.Providers.TTSFallbacks), "(browser)")
	printRow(w, "Listen addr", cfg.Server.ListenAddr)
	if cfg.Server.TLS != nil {
		printRow(w, "TLS", "enabled")
	}
	fmt.Fprintln(w, "╚═══════════════════════════════════════╝")
}

func printProvider(w io.Writer, kind string, e config.ProviderEntry, fallbacks int, unset string) {
	value := unset
	if e.Name != "" {
		value = e.Name
		if e.Model != "" {
			value += " / " + e.Model
		}
		if fallbacks > 0 {
			value += fmt.Sprintf(" +%d", fallbacks)
		}
	}
	printRow(w, kind, value)
}

func printRow(w io.Writer, key, value string) {
	if r := []rune(value); len(r) > 19 {
		value = string(r[:18]) + "…"
	}
	fmt.Fprintf(w, "║  %-12s    : %-19s ║\n", key, value)
}

// ── Progress report ───────────────────────────────────────────────────────────

func printReport(w io.Writer, path string) error {
	records, err := progress.ReadFile(path)
	if err != nil {
		return err
	}
	sessions := make(map[string]struct{})
	for _, r := range records {
		sessions[r.SessionID] = struct{}{}
	}
	fmt.Fprintf(w, "%d attempts in %d sessions\n\n", len(records), len(sessions))
	fmt.Fprintf(w, "%-24s %6s %8s %8s %s\n", "SONG", "PHRASE", "ATTEMPTS", "FAILURES", "READ")
	for _, s := range progress.Summarize(records) {
		title := s.Song
		if r := []rune(title); len(r) > 24 {
			title = string(r[:23]) + "…"
		}
		read := "no"
		if s.Read {
			read = "yes"
		}
		fmt.Fprintf(w, "%-24s %6d %8d %8d %s\n", title, s.Phrase+1, s.Attempts, s.Failures, read)
	}
	return nil
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, format config.LogFormat, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
