package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/leeconmigo/internal/config"
	"github.com/MrWong99/leeconmigo/internal/observe"
	"github.com/MrWong99/leeconmigo/internal/resilience"
	"github.com/MrWong99/leeconmigo/internal/web"
	"github.com/MrWong99/leeconmigo/pkg/provider/stt"
	"github.com/MrWong99/leeconmigo/pkg/provider/stt/whisper"
	"github.com/MrWong99/leeconmigo/pkg/provider/tts"
	"github.com/MrWong99/leeconmigo/pkg/provider/tts/coqui"
	oaitts "github.com/MrWong99/leeconmigo/pkg/provider/tts/openai"
)

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider kinds to the implementations that ship with
// the binary. Used for startup logging.
var builtinProviders = map[string][]string{
	"stt": {"whisper"},
	"tts": {"openai", "coqui"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if rms, ok := optFloat(entry.Options, "silence_threshold"); ok {
			opts = append(opts, whisper.WithSilenceThreshold(rms))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []oaitts.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaitts.WithBaseURL(entry.BaseURL))
		}
		if voice := entry.StringOption("voice", ""); voice != "" {
			opts = append(opts, oaitts.WithVoice(voice))
		}
		if d, ok := optDuration(entry.Options, "timeout"); ok {
			opts = append(opts, oaitts.WithTimeout(d))
		}
		return oaitts.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if mode := entry.StringOption("api_mode", ""); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		if speaker := entry.StringOption("speaker", ""); speaker != "" {
			opts = append(opts, coqui.WithSpeaker(speaker))
		}
		if d, ok := optDuration(entry.Options, "timeout"); ok {
			opts = append(opts, coqui.WithTimeout(d))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// speechProviders holds the failover-wrapped speech backends. Either field
// is nil when the browser handles that direction itself.
type speechProviders struct {
	stt *resilience.STT
	tts *resilience.TTS
}

// webOptions exposes the configured backends and their readiness to the
// web server.
func (sp speechProviders) webOptions(m *observe.Metrics) []web.Option {
	opts := []web.Option{web.WithMetrics(m)}
	if sp.stt != nil {
		opts = append(opts,
			web.WithSTT(sp.stt),
			web.WithCheckers(web.AvailabilityChecker("stt", sp.stt.Group().Available)),
		)
	}
	if sp.tts != nil {
		opts = append(opts,
			web.WithTTS(sp.tts),
			web.WithCheckers(web.AvailabilityChecker("tts", sp.tts.Group().Available)),
		)
	}
	return opts
}

// buildProviders instantiates the configured primary and fallback providers
// and wraps each kind in a circuit-breaking failover group.
func buildProviders(cfg config.Config, reg *config.Registry, m *observe.Metrics) (speechProviders, error) {
	var sp speechProviders

	if cfg.Providers.STT.Name != "" {
		g, err := buildGroup("stt", cfg.Providers.STT, cfg.Providers.STTFallbacks, reg.CreateSTT)
		if err != nil {
			return sp, err
		}
		sp.stt = resilience.NewSTT(g, m)
	}

	if cfg.Providers.TTS.Name != "" {
		g, err := buildGroup("tts", cfg.Providers.TTS, cfg.Providers.TTSFallbacks, reg.CreateTTS)
		if err != nil {
			return sp, err
		}
		sp.tts = resilience.NewTTS(g, m)
	}

	return sp, nil
}

func buildGroup[T any](kind string, primary config.ProviderEntry, fallbacks []config.ProviderEntry, create func(config.ProviderEntry) (T, error)) (*resilience.Group[T], error) {
	p, err := create(primary)
	if err != nil {
		return nil, fmt.Errorf("create %s provider %q: %w", kind, primary.Name, err)
	}
	slog.Info("provider created", "kind", kind, "name", primary.Name)
	g := resilience.NewGroup(primary.Name, p, resilience.BreakerConfig{})

	for _, fb := range fallbacks {
		p, err := create(fb)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("unknown fallback provider, skipping", "kind", kind, "name", fb.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create %s fallback %q: %w", kind, fb.Name, err)
		}
		g.Add(fb.Name, p)
		slog.Info("fallback provider created", "kind", kind, "name", fb.Name)
	}
	return g, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optFloat extracts a number from a provider Options map. YAML integers and
// floats are both accepted.
func optFloat(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// optDuration extracts a duration string such as "10s" from a provider
// Options map. Unparseable values are ignored with a warning.
func optDuration(opts map[string]any, key string) (time.Duration, bool) {
	s, ok := opts[key].(string)
	if !ok || s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("ignoring invalid provider option", "key", key, "value", s, "err", err)
		return 0, false
	}
	return d, true
}
