// Package config provides the configuration schema, loader, and provider
// registry for the leeconmigo read-along tutor.
package config

import (
	"time"

	"github.com/MrWong99/leeconmigo/internal/match"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// LogFormat selects the slog handler used for log output.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// IsValid reports whether f is a recognised log format.
func (f LogFormat) IsValid() bool {
	return f == LogFormatText || f == LogFormatJSON
}

// Defaults applied by [Config.WithDefaults].
const (
	DefaultListenAddr  = ":8080"
	DefaultLanguage    = "es-ES"
	DefaultSuccessHold = 1500 * time.Millisecond
	DefaultSpeechRate  = 0.5
)

// Bounds for tutor.speech_rate.
const (
	MinSpeechRate = 0.25
	MaxSpeechRate = 4.0
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tutor     TutorConfig     `yaml:"tutor"`
	Song      SongConfig      `yaml:"song"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the web server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// LogFormat selects text or JSON log output.
	LogFormat LogFormat `yaml:"log_format"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`

	// ProgressFile, when set, is the JSON lines file every evaluated attempt
	// is appended to.
	ProgressFile string `yaml:"progress_file"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS. Browsers only
// grant microphone access on secure origins, so any deployment not served
// from localhost needs it.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// TutorConfig tunes the learner-facing behaviour of a session.
type TutorConfig struct {
	// Language is the BCP-47 tag used for speech recognition and synthesis.
	Language string `yaml:"language"`

	// SuccessHold is how long a success is shown before the next phrase.
	SuccessHold time.Duration `yaml:"success_hold"`

	// SpeechRate is the slow pronunciation rate at the syllable hint level,
	// where 1.0 is normal speed.
	SpeechRate float64 `yaml:"speech_rate"`

	// MatchStrategy selects the fuzzy word comparison.
	MatchStrategy match.Strategy `yaml:"match_strategy"`
}

// SongConfig overrides the built-in song. When Phrases is empty the
// built-in song is used.
type SongConfig struct {
	Title   string   `yaml:"title"`
	Phrases []string `yaml:"phrases"`
}

// ProvidersConfig declares which provider implementation to use for speech
// capture and speech output. Each field selects a named provider registered
// in the [Registry]. Both are optional: without them the browser performs
// recognition and synthesis itself.
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt"`
	TTS ProviderEntry `yaml:"tts"`

	// STTFallbacks and TTSFallbacks are tried in order when the primary
	// fails or its circuit breaker is open.
	STTFallbacks []ProviderEntry `yaml:"stt_fallbacks"`
	TTSFallbacks []ProviderEntry `yaml:"tts_fallbacks"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "whisper", "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "tts-1").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// StringOption returns Options[key] when it is a string, or def otherwise.
func (e ProviderEntry) StringOption(key, def string) string {
	if v, ok := e.Options[key].(string); ok && v != "" {
		return v
	}
	return def
}

// WithDefaults returns a copy of c with every unset field filled in.
func (c Config) WithDefaults() Config {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = LogFormatText
	}
	if c.Tutor.Language == "" {
		c.Tutor.Language = DefaultLanguage
	}
	if c.Tutor.SuccessHold == 0 {
		c.Tutor.SuccessHold = DefaultSuccessHold
	}
	if c.Tutor.SpeechRate == 0 {
		c.Tutor.SpeechRate = DefaultSpeechRate
	}
	if c.Tutor.MatchStrategy == "" {
		c.Tutor.MatchStrategy = match.StrategyPositional
	}
	return c
}
