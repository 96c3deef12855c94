package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/leeconmigo/internal/config"
	"github.com/MrWong99/leeconmigo/internal/match"
)

const fullYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
  log_format: json
tutor:
  language: es-MX
  success_hold: 2s
  speech_rate: 0.6
  match_strategy: phonetic
song:
  title: "Pequeña canción"
  phrases:
    - "Que canten los niños"
    - "dolor"
providers:
  stt:
    name: whisper
    base_url: "http://localhost:8081"
    model: large-v3
  tts:
    name: coqui
    base_url: "http://localhost:5002"
    options:
      speaker_id: p225
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("server.listen_addr: got %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server.log_level: got %q", cfg.Server.LogLevel)
	}
	if cfg.Server.LogFormat != config.LogFormatJSON {
		t.Errorf("server.log_format: got %q", cfg.Server.LogFormat)
	}
	if cfg.Tutor.SuccessHold != 2*time.Second {
		t.Errorf("tutor.success_hold: got %s, want 2s", cfg.Tutor.SuccessHold)
	}
	if cfg.Tutor.SpeechRate != 0.6 {
		t.Errorf("tutor.speech_rate: got %.2f", cfg.Tutor.SpeechRate)
	}
	if cfg.Tutor.MatchStrategy != match.StrategyPhonetic {
		t.Errorf("tutor.match_strategy: got %q", cfg.Tutor.MatchStrategy)
	}
	if len(cfg.Song.Phrases) != 2 || cfg.Song.Phrases[1] != "dolor" {
		t.Errorf("song.phrases: got %q", cfg.Song.Phrases)
	}
	if cfg.Providers.STT.Name != "whisper" || cfg.Providers.STT.Model != "large-v3" {
		t.Errorf("providers.stt: got %+v", cfg.Providers.STT)
	}
	if got := cfg.Providers.TTS.StringOption("speaker_id", ""); got != "p225" {
		t.Errorf("providers.tts.options.speaker_id: got %q", got)
	}
}

func TestLoadFromReader_EmptyIsValid(t *testing.T) {
	t.Parallel()
	for _, doc := range []string{"", "{}"} {
		if _, err := config.LoadFromReader(strings.NewReader(doc)); err != nil {
			t.Errorf("LoadFromReader(%q): unexpected error: %v", doc, err)
		}
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("tutor:\n  threshold: 0.5\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "leeconmigo.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Song.Title != "Pequeña canción" {
		t.Errorf("song.title: got %q", cfg.Song.Title)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Parallel()
	cfg, err := config.Load(filepath.Join("..", "..", "configs", "example.yaml"))
	if err != nil {
		t.Fatalf("Load example: %v", err)
	}
	if cfg.Tutor.SuccessHold != 1500*time.Millisecond {
		t.Errorf("success_hold: got %v", cfg.Tutor.SuccessHold)
	}
	if len(cfg.Song.Phrases) != 8 {
		t.Errorf("phrases: got %d, want 8", len(cfg.Song.Phrases))
	}
	if len(cfg.Providers.TTSFallbacks) != 1 || cfg.Providers.TTSFallbacks[0].Name != "coqui" {
		t.Errorf("tts_fallbacks: got %+v", cfg.Providers.TTSFallbacks)
	}
}

func TestWithDefaults(t *testing.T) {
	t.Parallel()
	cfg := config.Config{}.WithDefaults()

	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("listen_addr: got %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo || cfg.Server.LogFormat != config.LogFormatText {
		t.Errorf("logging defaults: got %q/%q", cfg.Server.LogLevel, cfg.Server.LogFormat)
	}
	if cfg.Tutor.Language != "es-ES" {
		t.Errorf("language: got %q", cfg.Tutor.Language)
	}
	if cfg.Tutor.SuccessHold != 1500*time.Millisecond {
		t.Errorf("success_hold: got %s", cfg.Tutor.SuccessHold)
	}
	if cfg.Tutor.SpeechRate != 0.5 {
		t.Errorf("speech_rate: got %.2f", cfg.Tutor.SpeechRate)
	}
	if cfg.Tutor.MatchStrategy != match.StrategyPositional {
		t.Errorf("match_strategy: got %q", cfg.Tutor.MatchStrategy)
	}

	// Explicit values survive.
	set := config.Config{Tutor: config.TutorConfig{SpeechRate: 0.8}}.WithDefaults()
	if set.Tutor.SpeechRate != 0.8 {
		t.Errorf("explicit speech_rate overwritten: got %.2f", set.Tutor.SpeechRate)
	}
}

// ── Validation ────────────────────────────────────────────────────────────────

func TestValidate_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"log level", "server:\n  log_level: verbose\n", "server.log_level"},
		{"log format", "server:\n  log_format: xml\n", "server.log_format"},
		{"tls half configured", "server:\n  tls:\n    cert_file: cert.pem\n", "server.tls"},
		{"negative hold", "tutor:\n  success_hold: -1s\n", "tutor.success_hold"},
		{"speech rate low", "tutor:\n  speech_rate: 0.1\n", "tutor.speech_rate"},
		{"speech rate high", "tutor:\n  speech_rate: 5\n", "tutor.speech_rate"},
		{"match strategy", "tutor:\n  match_strategy: soundex\n", "tutor.match_strategy"},
		{"unnamed fallback", "providers:\n  stt:\n    name: whisper\n  stt_fallbacks:\n    - base_url: http://x\n", "stt_fallbacks[0].name"},
		{"fallback without primary", "providers:\n  tts_fallbacks:\n    - name: coqui\n", "requires providers.tts"},
		{"blank phrase", "song:\n  title: x\n  phrases: [\"hola\", \"  \"]\n", "song.phrases[1]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error should mention %q, got: %v", tc.want, err)
			}
		})
	}
}

func TestValidate_JoinsAllErrors(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: "loud"},
		Tutor:  config.TutorConfig{SpeechRate: 10, MatchStrategy: "nope"},
	}
	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"log_level", "speech_rate", "match_strategy"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}

func TestValidate_UnknownProviderOnlyWarns(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Providers: config.ProvidersConfig{
		STT: config.ProviderEntry{Name: "my-own-stt"},
	}}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("unknown provider name should not fail validation: %v", err)
	}
}

func TestProviderEntry_StringOption(t *testing.T) {
	t.Parallel()
	e := config.ProviderEntry{Options: map[string]any{"voice": "nova", "speed": 1.5, "empty": ""}}
	if got := e.StringOption("voice", "alloy"); got != "nova" {
		t.Errorf("voice: got %q", got)
	}
	if got := e.StringOption("speed", "x"); got != "x" {
		t.Errorf("non-string option: got %q, want default", got)
	}
	if got := e.StringOption("empty", "d"); got != "d" {
		t.Errorf("empty option: got %q, want default", got)
	}
	if got := (config.ProviderEntry{}).StringOption("voice", "alloy"); got != "alloy" {
		t.Errorf("nil options: got %q", got)
	}
}
