package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only settings that can be applied without a restart are tracked; listen
// address, TLS and provider changes need a new process.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// TutorChanged is set when any tutor setting differs. New sessions pick
	// up the new values; running sessions keep theirs.
	TutorChanged bool

	// SongChanged is set when the song title or phrases differ.
	SongChanged bool

	// RestartRequired is set when a changed setting cannot be hot-reloaded.
	RestartRequired bool
}

// Empty reports whether d carries no changes.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.TutorChanged && !d.SongChanged && !d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	d.TutorChanged = old.Tutor != new.Tutor

	d.SongChanged = old.Song.Title != new.Song.Title ||
		!slices.Equal(old.Song.Phrases, new.Song.Phrases)

	d.RestartRequired = old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Server.LogFormat != new.Server.LogFormat ||
		old.Server.ProgressFile != new.Server.ProgressFile ||
		!tlsEqual(old.Server.TLS, new.Server.TLS) ||
		!providerEqual(old.Providers.STT, new.Providers.STT) ||
		!providerEqual(old.Providers.TTS, new.Providers.TTS) ||
		!slices.EqualFunc(old.Providers.STTFallbacks, new.Providers.STTFallbacks, providerEqual) ||
		!slices.EqualFunc(old.Providers.TTSFallbacks, new.Providers.TTSFallbacks, providerEqual)

	return d
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// providerEqual compares options by key set only; values are opaque.
func providerEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	if len(a.Options) != len(b.Options) {
		return false
	}
	for k := range a.Options {
		if _, ok := b.Options[k]; !ok {
			return false
		}
	}
	return true
}
