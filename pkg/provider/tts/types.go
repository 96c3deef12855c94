package tts

// Voice selects how text is spoken.
type Voice struct {
	// ID is the provider-specific voice identifier. Empty uses the
	// provider default.
	ID string

	// SpeedFactor adjusts speaking rate, 1.0 = normal. Zero means normal.
	// Providers clamp it to their supported range.
	SpeedFactor float64

	// Language is the BCP-47 tag of the text (e.g., "es-ES").
	Language string
}

// Audio is an encoded audio clip.
type Audio struct {
	Data []byte

	// MIMEType describes Data, e.g. "audio/mpeg" or "audio/wav".
	MIMEType string
}
