// Package whisper provides a whisper.cpp-backed STT provider.
//
// It connects to a running whisper-server binary, which exposes a REST API at
// POST /inference, and submits each recorded attempt as one multipart upload.
// Recordings whose energy stays below a silence threshold are answered
// locally with an empty transcript, saving a round trip for attempts where
// the learner said nothing.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8081",
//	    whisper.WithLanguage("es"),
//	)
//	tr, err := p.Transcribe(ctx, stt.Request{Audio: wav, Format: stt.FormatWAV})
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/leeconmigo/pkg/provider/stt"
)

const (
	// defaultRMSThreshold is the root-mean-square energy level (in 16-bit PCM
	// units) below which a recording is considered silent. The maximum
	// possible value for 16-bit audio is 32 767; 300 corresponds to
	// near-silence.
	defaultRMSThreshold = 300.0

	defaultLanguage = "es"
	defaultTimeout  = 30 * time.Second
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "small"). When empty the server uses whichever model it was started
// with, which is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the language code sent to the whisper.cpp server when a
// request carries none. BCP-47 region subtags are stripped ("es-ES" → "es").
// Defaults to "es".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		if lang != "" {
			p.language = baseLanguage(lang)
		}
	}
}

// WithSilenceThreshold sets the RMS energy below which a recording is
// treated as silence. Zero disables the check.
func WithSilenceThreshold(rms float64) Option {
	return func(p *Provider) {
		p.silenceRMS = rms
	}
}

// WithHTTPClient replaces the default HTTP client (30 s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// Provider implements stt.Provider backed by a whisper.cpp HTTP server.
type Provider struct {
	serverURL  string
	model      string
	language   string
	silenceRMS float64
	httpClient *http.Client
}

// New creates a new Provider that connects to the whisper.cpp HTTP server at
// serverURL (e.g., "http://localhost:8081"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		silenceRMS: defaultRMSThreshold,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe uploads one recording to the /inference endpoint. The audio is
// down-mixed to mono before upload. The request's Prompt words are passed
// as whisper's initial prompt.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	var pcm pcmAudio
	switch req.Format {
	case stt.FormatWAV, "":
		a, err := decodeWAV(req.Audio)
		if err != nil {
			return stt.Transcript{}, fmt.Errorf("whisper: %w", err)
		}
		pcm = a
	case stt.FormatPCM16:
		if req.SampleRate <= 0 || req.Channels <= 0 {
			return stt.Transcript{}, errors.New("whisper: pcm16 request needs sample rate and channels")
		}
		pcm = pcmAudio{data: req.Audio, sampleRate: req.SampleRate, channels: req.Channels}
	default:
		return stt.Transcript{}, fmt.Errorf("whisper: %w: %q", stt.ErrUnsupportedFormat, req.Format)
	}

	pcm = pcm.mono()
	dur := pcm.duration()
	if len(pcm.data) < 2 || (p.silenceRMS > 0 && computeRMS(pcm.data) < p.silenceRMS) {
		return stt.Transcript{Duration: dur}, nil
	}

	lang := p.language
	if req.Language != "" {
		lang = baseLanguage(req.Language)
	}

	text, err := p.infer(ctx, encodeWAV(pcm), lang, strings.Join(req.Prompt, " "))
	if err != nil {
		return stt.Transcript{}, err
	}
	return stt.Transcript{Text: text, Duration: dur}, nil
}

// infer POSTs wav to the whisper.cpp /inference endpoint as
// multipart/form-data and returns the transcribed text.
func (p *Provider) infer(ctx context.Context, wav []byte, lang, prompt string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "attempt.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}

	fields := [][2]string{
		{"response_format", "json"},
		{"language", lang},
		{"model", p.model},
		{"prompt", prompt},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("whisper: write %s field: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("whisper: server returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}

// baseLanguage strips region and script subtags from a BCP-47 tag.
func baseLanguage(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		return strings.ToLower(tag[:i])
	}
	return strings.ToLower(tag)
}
