package whisper_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrWong99/leeconmigo/pkg/provider/stt"
	"github.com/MrWong99/leeconmigo/pkg/provider/stt/whisper"
)

// ---- helpers ----------------------------------------------------------------

// inferenceForm captures the multipart fields of one /inference request.
type inferenceForm struct {
	fields map[string]string
	wav    []byte
}

// newMockServer creates a test server that responds to POST /inference with
// responseText and records each request's form.
func newMockServer(t *testing.T, responseText string) (*httptest.Server, func() []inferenceForm) {
	t.Helper()
	var (
		mu    sync.Mutex
		forms []inferenceForm
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f := inferenceForm{fields: map[string]string{}}
		for k, v := range r.MultipartForm.Value {
			f.fields[k] = v[0]
		}
		if file, _, err := r.FormFile("file"); err == nil {
			f.wav, _ = io.ReadAll(file)
			file.Close()
		}
		mu.Lock()
		forms = append(forms, f)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": responseText})
	}))
	t.Cleanup(srv.Close)
	return srv, func() []inferenceForm {
		mu.Lock()
		defer mu.Unlock()
		return append([]inferenceForm(nil), forms...)
	}
}

// makeSpeechPCM generates a 440 Hz sine wave whose RMS (≈7071) is well above
// the silence threshold.
func makeSpeechPCM(samples, channels int) []byte {
	const amplitude = 10_000.0
	buf := make([]byte, samples*channels*2)
	for i := range samples {
		v := int16(amplitude * math.Sin(2*math.Pi*440*float64(i)/16000))
		for ch := range channels {
			binary.LittleEndian.PutUint16(buf[(i*channels+ch)*2:], uint16(v))
		}
	}
	return buf
}

// wrapWAV builds a minimal 16-bit PCM WAV file around pcm.
func wrapWAV(pcm []byte, sampleRate, channels int) []byte {
	buf := make([]byte, 44+len(pcm))
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+len(pcm)))
	copy(buf[8:], "WAVE")
	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1)
	binary.LittleEndian.PutUint16(buf[22:], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:], uint32(sampleRate*channels*2))
	binary.LittleEndian.PutUint16(buf[32:], uint16(channels*2))
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(len(pcm)))
	copy(buf[44:], pcm)
	return buf
}

func mustNew(t *testing.T, url string, opts ...whisper.Option) *whisper.Provider {
	t.Helper()
	p, err := whisper.New(url, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// ---- provider construction --------------------------------------------------

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	t.Parallel()
	if _, err := whisper.New(""); err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

// ---- transcription ----------------------------------------------------------

func TestTranscribe_WAV(t *testing.T) {
	t.Parallel()
	srv, forms := newMockServer(t, " que viven en paz \n")
	p := mustNew(t, srv.URL+"/")

	tr, err := p.Transcribe(context.Background(), stt.Request{
		Audio:    wrapWAV(makeSpeechPCM(16000, 1), 16000, 1),
		Format:   stt.FormatWAV,
		Language: "es-ES",
		Prompt:   []string{"viven", "paz"},
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "que viven en paz" {
		t.Errorf("Text = %q, want trimmed transcript", tr.Text)
	}
	if tr.Duration != time.Second {
		t.Errorf("Duration = %s, want 1s", tr.Duration)
	}

	got := forms()
	if len(got) != 1 {
		t.Fatalf("server saw %d requests, want 1", len(got))
	}
	f := got[0]
	if f.fields["language"] != "es" {
		t.Errorf("language field = %q, want es", f.fields["language"])
	}
	if f.fields["prompt"] != "viven paz" {
		t.Errorf("prompt field = %q", f.fields["prompt"])
	}
	if f.fields["response_format"] != "json" {
		t.Errorf("response_format field = %q", f.fields["response_format"])
	}
	if _, ok := f.fields["model"]; ok {
		t.Error("model field sent although no model configured")
	}
	if len(f.wav) != 44+32000 || string(f.wav[:4]) != "RIFF" {
		t.Errorf("uploaded wav has %d bytes, want 32044", len(f.wav))
	}
}

func TestTranscribe_PCMStereoIsDownmixed(t *testing.T) {
	t.Parallel()
	srv, forms := newMockServer(t, "dolor")
	p := mustNew(t, srv.URL, whisper.WithModel("small"), whisper.WithLanguage("es-MX"))

	tr, err := p.Transcribe(context.Background(), stt.Request{
		Audio:      makeSpeechPCM(8000, 2),
		Format:     stt.FormatPCM16,
		SampleRate: 16000,
		Channels:   2,
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "dolor" {
		t.Errorf("Text = %q", tr.Text)
	}

	f := forms()[0]
	if f.fields["model"] != "small" || f.fields["language"] != "es" {
		t.Errorf("fields = %v", f.fields)
	}
	if ch := binary.LittleEndian.Uint16(f.wav[22:24]); ch != 1 {
		t.Errorf("uploaded channel count = %d, want 1", ch)
	}
	if len(f.wav) != 44+16000 {
		t.Errorf("uploaded wav has %d bytes, want %d", len(f.wav), 44+16000)
	}
}

func TestTranscribe_SilenceSkipsServer(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()
	p := mustNew(t, srv.URL)

	tr, err := p.Transcribe(context.Background(), stt.Request{
		Audio:  wrapWAV(make([]byte, 3200), 16000, 1),
		Format: stt.FormatWAV,
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "" {
		t.Errorf("Text = %q, want empty for silence", tr.Text)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("server called %d times for silent audio", n)
	}
}

func TestTranscribe_Errors(t *testing.T) {
	t.Parallel()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	t.Cleanup(failing.Close)
	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	t.Cleanup(garbage.Close)

	speech := wrapWAV(makeSpeechPCM(1600, 1), 16000, 1)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		url  string
		ctx  context.Context
		req  stt.Request
		want string
	}{
		{"server error", failing.URL, context.Background(), stt.Request{Audio: speech}, "HTTP 500"},
		{"bad json", garbage.URL, context.Background(), stt.Request{Audio: speech}, "parse JSON"},
		{"not wav", failing.URL, context.Background(), stt.Request{Audio: []byte("OggS....")}, "invalid wav"},
		{"pcm without format", failing.URL, context.Background(), stt.Request{Audio: speech, Format: stt.FormatPCM16}, "sample rate"},
		{"cancelled", failing.URL, cancelled, stt.Request{Audio: speech}, "cancelled"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := mustNew(t, tc.url)
			_, err := p.Transcribe(tc.ctx, tc.req)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should contain %q", err, tc.want)
			}
		})
	}
}

func TestTranscribe_UnsupportedFormat(t *testing.T) {
	t.Parallel()
	p := mustNew(t, "http://localhost:1")
	_, err := p.Transcribe(context.Background(), stt.Request{Audio: []byte{1, 2}, Format: "opus"})
	if !errors.Is(err, stt.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}
