package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/leeconmigo/pkg/provider/tts"
	"github.com/MrWong99/leeconmigo/pkg/provider/tts/openai"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()
	if _, err := openai.New("", ""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestSynthesize(t *testing.T) {
	t.Parallel()
	var body map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-mp3-bytes"))
	}))
	defer srv.Close()

	p, err := openai.New("sk-test", "", openai.WithBaseURL(srv.URL+"/v1/"), openai.WithVoice("shimmer"))
	if err != nil {
		t.Fatal(err)
	}
	clip, err := p.Synthesize(context.Background(), "can... ten...", tts.Voice{SpeedFactor: 0.1})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(clip.Data) != "ID3-mp3-bytes" || clip.MIMEType != "audio/mpeg" {
		t.Errorf("clip = %q (%s)", clip.Data, clip.MIMEType)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if body["model"] != "tts-1" || body["voice"] != "shimmer" || body["input"] != "can... ten..." {
		t.Errorf("request body = %v", body)
	}
	if body["speed"] != 0.25 {
		t.Errorf("speed = %v, want clamped 0.25", body["speed"])
	}
	if body["response_format"] != "mp3" {
		t.Errorf("response_format = %v", body["response_format"])
	}
}

func TestSynthesize_DefaultVoice(t *testing.T) {
	t.Parallel()
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	p, err := openai.New("sk-test", "", openai.WithBaseURL(srv.URL+"/v1/"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Synthesize(context.Background(), "viven", tts.Voice{}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if body["voice"] != string(openai.DefaultVoice) {
		t.Errorf("voice = %v, want nova", body["voice"])
	}
	if _, ok := body["speed"]; ok {
		t.Errorf("speed sent without a speed factor: %v", body["speed"])
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad voice","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p, err := openai.New("sk-test", "tts-1-hd", openai.WithBaseURL(srv.URL+"/v1/"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Synthesize(context.Background(), "hola", tts.Voice{ID: "nope"}); err == nil {
		t.Fatal("expected error for 400 response")
	}
}
