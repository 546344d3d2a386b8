package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-voicechat/pkg/tts"
)

func TestOpenAISynthesize(t *testing.T) {
	pcm := make([]byte, 48000) // one second at 24kHz PCM16

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("expected /audio/speech, got %s", r.URL.Path)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["response_format"] != "pcm" {
			t.Errorf("expected pcm format, got %v", body["response_format"])
		}
		if body["voice"] != tts.VoiceShimmer {
			t.Errorf("expected shimmer voice, got %v", body["voice"])
		}
		if body["input"] != "Hello world" {
			t.Errorf("unexpected input %v", body["input"])
		}
		w.Header().Set("Content-Type", "audio/pcm")
		w.Write(pcm)
	}))
	defer server.Close()

	provider, err := tts.NewOpenAI(tts.WithAPIKey("test-key"), tts.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := provider.Synthesize(context.Background(), "Hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Data) != len(pcm) {
		t.Errorf("expected %d bytes, got %d", len(pcm), len(result.Data))
	}
	if result.Format.SampleRate != 24000 || result.Format.Encoding != tts.EncodingPCM24 {
		t.Errorf("unexpected format %+v", result.Format)
	}
	if result.Duration() != time.Second {
		t.Errorf("expected 1s duration, got %v", result.Duration())
	}
}

func TestOpenAIStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 10000))
	}))
	defer server.Close()

	provider, _ := tts.NewOpenAI(tts.WithAPIKey("test-key"), tts.WithBaseURL(server.URL))
	stream, err := provider.Stream(context.Background(), "Hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	audio, err := tts.ReadAll(stream)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if len(audio) != 10000 {
		t.Errorf("expected 10000 bytes, got %d", len(audio))
	}
	if _, err := stream.Read(); !errors.Is(err, tts.ErrStreamClosed) {
		t.Errorf("expected ErrStreamClosed after close, got %v", err)
	}
}

func TestOpenAIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	provider, _ := tts.NewOpenAI(tts.WithAPIKey("bad"), tts.WithBaseURL(server.URL))
	_, err := provider.Synthesize(context.Background(), "Hello")

	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Temporary() {
		t.Errorf("expected a permanent 401, got %d", apiErr.StatusCode)
	}
}

func TestEmptyText(t *testing.T) {
	openai, _ := tts.NewOpenAI(tts.WithAPIKey("k"))
	eleven, _ := tts.NewElevenLabs(tts.WithAPIKey("k"), tts.WithVoice("v"))

	for _, p := range []tts.Provider{openai, eleven} {
		if _, err := p.Synthesize(context.Background(), "  "); !errors.Is(err, tts.ErrEmptyText) {
			t.Errorf("expected ErrEmptyText, got %v", err)
		}
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/voice-1/stream" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("output_format"); got != "pcm_24000" {
			t.Errorf("expected pcm_24000, got %s", got)
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Error("missing xi-api-key header")
		}
		var body struct {
			Text          string                 `json:"text"`
			VoiceSettings map[string]interface{} `json:"voice_settings"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Text != "Hello" {
			t.Errorf("unexpected text %q", body.Text)
		}
		if body.VoiceSettings["speed"] != 1.0 {
			t.Errorf("expected speed 1.0, got %v", body.VoiceSettings["speed"])
		}
		w.Write(make([]byte, 4800))
	}))
	defer server.Close()

	provider, err := tts.NewElevenLabs(
		tts.WithAPIKey("test-key"),
		tts.WithVoice("voice-1"),
		tts.WithBaseURL(server.URL),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := provider.Synthesize(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Duration() != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", result.Duration())
	}
}

func TestElevenLabsRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"detail":{"message":"busy","status":"busy"}}`))
			return
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["text"] != "again" {
			t.Errorf("retry lost request body: %v %v", err, body)
		}
		w.Write(make([]byte, 100))
	}))
	defer server.Close()

	provider, _ := tts.NewElevenLabs(
		tts.WithAPIKey("test-key"),
		tts.WithVoice("v"),
		tts.WithBaseURL(server.URL),
		tts.WithRetry(2, time.Millisecond),
	)

	if _, err := provider.Synthesize(context.Background(), "again"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestElevenLabsErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":{"message":"voice not found","status":"voice_not_found"}}`))
	}))
	defer server.Close()

	provider, _ := tts.NewElevenLabs(tts.WithAPIKey("k"), tts.WithVoice("v"), tts.WithBaseURL(server.URL))
	_, err := provider.Synthesize(context.Background(), "Hello")

	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "voice not found" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

func TestElevenLabsNoRetryOnClientError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider, _ := tts.NewElevenLabs(
		tts.WithAPIKey("k"),
		tts.WithVoice("v"),
		tts.WithBaseURL(server.URL),
		tts.WithRetry(3, time.Millisecond),
	)
	if _, err := provider.Stream(context.Background(), "Hello"); err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}
