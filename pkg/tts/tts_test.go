package tts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-voicechat/pkg/tts"
)

func TestEncoding(t *testing.T) {
	tests := []struct {
		enc  tts.Encoding
		rate int
		pcm  bool
	}{
		{tts.EncodingPCM16, 16000, true},
		{tts.EncodingPCM22, 22050, true},
		{tts.EncodingPCM24, 24000, true},
		{tts.EncodingPCM44, 44100, true},
		{tts.EncodingMP3, 44100, false},
		{"opus", 0, false},
		{"pcm_fast", 0, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.enc), func(t *testing.T) {
			if got := tt.enc.SampleRate(); got != tt.rate {
				t.Errorf("SampleRate() = %d, want %d", got, tt.rate)
			}
			if got := tt.enc.IsPCM(); got != tt.pcm {
				t.Errorf("IsPCM() = %v, want %v", got, tt.pcm)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name   string
		format tts.Format
		bytes  int
		want   time.Duration
	}{
		{"one second mono", tts.FormatOf(tts.EncodingPCM24), 48000, time.Second},
		{"stereo halves", tts.Format{Encoding: tts.EncodingPCM16, SampleRate: 16000, Channels: 2}, 64000, time.Second},
		{"channels default to mono", tts.Format{SampleRate: 16000}, 3200, 100 * time.Millisecond},
		{"unknown rate", tts.Format{}, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.Duration(tt.bytes); got != tt.want {
				t.Errorf("Duration(%d) = %v, want %v", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestMock(t *testing.T) {
	ctx := context.Background()
	m := tts.NewMock()

	audio, err := m.Synthesize(ctx, "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := audio.Duration(); got != 100*time.Millisecond {
		t.Errorf("Duration() = %v, want 100ms", got)
	}

	stream, err := m.Stream(ctx, "hi")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	data, err := tts.ReadAll(stream)
	if err != nil || len(data) != 2*960 {
		t.Errorf("ReadAll = %d bytes, %v", len(data), err)
	}

	if _, err := m.Synthesize(ctx, "  "); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("empty text error = %v", err)
	}
	if got := m.Texts(); len(got) != 3 || got[0] != "hello" || got[1] != "hi" {
		t.Errorf("Texts() = %q", got)
	}

	m.Close()
	if !m.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestMock_DelayHonoursContext(t *testing.T) {
	m := &tts.Mock{Delay: time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := m.Synthesize(ctx, "slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	down := errors.New("service down")

	t.Run("requires providers", func(t *testing.T) {
		if _, err := tts.NewChain(nil); !errors.Is(err, tts.ErrNoProviders) {
			t.Errorf("NewChain() error = %v", err)
		}
	})

	t.Run("primary answers", func(t *testing.T) {
		primary, backup := tts.NewMock(), tts.NewMock()
		chain, _ := tts.NewChain(nil, primary, backup)

		if _, err := chain.Synthesize(ctx, "hello"); err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		if len(backup.Texts()) != 0 {
			t.Error("backup should not be called")
		}
	})

	t.Run("falls back", func(t *testing.T) {
		primary, backup := tts.Failing(down), tts.NewMock()
		chain, _ := tts.NewChain(nil, primary, backup)

		stream, err := chain.Stream(ctx, "hello")
		if err != nil {
			t.Fatalf("Stream: %v", err)
		}
		stream.Close()
		if len(primary.Texts()) != 1 || len(backup.Texts()) != 1 {
			t.Error("both providers should be tried once")
		}
	})

	t.Run("all fail", func(t *testing.T) {
		chain, _ := tts.NewChain(nil, tts.Failing(down), tts.Failing(tts.ErrNoVoice))

		_, err := chain.Synthesize(ctx, "hello")
		var fe *tts.FallbackError
		if !errors.As(err, &fe) || len(fe.Errs) != 2 {
			t.Fatalf("error = %v, want FallbackError with 2 failures", err)
		}
		if !errors.Is(err, down) || !errors.Is(err, tts.ErrNoVoice) {
			t.Error("FallbackError should unwrap to every failure")
		}
	})

	t.Run("empty text stops at first provider", func(t *testing.T) {
		backup := tts.NewMock()
		chain, _ := tts.NewChain(nil, tts.NewMock(), backup)

		if _, err := chain.Synthesize(ctx, ""); !errors.Is(err, tts.ErrEmptyText) {
			t.Errorf("error = %v, want ErrEmptyText", err)
		}
		if len(backup.Texts()) != 0 {
			t.Error("backup should not be asked to speak empty text")
		}
	})

	t.Run("name and close", func(t *testing.T) {
		a, b := tts.NewMock(), tts.NewMock()
		chain, _ := tts.NewChain(nil, a, b)
		if chain.Name() != "mock>mock" {
			t.Errorf("Name() = %q", chain.Name())
		}
		if err := chain.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if !a.Closed() || !b.Closed() {
			t.Error("Close should close every provider")
		}
	})
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		status    int
		temporary bool
	}{
		{400, false},
		{401, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		e := &tts.APIError{Provider: "openai", StatusCode: tt.status, Message: "x"}
		if e.Temporary() != tt.temporary {
			t.Errorf("status %d: Temporary() = %v", tt.status, e.Temporary())
		}
	}

	e := &tts.APIError{Provider: "elevenlabs", StatusCode: 404, Message: "voice not found"}
	if e.Error() != "tts elevenlabs: status 404: voice not found" {
		t.Errorf("Error() = %q", e.Error())
	}
}

func TestConstructorsValidate(t *testing.T) {
	tests := []struct {
		name string
		new  func() error
		want error
	}{
		{"openai without key", func() error { _, err := tts.NewOpenAI(); return err }, tts.ErrNoAPIKey},
		{"elevenlabs without key", func() error { _, err := tts.NewElevenLabs(tts.WithVoice("v")); return err }, tts.ErrNoAPIKey},
		{"elevenlabs without voice", func() error { _, err := tts.NewElevenLabs(tts.WithAPIKey("k")); return err }, tts.ErrNoVoice},
		{"openai ok", func() error { _, err := tts.NewOpenAI(tts.WithAPIKey("k")); return err }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.new(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
