package audioio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestMockSource_StartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx := context.Background()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Starting again should be a no-op
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}
	if src.Starts() != 1 {
		t.Errorf("Starts = %d, want 1", src.Starts())
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
	if src.Running() {
		t.Error("source still running after Stop")
	}
}

func TestMockSource_Read(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if want := cfg.BufferSize() * cfg.Channels; len(chunk.Samples) != want {
		t.Errorf("Expected %d samples, got %d", want, len(chunk.Samples))
	}
	if chunk.SampleRate != cfg.SampleRate {
		t.Errorf("Expected sample rate %d, got %d", cfg.SampleRate, chunk.SampleRate)
	}
}

func TestMockSource_SineWave(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil, WithSineWave(440, 0.5))
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if Level(chunk.Samples) == 0 {
		t.Error("Expected non-zero samples from sine wave generator")
	}
}

func TestMockSource_ScriptDrainsAfterStop(t *testing.T) {
	script := []AudioChunk{
		{Samples: []int16{1, 2}, SampleRate: 16000, Channels: 1},
		{Samples: []int16{3}, SampleRate: 16000, Channels: 1},
	}
	src := NewMockSource(DefaultConfig(), nil, WithScript(script...))
	defer src.Close()

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Let the generator hand both chunks to the buffered stream.
	deadline := time.Now().Add(time.Second)
	for src.Stats().Chunks < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	stream := src.Stream()
	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	var got []int16
	for chunk := range stream {
		got = append(got, chunk.Samples...)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("drained samples = %v, want [1 2 3]", got)
	}
}

func TestMockSource_StartError(t *testing.T) {
	denied := errors.New("permission denied")
	src := NewMockSource(DefaultConfig(), nil, WithStartError(denied))

	if err := src.Start(context.Background()); !errors.Is(err, denied) {
		t.Errorf("Start error = %v, want %v", err, denied)
	}
	if src.Running() {
		t.Error("source should not be running after a failed Start")
	}
}

func TestMockSource_Close(t *testing.T) {
	src := NewMockSource(DefaultConfig(), nil)

	ctx := context.Background()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := src.Start(ctx); err != io.ErrClosedPipe {
		t.Errorf("Expected ErrClosedPipe after close, got: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
	if !src.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestMockSource_ReadAfterStopReturnsEOF(t *testing.T) {
	src := NewMockSource(DefaultConfig(), nil, WithScript())
	if _, err := src.Read(context.Background()); err != io.EOF {
		t.Errorf("Read before Start = %v, want io.EOF", err)
	}
}

func TestMockSink_WriteFlushClear(t *testing.T) {
	sink := NewMockSink(PlaybackConfig(), nil)
	defer sink.Close()

	ctx := context.Background()
	if err := sink.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunk := AudioChunk{Samples: make([]int16, 480), SampleRate: 24000, Channels: 1}
	if err := sink.Write(ctx, chunk); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if stats := sink.Stats(); stats.Chunks != 1 || stats.Buffered != 480 {
		t.Errorf("unexpected stats after write: %+v", stats)
	}

	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if sink.Stats().Buffered != 0 {
		t.Error("Flush should drain queued audio")
	}

	if err := sink.Write(ctx, chunk); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sink.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if sink.Stats().Chunks != 2 {
		t.Errorf("Expected 2 chunks written, got %d", sink.Stats().Chunks)
	}
	if len(sink.Written()) != 960 {
		t.Errorf("Written() has %d samples, want 960", len(sink.Written()))
	}
	if sink.Clears() != 1 {
		t.Errorf("Clears() = %d, want 1", sink.Clears())
	}
}

func TestMockSink_ClearInterruptsRealtimeFlush(t *testing.T) {
	sink := NewMockSink(PlaybackConfig(), nil, WithRealtime())
	defer sink.Close()

	ctx := context.Background()
	if err := sink.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Ten seconds of audio.
	long := AudioChunk{Samples: make([]int16, 240000), SampleRate: 24000, Channels: 1}
	if err := sink.Write(ctx, long); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- sink.Flush(ctx) }()

	time.Sleep(20 * time.Millisecond)
	if err := sink.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Flush returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Flush did not return after Clear")
	}
}

func TestMockSink_NotRunning(t *testing.T) {
	sink := NewMockSink(PlaybackConfig(), nil)
	defer sink.Close()

	chunk := AudioChunk{Samples: make([]int16, 480), SampleRate: 24000, Channels: 1}
	if err := sink.Write(context.Background(), chunk); err == nil {
		t.Error("Expected error when writing to non-running sink")
	}
}

func TestAudioChunk_Bytes(t *testing.T) {
	chunk := AudioChunk{Samples: []int16{0x0102, 0x0304, -1}, SampleRate: 24000, Channels: 1}

	b := chunk.Bytes()
	if len(b) != 6 {
		t.Fatalf("Expected 6 bytes, got %d", len(b))
	}
	if b[0] != 0x02 || b[1] != 0x01 {
		t.Errorf("First sample not little-endian: %v", b[0:2])
	}

	var back AudioChunk
	back.FromBytes(b, 24000, 1)
	if back.Samples[2] != -1 {
		t.Errorf("Third sample = %d, want -1", back.Samples[2])
	}
}

func TestAudioChunk_Duration(t *testing.T) {
	tests := []struct {
		name  string
		chunk AudioChunk
		want  time.Duration
	}{
		{"mono 20ms", AudioChunk{Samples: make([]int16, 480), SampleRate: 24000, Channels: 1}, 20 * time.Millisecond},
		{"stereo 10ms", AudioChunk{Samples: make([]int16, 320), SampleRate: 16000, Channels: 2}, 10 * time.Millisecond},
		{"no rate", AudioChunk{Samples: make([]int16, 10)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.chunk.Duration(); got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", BackendAuto, false},
		{"malgo", BackendMalgo, false},
		{"mock", BackendMock, false},
		{"alsa", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseBackend(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewSource_Mock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock

	src, err := NewSource(cfg, nil)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	defer src.Close()
	if src.Name() != "mock" {
		t.Errorf("Name() = %q, want mock", src.Name())
	}

	cfg.Channels = 0
	if _, err := NewSink(cfg, nil); err == nil {
		t.Error("expected validation error for zero channels")
	}
}
