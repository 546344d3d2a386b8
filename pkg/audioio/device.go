package audioio

import (
	"context"
	"io"
	"time"
)

// AudioChunk is interleaved PCM16 audio.
type AudioChunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Bytes encodes the samples as little-endian PCM16.
func (c *AudioChunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// FromBytes replaces the chunk with decoded little-endian PCM16.
func (c *AudioChunk) FromBytes(data []byte, sampleRate, channels int) {
	*c = AudioChunk{Samples: BytesToSamples(data), SampleRate: sampleRate, Channels: channels}
}

// Duration is the playback length. A chunk without a rate has none.
func (c *AudioChunk) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Device is the part of a microphone or speaker the session controls.
// Stop is idempotent; a closed device cannot be started again.
type Device interface {
	Start(ctx context.Context) error
	Stop() error
	Config() Config
	// Name is the backend, "malgo" or "mock".
	Name() string
	io.Closer
}

// Source is a microphone. Every Start opens a fresh stream that is closed
// by the matching Stop, after chunks already captured have been delivered.
type Source interface {
	Device
	// Read returns the next chunk, or io.EOF once the stream is closed.
	Read(ctx context.Context) (AudioChunk, error)
	Stream() <-chan AudioChunk
}

// Sink is a speaker. Write queues audio; Flush blocks until the queue has
// played and Clear drops it, releasing any pending Flush.
type Sink interface {
	Device
	Write(ctx context.Context, chunk AudioChunk) error
	Flush(ctx context.Context) error
	Clear() error
}

// Stats counts the traffic through a device since it was created.
type Stats struct {
	Backend string `json:"backend"`
	Running bool   `json:"running"`
	Chunks  int64  `json:"chunks"`
	Samples int64  `json:"samples"`
	// Dropped counts capture overruns or playback underruns.
	Dropped int64 `json:"dropped"`
	// Buffered is the number of samples queued for playback.
	Buffered int64 `json:"buffered,omitempty"`
}

// StatsReporter is implemented by every device in this package.
type StatsReporter interface {
	Stats() Stats
}

var (
	_ Source        = (*MalgoSource)(nil)
	_ Sink          = (*MalgoSink)(nil)
	_ Source        = (*MockSource)(nil)
	_ Sink          = (*MockSink)(nil)
	_ StatsReporter = (*MalgoSource)(nil)
	_ StatsReporter = (*MalgoSink)(nil)
	_ StatsReporter = (*MockSource)(nil)
	_ StatsReporter = (*MockSink)(nil)
)
