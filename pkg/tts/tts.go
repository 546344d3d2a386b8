// Package tts turns assistant replies into speech audio.
//
// Providers deliver raw mono PCM16 so the speech engine can hand it straight
// to a speaker sink. OpenAI is the default voice; ElevenLabs serves a
// configured custom voice. A Chain falls back from one provider to the next.
package tts

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Provider synthesizes speech.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// Synthesize returns the whole utterance.
	Synthesize(ctx context.Context, text string) (*Audio, error)

	// Stream returns audio as the service produces it.
	Stream(ctx context.Context, text string) (AudioStream, error)

	Close() error
}

// AudioStream yields audio in chunks. Read returns nil, nil at the end.
type AudioStream interface {
	Read() ([]byte, error)
	Format() Format
	Close() error
}

// Audio is a complete synthesized utterance.
type Audio struct {
	Data    []byte
	Format  Format
	Latency time.Duration
}

// Duration is the playback length of a PCM utterance.
func (a *Audio) Duration() time.Duration {
	return a.Format.Duration(len(a.Data))
}

// Encoding names an output format the way ElevenLabs does:
// codec_rate[_bitrate].
type Encoding string

const (
	EncodingPCM16 Encoding = "pcm_16000"
	EncodingPCM22 Encoding = "pcm_22050"
	EncodingPCM24 Encoding = "pcm_24000"
	EncodingPCM44 Encoding = "pcm_44100"
	EncodingMP3   Encoding = "mp3_44100_128"
)

// IsPCM reports whether e is raw PCM16.
func (e Encoding) IsPCM() bool {
	return strings.HasPrefix(string(e), "pcm_")
}

// SampleRate parses the rate out of the encoding name, or returns 0.
func (e Encoding) SampleRate() int {
	parts := strings.Split(string(e), "_")
	if len(parts) < 2 {
		return 0
	}
	rate, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return rate
}

// Format describes delivered audio.
type Format struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// FormatOf returns the mono format of an encoding.
func FormatOf(e Encoding) Format {
	return Format{Encoding: e, SampleRate: e.SampleRate(), Channels: 1}
}

// Duration returns the playback length of n bytes of PCM16 in this format.
func (f Format) Duration(n int) time.Duration {
	channels := max(f.Channels, 1)
	if f.SampleRate <= 0 {
		return 0
	}
	frames := n / 2 / channels
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}
