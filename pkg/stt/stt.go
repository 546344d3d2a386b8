// Package stt turns finished recordings into text.
//
// Deepgram's pre-recorded /v1/listen endpoint and OpenAI Whisper implement
// Provider; NewChain falls back from one to the next. Transcriber narrows a
// Provider to Transcribe(audio, mimeType), which is what the voice session
// and the HTTP transcription route need.
//
//	dg, _ := stt.NewDeepgram(stt.WithAPIKey(key))
//	text, err := stt.NewTranscriber(dg, "").Transcribe(ctx, flac, stt.MimeFLAC)
package stt

import (
	"context"
	"strings"
	"time"
)

// Provider transcribes one complete recording per call.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, req *Request) (*Result, error)
	Close() error
}

// Request is a pre-recorded upload.
type Request struct {
	Audio    []byte
	MimeType string
	// Language is a BCP-47 tag such as "en-US". Empty uses the provider's
	// configured language.
	Language string
}

// Result is the best alternative a provider recognized.
type Result struct {
	Text       string
	Confidence float64
	// Duration is the audio length as measured by the provider.
	Duration time.Duration
	Latency  time.Duration
}

const (
	MimeFLAC = "audio/flac"
	MimeWAV  = "audio/wav"
	MimeWebM = "audio/webm"
	MimeOGG  = "audio/ogg"
	MimeMP3  = "audio/mpeg"
)

var extensions = map[string]string{
	MimeFLAC:       "flac",
	"audio/x-flac": "flac",
	MimeWAV:        "wav",
	"audio/x-wav":  "wav",
	"audio/wave":   "wav",
	MimeOGG:        "ogg",
	MimeMP3:        "mp3",
	"audio/mp3":    "mp3",
	"audio/mp4":    "m4a",
	"audio/m4a":    "m4a",
	"audio/x-m4a":  "m4a",
}

// extensionFor names the multipart file for an upload. Unknown types are
// assumed to be browser WebM.
func extensionFor(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	if ext, ok := extensions[strings.TrimSpace(base)]; ok {
		return ext
	}
	return "webm"
}
