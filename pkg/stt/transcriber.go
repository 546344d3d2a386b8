package stt

import (
	"context"
	"strings"
)

// Transcriber adapts a Provider to a plain text contract.
type Transcriber struct {
	provider Provider
	language string
}

// NewTranscriber wraps p. An empty language uses the provider default.
func NewTranscriber(p Provider, language string) *Transcriber {
	return &Transcriber{provider: p, language: language}
}

// Transcribe returns the recognized text. A blank result is ErrEmptyTranscript.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	result, err := t.provider.Transcribe(ctx, &Request{
		Audio:    audio,
		MimeType: mimeType,
		Language: t.language,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

// Provider returns the wrapped provider.
func (t *Transcriber) Provider() Provider {
	return t.provider
}
