// Package services builds the hosted-service clients and snapshot storage
// from environment configuration. Providers are tried in the order they are
// listed; the first configured one is primary and the rest are fallbacks.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-voicechat/internal/config"
	"github.com/teslashibe/go-voicechat/pkg/inference"
	"github.com/teslashibe/go-voicechat/pkg/snapshot"
	"github.com/teslashibe/go-voicechat/pkg/stt"
	"github.com/teslashibe/go-voicechat/pkg/tts"
)

// ErrNotConfigured is returned when no provider for a service has credentials.
var ErrNotConfigured = errors.New("services: no provider configured")

// Generator builds the text generator: Gemini first, then OpenAI.
func Generator(ctx context.Context, p config.Providers, logger *slog.Logger) (*inference.TextGenerator, inference.Provider, error) {
	var providers []inference.Provider

	if p.GeminiAPIKey != "" || p.GeminiADC {
		g, err := inference.NewGemini(ctx,
			inference.WithAPIKey(p.GeminiAPIKey),
			inference.WithADC(p.GeminiADC),
			inference.WithModel(p.GeminiModel),
			inference.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, g)
	}

	if p.OpenAIAPIKey != "" {
		opts := []inference.Option{
			inference.WithAPIKey(p.OpenAIAPIKey),
			inference.WithModel(p.OpenAIModel),
			inference.WithLogger(logger),
		}
		if p.OpenAIBaseURL != "" {
			opts = append(opts, inference.WithBaseURL(p.OpenAIBaseURL))
		}
		o, err := inference.NewOpenAI(opts...)
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, o)
	}

	provider, err := chainInference(logger, providers)
	if err != nil {
		return nil, nil, fmt.Errorf("generation: %w", err)
	}
	return inference.NewTextGenerator(provider, ""), provider, nil
}

func chainInference(logger *slog.Logger, providers []inference.Provider) (inference.Provider, error) {
	switch len(providers) {
	case 0:
		return nil, ErrNotConfigured
	case 1:
		return providers[0], nil
	default:
		chain, err := inference.NewChain(logger, providers...)
		if err != nil {
			return nil, err
		}
		return chain, nil
	}
}

// Transcriber builds speech-to-text: Deepgram first, then Whisper.
func Transcriber(p config.Providers, logger *slog.Logger) (*stt.Transcriber, stt.Provider, error) {
	var providers []stt.Provider

	if p.DeepgramAPIKey != "" {
		d, err := stt.NewDeepgram(
			stt.WithAPIKey(p.DeepgramAPIKey),
			stt.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, d)
	}

	if p.OpenAIAPIKey != "" {
		opts := []stt.Option{
			stt.WithAPIKey(p.OpenAIAPIKey),
			stt.WithLogger(logger),
		}
		if p.OpenAIBaseURL != "" {
			opts = append(opts, stt.WithBaseURL(p.OpenAIBaseURL))
		}
		w, err := stt.NewWhisper(opts...)
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, w)
	}

	var provider stt.Provider
	switch len(providers) {
	case 0:
		return nil, nil, fmt.Errorf("transcription: %w", ErrNotConfigured)
	case 1:
		provider = providers[0]
	default:
		chain, err := stt.NewChain(logger, providers...)
		if err != nil {
			return nil, nil, err
		}
		provider = chain
	}
	// Each provider applies its own default language.
	return stt.NewTranscriber(provider, ""), provider, nil
}

// Speech builds text-to-speech: OpenAI first, then ElevenLabs when a voice
// is configured. Both produce 24kHz PCM.
func Speech(p config.Providers, logger *slog.Logger) (tts.Provider, error) {
	var providers []tts.Provider

	if p.OpenAIAPIKey != "" {
		opts := []tts.Option{
			tts.WithAPIKey(p.OpenAIAPIKey),
			tts.WithSpeed(1.0),
			tts.WithLogger(logger),
		}
		if p.OpenAIBaseURL != "" {
			opts = append(opts, tts.WithBaseURL(p.OpenAIBaseURL))
		}
		o, err := tts.NewOpenAI(opts...)
		if err != nil {
			return nil, err
		}
		providers = append(providers, o)
	}

	if p.ElevenLabsAPIKey != "" && p.ElevenLabsVoiceID != "" {
		e, err := tts.NewElevenLabs(
			tts.WithAPIKey(p.ElevenLabsAPIKey),
			tts.WithVoice(p.ElevenLabsVoiceID),
			tts.WithOutputFormat(tts.EncodingPCM24),
			tts.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		providers = append(providers, e)
	}

	switch len(providers) {
	case 0:
		return nil, fmt.Errorf("speech: %w", ErrNotConfigured)
	case 1:
		return providers[0], nil
	default:
		chain, err := tts.NewChain(logger, providers...)
		if err != nil {
			return nil, err
		}
		return chain, nil
	}
}

// Storage opens the snapshot backend named by s.Backend.
func Storage(ctx context.Context, s config.Store) (snapshot.Storage, error) {
	return snapshot.Open(ctx, snapshot.Config{
		Backend:     s.Backend,
		Dir:         s.Path,
		DatabaseURL: s.DatabaseURL,
		Object: snapshot.ObjectConfig{
			Endpoint:  s.S3Endpoint,
			AccessKey: s.S3AccessKey,
			SecretKey: s.S3SecretKey,
			Bucket:    s.S3Bucket,
			Region:    s.S3Region,
			Secure:    s.S3Secure,
		},
	})
}
