package tts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-voicechat/internal/httpc"
)

// OpenAI voices.
const (
	VoiceAlloy   = "alloy"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// DefaultOpenAIModel favours latency over quality.
const DefaultOpenAIModel = "tts-1"

// OpenAI speaks through the OpenAI speech endpoint. The "pcm" response
// format is fixed at 24kHz mono.
type OpenAI struct {
	cfg    Config
	client *openai.Client
	logger *slog.Logger
}

var _ Provider = (*OpenAI)(nil)

// NewOpenAI needs an API key. Voice defaults to shimmer.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := newConfig(Config{Model: DefaultOpenAIModel, Voice: VoiceShimmer}, opts)
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Voice == "" {
		cfg.Voice = VoiceShimmer
	}
	cfg.Encoding = EncodingPCM24

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	oc.HTTPClient = httpc.NewClient(cfg.Timeout)

	return &OpenAI{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
		logger: cfg.Logger.With("component", "tts.openai"),
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

// Voice returns the configured voice.
func (o *OpenAI) Voice() string { return o.cfg.Voice }

func (o *OpenAI) Stream(ctx context.Context, text string) (AudioStream, error) {
	if strings.TrimSpace(text) == "" {
		return nil, wrap(o.Name(), ErrEmptyText)
	}
	body, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.cfg.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(o.cfg.Voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
		Speed:          o.cfg.Speed,
	})
	if err != nil {
		return nil, openAIError(err)
	}
	return newBodyStream(body, FormatOf(EncodingPCM24)), nil
}

func (o *OpenAI) Synthesize(ctx context.Context, text string) (*Audio, error) {
	start := time.Now()
	stream, err := o.Stream(ctx, text)
	if err != nil {
		return nil, err
	}
	data, err := ReadAll(stream)
	if err != nil {
		return nil, wrap(o.Name(), err)
	}
	audio := &Audio{Data: data, Format: stream.Format(), Latency: time.Since(start)}
	o.logger.Debug("synthesized", "chars", len(text), "bytes", len(data), "voice", o.cfg.Voice)
	return audio, nil
}

func (o *OpenAI) Close() error { return nil }

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "openai", StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{Provider: "openai", StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return wrap("openai", err)
}
