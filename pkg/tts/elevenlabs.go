package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teslashibe/go-voicechat/internal/httpc"
)

const elevenLabsURL = "https://api.elevenlabs.io/v1"

// DefaultElevenLabsModel is the low-latency English model.
const DefaultElevenLabsModel = "eleven_turbo_v2_5"

// ElevenLabs speaks with a custom ElevenLabs voice over the streaming REST
// endpoint.
type ElevenLabs struct {
	cfg    Config
	client *http.Client
	base   string
	logger *slog.Logger
}

var _ Provider = (*ElevenLabs)(nil)

// NewElevenLabs needs an API key and a voice ID.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := newConfig(Config{
		Model:        DefaultElevenLabsModel,
		Encoding:     EncodingPCM24,
		Stability:    0.5,
		Similarity:   0.75,
		Retries:      2,
		RetryBackoff: 200 * time.Millisecond,
	}, opts)
	switch {
	case cfg.APIKey == "":
		return nil, ErrNoAPIKey
	case cfg.Voice == "":
		return nil, ErrNoVoice
	}

	base := cfg.BaseURL
	if base == "" {
		base = elevenLabsURL
	}
	return &ElevenLabs{
		cfg:    cfg,
		client: httpc.NewClient(cfg.Timeout),
		base:   strings.TrimSuffix(base, "/"),
		logger: cfg.Logger.With("component", "tts.elevenlabs"),
	}, nil
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

// Voice returns the configured voice ID.
func (e *ElevenLabs) Voice() string { return e.cfg.Voice }

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed"`
}

func (e *ElevenLabs) Stream(ctx context.Context, text string) (AudioStream, error) {
	if strings.TrimSpace(text) == "" {
		return nil, wrap(e.Name(), ErrEmptyText)
	}
	payload, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: e.cfg.Model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       e.cfg.Stability,
			SimilarityBoost: e.cfg.Similarity,
			Speed:           e.cfg.Speed,
		},
	})
	if err != nil {
		return nil, wrap(e.Name(), err)
	}

	resp, err := e.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	return newBodyStream(resp.Body, FormatOf(e.cfg.Encoding)), nil
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*Audio, error) {
	start := time.Now()
	stream, err := e.Stream(ctx, text)
	if err != nil {
		return nil, err
	}
	data, err := ReadAll(stream)
	if err != nil {
		return nil, wrap(e.Name(), err)
	}
	e.logger.Debug("synthesized", "chars", len(text), "bytes", len(data), "voice", e.cfg.Voice)
	return &Audio{Data: data, Format: stream.Format(), Latency: time.Since(start)}, nil
}

func (e *ElevenLabs) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// post sends the request, retrying temporary failures.
func (e *ElevenLabs) post(ctx context.Context, payload []byte) (*http.Response, error) {
	target := fmt.Sprintf("%s/text-to-speech/%s/stream?%s",
		e.base, url.PathEscape(e.cfg.Voice), url.Values{"output_format": {string(e.cfg.Encoding)}}.Encode())

	accept := "audio/mpeg"
	if e.cfg.Encoding.IsPCM() {
		accept = "audio/pcm"
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return nil, wrap(e.Name(), err)
		}
		req.Header.Set("xi-api-key", e.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", accept)

		var failure error
		resp, err := e.client.Do(req)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			failure = wrap(e.Name(), err)
		case resp.StatusCode == http.StatusOK:
			return resp, nil
		default:
			apiErr := e.decodeError(resp)
			if !apiErr.Temporary() {
				return nil, apiErr
			}
			failure = apiErr
		}

		if attempt >= e.cfg.Retries {
			return nil, failure
		}
		e.logger.Warn("speech request failed, retrying", "attempt", attempt+1, "error", failure)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.cfg.RetryBackoff * time.Duration(attempt+1)):
		}
	}
}

func (e *ElevenLabs) decodeError(resp *http.Response) *APIError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var detail struct {
		Detail struct {
			Message string `json:"message"`
		} `json:"detail"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &detail) == nil && detail.Detail.Message != "" {
		msg = detail.Detail.Message
	}
	return &APIError{Provider: e.Name(), StatusCode: resp.StatusCode, Message: msg}
}
