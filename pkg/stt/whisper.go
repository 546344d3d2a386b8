package stt

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-voicechat/internal/httpc"
)

// Whisper uses OpenAI's /audio/transcriptions endpoint.
type Whisper struct {
	cfg    Config
	client *openai.Client
	logger *slog.Logger
}

var _ Provider = (*Whisper)(nil)

func NewWhisper(opts ...Option) (*Whisper, error) {
	cfg, err := newConfig(Config{Model: openai.Whisper1}, opts)
	if err != nil {
		return nil, wrap("whisper", err)
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	oc.HTTPClient = httpc.NewClient(cfg.Timeout)

	return &Whisper{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
		logger: cfg.Logger.With("component", "stt.whisper"),
	}, nil
}

func (w *Whisper) Name() string { return "whisper" }

// Transcribe uploads the recording as a multipart file named after its
// MIME type.
func (w *Whisper) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	if len(req.Audio) == 0 {
		return nil, wrap("whisper", ErrEmptyAudio)
	}

	start := time.Now()
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.cfg.Model,
		Reader:   bytes.NewReader(req.Audio),
		FilePath: "recording." + extensionFor(req.MimeType),
		Language: isoLanguage(cmp.Or(req.Language, w.cfg.Language)),
	})
	if err != nil {
		return nil, whisperError(err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, wrap("whisper", ErrEmptyTranscript)
	}

	res := &Result{
		Text:     text,
		Duration: time.Duration(resp.Duration * float64(time.Second)),
		Latency:  time.Since(start),
	}
	w.logger.Debug("transcribed", "bytes", len(req.Audio), "chars", len(text), "latency", res.Latency)
	return res, nil
}

func (w *Whisper) Close() error { return nil }

// isoLanguage reduces a BCP-47 tag ("en-US") to ISO-639-1 ("en").
func isoLanguage(lang string) string {
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return strings.ToLower(lang)
}

func whisperError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "whisper", StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{Provider: "whisper", StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return wrap("whisper", err)
}
