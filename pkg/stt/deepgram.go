package stt

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-voicechat/internal/httpc"
)

const (
	deepgramURL          = "https://api.deepgram.com"
	DefaultDeepgramModel = "nova"
)

// Deepgram posts the raw recording to /v1/listen.
type Deepgram struct {
	cfg    Config
	base   string
	client *http.Client
	logger *slog.Logger
}

var _ Provider = (*Deepgram)(nil)

func NewDeepgram(opts ...Option) (*Deepgram, error) {
	cfg, err := newConfig(Config{
		BaseURL:     deepgramURL,
		Model:       DefaultDeepgramModel,
		SmartFormat: true,
		Punctuate:   true,
	}, opts)
	if err != nil {
		return nil, wrap("deepgram", err)
	}
	return &Deepgram{
		cfg:    cfg,
		base:   strings.TrimSuffix(cfg.BaseURL, "/"),
		client: httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "stt.deepgram"),
	}, nil
}

func (d *Deepgram) Name() string { return "deepgram" }

type listenResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// best returns the first alternative of the first channel.
func (r *listenResponse) best() (string, float64, bool) {
	if len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return "", 0, false
	}
	alt := r.Results.Channels[0].Alternatives[0]
	return alt.Transcript, alt.Confidence, true
}

// Transcribe uploads the recording. A missing or blank transcript is
// ErrEmptyTranscript.
func (d *Deepgram) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	if len(req.Audio) == 0 {
		return nil, wrap("deepgram", ErrEmptyAudio)
	}

	q := url.Values{
		"model":        {d.cfg.Model},
		"language":     {cmp.Or(req.Language, d.cfg.Language)},
		"smart_format": {strconv.FormatBool(d.cfg.SmartFormat)},
		"punctuate":    {strconv.FormatBool(d.cfg.Punctuate)},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.base+"/v1/listen?"+q.Encode(), bytes.NewReader(req.Audio))
	if err != nil {
		return nil, wrap("deepgram", err)
	}
	mimeType := cmp.Or(req.MimeType, MimeWebM)
	httpReq.Header.Set("Authorization", "Token "+d.cfg.APIKey)
	httpReq.Header.Set("Content-Type", mimeType)

	start := time.Now()
	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, wrap("deepgram", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrap("deepgram", fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, deepgramError(resp.StatusCode, body)
	}

	var out listenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, wrap("deepgram", fmt.Errorf("decode response: %w", err))
	}
	text, confidence, ok := out.best()
	if !ok || strings.TrimSpace(text) == "" {
		return nil, wrap("deepgram", ErrEmptyTranscript)
	}

	res := &Result{
		Text:       text,
		Confidence: confidence,
		Duration:   time.Duration(out.Metadata.Duration * float64(time.Second)),
		Latency:    time.Since(start),
	}
	d.logger.Debug("transcribed", "bytes", len(req.Audio), "mime", mimeType, "confidence", confidence, "latency", res.Latency)
	return res, nil
}

func deepgramError(status int, body []byte) error {
	var e struct {
		ErrMsg  string `json:"err_msg"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil {
		msg = cmp.Or(e.ErrMsg, e.Message, msg)
	}
	return &APIError{Provider: "deepgram", StatusCode: status, Message: msg}
}

func (d *Deepgram) Close() error {
	d.client.CloseIdleConnections()
	return nil
}
