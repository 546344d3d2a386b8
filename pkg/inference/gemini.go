package inference

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teslashibe/go-voicechat/pkg/chat"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

var geminiScopes = []string{
	"https://www.googleapis.com/auth/generative-language",
	"https://www.googleapis.com/auth/cloud-platform",
}

// Gemini calls generateContent through the generated generativelanguage
// client.
type Gemini struct {
	models *generativelanguage.ModelsService
	cfg    Config
	logger *slog.Logger
}

var _ Provider = (*Gemini)(nil)

// NewGemini needs an API key unless WithADC(true) is set.
func NewGemini(ctx context.Context, opts ...Option) (*Gemini, error) {
	cfg, err := newConfig(Config{Model: DefaultGeminiModel}, opts)
	if err != nil {
		return nil, wrap("gemini", err)
	}

	var clientOpts []option.ClientOption
	if cfg.UseADC {
		ts, err := google.DefaultTokenSource(ctx, geminiScopes...)
		if err != nil {
			return nil, wrap("gemini", fmt.Errorf("default credentials: %w", err))
		}
		clientOpts = append(clientOpts, option.WithTokenSource(ts))
	} else {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(strings.TrimSuffix(cfg.BaseURL, "/")+"/"))
	}

	svc, err := generativelanguage.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, wrap("gemini", err)
	}

	return &Gemini{
		models: svc.Models,
		cfg:    cfg,
		logger: cfg.Logger.With("component", "inference.gemini"),
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Complete sends the conversation to generateContent. Assistant turns use
// the "model" role and System becomes the system instruction.
func (g *Gemini) Complete(ctx context.Context, req *Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, wrap("gemini", ErrEmptyPrompt)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	model := cmp.Or(req.Model, g.cfg.Model)
	body := &generativelanguage.GenerateContentRequest{
		Contents:         geminiContents(req.Messages),
		GenerationConfig: g.generationConfig(req),
	}
	if req.System != "" {
		body.SystemInstruction = &generativelanguage.Content{
			Parts: []*generativelanguage.Part{{Text: req.System}},
		}
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(modelPath(model), body).Context(ctx).Do()
	if err != nil {
		return nil, geminiError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
			return nil, wrap("gemini", fmt.Errorf("%w: %s", ErrBlocked, fb.BlockReason))
		}
		return nil, wrap("gemini", ErrEmptyResponse)
	}

	best := resp.Candidates[0]
	var text strings.Builder
	for _, part := range best.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	out := &Response{
		Text:         text.String(),
		FinishReason: best.FinishReason,
		Model:        model,
		Latency:      time.Since(start),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	g.logger.Debug("generated", "model", model, "finish", out.FinishReason, "latency", out.Latency)
	return out, nil
}

// generationConfig caps the reply length. Temperature is left to the
// model default.
func (g *Gemini) generationConfig(req *Request) *generativelanguage.GenerationConfig {
	maxTokens := max(req.MaxTokens, g.cfg.MaxTokens)
	if maxTokens == 0 {
		return nil
	}
	return &generativelanguage.GenerationConfig{MaxOutputTokens: int64(maxTokens)}
}

func (g *Gemini) Close() error { return nil }

func geminiContents(msgs []chat.Message) []*generativelanguage.Content {
	out := make([]*generativelanguage.Content, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Role == chat.RoleAssistant {
			role = "model"
		}
		out = append(out, &generativelanguage.Content{
			Role:  role,
			Parts: []*generativelanguage.Part{{Text: m.Content}},
		})
	}
	return out
}

func geminiError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return wrap("gemini", err)
	}
	out := &APIError{Provider: "gemini", StatusCode: gerr.Code, Message: gerr.Message}
	if len(gerr.Errors) > 0 {
		out.Reason = gerr.Errors[0].Reason
	}
	return out
}

func modelPath(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}
