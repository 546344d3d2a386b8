package inference

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-voicechat/internal/httpc"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.GPT4oMini

// OpenAI talks to OpenAI or any server exposing the same chat completions
// API, such as Ollama or vLLM.
type OpenAI struct {
	client *openai.Client
	cfg    Config
	logger *slog.Logger
}

var _ Provider = (*OpenAI)(nil)

func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg, err := newConfig(Config{Model: DefaultOpenAIModel}, opts)
	if err != nil {
		return nil, wrap("openai", err)
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	oc.HTTPClient = httpc.NewClient(cfg.Timeout)

	return &OpenAI{
		client: openai.NewClientWithConfig(oc),
		cfg:    cfg,
		logger: cfg.Logger.With("component", "inference.openai"),
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Complete(ctx context.Context, req *Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, wrap("openai", ErrEmptyPrompt)
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	temp := req.Temperature
	if temp == 0 {
		temp = o.cfg.Temperature
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       cmp.Or(req.Model, o.cfg.Model),
		Messages:    msgs,
		MaxTokens:   max(req.MaxTokens, o.cfg.MaxTokens),
		Temperature: float32(temp),
	})
	if err != nil {
		return nil, openAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, wrap("openai", ErrEmptyResponse)
	}

	out := &Response{
		Text:         resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		Model:        resp.Model,
		Latency:      time.Since(start),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	o.logger.Debug("generated", "model", out.Model, "tokens", out.Usage.TotalTokens, "latency", out.Latency)
	return out, nil
}

func (o *OpenAI) Close() error { return nil }

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		out := &APIError{Provider: "openai", StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		if code, ok := apiErr.Code.(string); ok {
			out.Reason = code
		}
		return out
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{Provider: "openai", StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return wrap("openai", err)
}
