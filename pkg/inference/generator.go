package inference

import (
	"context"
	"strings"

	"github.com/teslashibe/go-voicechat/pkg/chat"
)

// TextGenerator answers a single prompt with a Provider. Every call sends
// exactly one user message; no history travels with it.
type TextGenerator struct {
	provider Provider
	system   string
}

var _ chat.Generator = (*TextGenerator)(nil)

// NewTextGenerator wraps p. A non-empty system instruction is sent with
// every prompt.
func NewTextGenerator(p Provider, system string) *TextGenerator {
	return &TextGenerator{provider: p, system: system}
}

// GenerateText returns the provider's reply to prompt.
func (g *TextGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	resp, err := g.provider.Complete(ctx, &Request{
		System:   g.system,
		Messages: []chat.Message{chat.NewUserMessage(prompt)},
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Text, nil
}

// Provider returns the wrapped provider.
func (g *TextGenerator) Provider() Provider {
	return g.provider
}
