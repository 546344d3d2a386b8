// Package inference generates assistant replies with hosted language models.
//
// Gemini (generateContent) and any OpenAI-compatible chat API sit behind
// Provider; a Chain falls back from one to the next. TextGenerator narrows a
// Provider to the single-prompt chat.Generator contract the submit flow uses.
//
//	gemini, _ := inference.NewGemini(ctx, inference.WithAPIKey(key))
//	gen := inference.NewTextGenerator(gemini, "")
//	reply, err := gen.GenerateText(ctx, "What is the capital of Australia?")
package inference

import (
	"context"
	"time"

	"github.com/teslashibe/go-voicechat/pkg/chat"
)

// Provider completes a conversation.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

// Request is one completion call.
type Request struct {
	// System is an optional instruction sent ahead of the messages.
	System   string
	Messages []chat.Message

	// Zero values use the provider's configured defaults.
	Model       string
	MaxTokens   int
	Temperature float64
}

// Response is the assistant reply.
type Response struct {
	Text         string
	FinishReason string
	Model        string
	Usage        Usage
	Latency      time.Duration
}

// Usage counts tokens.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
