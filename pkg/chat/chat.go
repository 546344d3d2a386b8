// Package chat holds conversations and the flow that turns a draft into a
// generated reply.
//
// A Store keeps the ordered conversation list, the active selection and a
// persisted snapshot of both. A SubmitFlow appends a user message and the
// generated assistant reply to a conversation, publishing the reply to
// listeners such as a voice session.
package chat

import (
	"context"
	"time"
)

// Role identifies the message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultTitle is the title of every new conversation.
const DefaultTitle = "New Chat"

// Message is immutable once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Conversation is an ordered, append-only message list with a title.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy.
func (c Conversation) Clone() Conversation {
	c.Messages = append([]Message(nil), c.Messages...)
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	return c
}

// LastMessage returns the final message, if any.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// LastResponse returns the final message content when it came from the assistant.
func (c Conversation) LastResponse() string {
	if m, ok := c.LastMessage(); ok && m.Role == RoleAssistant {
		return m.Content
	}
	return ""
}

// Generator produces text for a single prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// GenerateText calls f.
func (f GeneratorFunc) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Preview truncates s to n runes and appends "...".
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}
