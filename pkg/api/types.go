// Package api defines the JSON envelope shared by the voicechat server and
// its clients, and a Client for the server's routes.
package api

import (
	"time"

	"github.com/teslashibe/go-voicechat/pkg/chat"
	"github.com/teslashibe/go-voicechat/pkg/format"
)

// GenerateRequest is the body of POST /api/generate. Only the last message
// is sent to the model.
type GenerateRequest struct {
	Messages []chat.Message `json:"messages"`
}

// GenerateResponse is the success body of POST /api/generate.
type GenerateResponse struct {
	Response string `json:"response"`
}

// TranscribeResponse is the success body of POST /api/transcribe.
type TranscribeResponse struct {
	Result  string `json:"result"`
	Success bool   `json:"success"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Success *bool  `json:"success,omitempty"`
}

// CreateMessageRequest is the body of POST /api/conversations/:id/messages.
type CreateMessageRequest struct {
	Content string `json:"content"`
}

// RenameRequest is the body of PUT /api/conversations/:id/title.
type RenameRequest struct {
	Title string `json:"title"`
}

// MessageView is a message as served to clients. Assistant messages carry
// their formatted segments.
type MessageView struct {
	Role     chat.Role        `json:"role"`
	Content  string           `json:"content"`
	Segments []format.Segment `json:"segments,omitempty"`
}

// NewMessageView renders msg for the wire.
func NewMessageView(msg chat.Message) MessageView {
	v := MessageView{Role: msg.Role, Content: msg.Content}
	if msg.Role == chat.RoleAssistant {
		v.Segments = format.Format(msg.Content)
	}
	return v
}

// ConversationView is a conversation as served to clients.
type ConversationView struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []MessageView `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	Active    bool          `json:"active"`
	Loading   bool          `json:"loading"`
}

// NewConversationView renders conv for the wire.
func NewConversationView(conv chat.Conversation) ConversationView {
	v := ConversationView{
		ID:        conv.ID,
		Title:     conv.Title,
		Messages:  make([]MessageView, len(conv.Messages)),
		CreatedAt: conv.CreatedAt,
	}
	for i, m := range conv.Messages {
		v.Messages[i] = NewMessageView(m)
	}
	return v
}

// ConversationList is the body of GET /api/conversations.
type ConversationList struct {
	Conversations []ConversationView `json:"conversations"`
	ActiveID      string             `json:"active_id"`
}

// EventType names a change broadcast on /ws/events.
type EventType string

const (
	EventConversationCreated EventType = "conversation.created"
	EventConversationDeleted EventType = "conversation.deleted"
	EventConversationUpdated EventType = "conversation.updated"
	EventMessageAppended     EventType = "message.appended"
	EventSubmitFailed        EventType = "submit.failed"
)

// Event is one message on the event stream.
type Event struct {
	Type           EventType         `json:"type"`
	ConversationID string            `json:"conversation_id"`
	Conversation   *ConversationView `json:"conversation,omitempty"`
	Message        *MessageView      `json:"message,omitempty"`
	Error          string            `json:"error,omitempty"`
	Time           time.Time         `json:"time"`
}

// NewEvent stamps an event with the current time.
func NewEvent(typ EventType, conversationID string) Event {
	return Event{Type: typ, ConversationID: conversationID, Time: time.Now().UTC()}
}
