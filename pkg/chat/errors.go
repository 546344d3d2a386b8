package chat

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNotFound is returned for unknown conversation ids.
	ErrNotFound = errors.New("chat: conversation not found")

	// ErrEmptyDraft is returned when a submission has no text.
	ErrEmptyDraft = errors.New("chat: draft is empty")

	// ErrInFlight is returned while a submission for the conversation is pending.
	ErrInFlight = errors.New("chat: submission already in flight")

	// ErrNoActiveConversation is returned when nothing is selected.
	ErrNoActiveConversation = errors.New("chat: no active conversation")

	// ErrEmptyResponse is returned when the generator answers with no text.
	ErrEmptyResponse = errors.New("chat: empty response")
)

// IsSkipped reports whether err marks a submission that was a no-op.
func IsSkipped(err error) bool {
	return errors.Is(err, ErrEmptyDraft) ||
		errors.Is(err, ErrInFlight) ||
		errors.Is(err, ErrNoActiveConversation)
}

// PersistenceError reports a snapshot that could not be read, decoded or written.
// It never invalidates the in-memory state.
type PersistenceError struct {
	Op  string // load, decode, save
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("chat: persistence %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// UpstreamError reports a failed call to the generation service.
type UpstreamError struct {
	Service        string
	ConversationID string
	Err            error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("chat: %s failed for %s: %v", e.Service, e.ConversationID, e.Err)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}
