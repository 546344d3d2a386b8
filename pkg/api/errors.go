package api

import (
	"errors"
	"fmt"
)

// Error strings used in ErrorResponse.Error.
const (
	MsgInvalidMessages      = "Invalid or empty messages array"
	MsgGenerateFailed       = "Failed to generate response"
	MsgAudioRequired        = "Audio file is required"
	MsgTranscribeFailed     = "Transcription failed"
	MsgConversationNotFound = "Conversation not found"
	MsgEmptyMessage         = "Message content is required"
	MsgSubmitInFlight       = "A reply is already being generated"
	MsgInvalidTitle         = "Title is required"
)

// ErrEmptyResponse is returned when the server answers with blank text.
var ErrEmptyResponse = errors.New("api: empty response")

// APIError is a non-2xx response from the voicechat server.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// IsValidation returns true for 400 responses.
func (e *APIError) IsValidation() bool {
	return e.StatusCode == 400
}

// IsNotFound returns true for 404 responses.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsServerError returns true for 5xx responses.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
