package tts

import (
	"errors"
	"fmt"
)

var (
	ErrNoAPIKey     = errors.New("tts: API key required")
	ErrNoVoice      = errors.New("tts: voice required")
	ErrEmptyText    = errors.New("tts: nothing to say")
	ErrStreamClosed = errors.New("tts: stream closed")
	ErrNoProviders  = errors.New("tts: no providers")
)

// APIError is a non-2xx answer from a speech service.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tts %s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Temporary reports whether a retry may succeed (rate limit or 5xx).
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// FallbackError collects the failure of every provider in a Chain.
type FallbackError struct {
	Errs []error
}

func (e *FallbackError) Error() string {
	if len(e.Errs) == 1 {
		return e.Errs[0].Error()
	}
	return fmt.Sprintf("tts: %d providers failed, last: %v", len(e.Errs), e.Errs[len(e.Errs)-1])
}

func (e *FallbackError) Unwrap() []error {
	return e.Errs
}

func wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("tts %s: %w", provider, err)
}
