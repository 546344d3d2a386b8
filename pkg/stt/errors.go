package stt

import (
	"errors"
	"fmt"
)

var (
	ErrNoAPIKey        = errors.New("stt: API key required")
	ErrEmptyAudio      = errors.New("stt: audio is empty")
	ErrEmptyTranscript = errors.New("stt: nothing recognized")
	ErrNoProviders     = errors.New("stt: no providers")
)

// APIError is a non-2xx answer from a recognition service.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stt %s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Temporary reports whether a retry may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// Unauthorized reports a rejected key.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// FallbackError holds one error per provider a Chain tried.
type FallbackError struct {
	Errs []error
}

func (e *FallbackError) Error() string {
	if len(e.Errs) == 1 {
		return e.Errs[0].Error()
	}
	return fmt.Sprintf("stt: %d providers failed, last: %v", len(e.Errs), e.Errs[len(e.Errs)-1])
}

func (e *FallbackError) Unwrap() []error {
	return e.Errs
}

func wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("stt %s: %w", provider, err)
}
