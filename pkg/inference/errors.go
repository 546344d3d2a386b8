package inference

import (
	"errors"
	"fmt"
)

var (
	ErrNoAPIKey      = errors.New("inference: API key required")
	ErrNoModel       = errors.New("inference: model required")
	ErrNoProviders   = errors.New("inference: no providers")
	ErrEmptyPrompt   = errors.New("inference: prompt is empty")
	ErrEmptyResponse = errors.New("inference: empty response")
	ErrBlocked       = errors.New("inference: prompt blocked")
)

// APIError is a non-2xx answer from a model service.
type APIError struct {
	Provider   string
	StatusCode int
	// Reason is the service's machine-readable code, when it sends one.
	Reason  string
	Message string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("inference %s: status %d (%s): %s", e.Provider, e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("inference %s: status %d: %s", e.Provider, e.StatusCode, e.Message)
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
	return fmt.Sprintf("inference: %d providers failed, last: %v", len(e.Errs), e.Errs[len(e.Errs)-1])
}

func (e *FallbackError) Unwrap() []error {
	return e.Errs
}

func wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("inference %s: %w", provider, err)
}
