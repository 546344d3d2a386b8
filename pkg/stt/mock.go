package stt

import (
	"context"
	"sync"
)

// Mock recognizes every recording as Text, or fails with Err.
type Mock struct {
	Text string
	Err  error

	mu       sync.Mutex
	requests []Request
	closed   bool
}

var _ Provider = (*Mock)(nil)

func NewMock(text string) *Mock {
	return &Mock{Text: text}
}

// Failing returns a mock whose every request fails with err.
func Failing(err error) *Mock {
	return &Mock{Err: err}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	m.mu.Lock()
	m.requests = append(m.requests, *req)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &Result{Text: m.Text, Confidence: 0.99}, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Requests returns the requests seen so far.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
