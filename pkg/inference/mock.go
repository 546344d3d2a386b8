package inference

import (
	"context"
	"sync"
)

// Mock is a Provider for tests. It answers every request with Reply, or
// fails with Err, and records the requests it saw.
type Mock struct {
	Reply string
	Err   error

	mu       sync.Mutex
	requests []Request
	closed   bool
}

var _ Provider = (*Mock)(nil)

// NewMock returns a mock that answers with reply.
func NewMock(reply string) *Mock {
	return &Mock{Reply: reply}
}

// Failing returns a mock whose every request fails with err.
func Failing(err error) *Mock {
	return &Mock{Err: err}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Complete(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, *req)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &Response{Text: m.Reply, FinishReason: "stop", Model: "mock"}, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Requests returns every request seen, oldest first.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
