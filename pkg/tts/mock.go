package tts

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Mock is a Provider for tests. It returns 20ms of silence per character of
// text, in Encoding (24kHz PCM when unset), and records every request.
type Mock struct {
	Encoding Encoding
	// Err fails every request.
	Err error
	// Delay is waited before answering.
	Delay time.Duration

	mu     sync.Mutex
	texts  []string
	closed bool
}

var _ Provider = (*Mock)(nil)

// NewMock returns a working mock.
func NewMock() *Mock {
	return &Mock{}
}

// Failing returns a mock whose every request fails with err.
func Failing(err error) *Mock {
	return &Mock{Err: err}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Synthesize(ctx context.Context, text string) (*Audio, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	enc := m.Encoding
	if enc == "" {
		enc = EncodingPCM24
	}
	format := FormatOf(enc)
	perChar := format.SampleRate / 50 * 2
	return &Audio{Data: make([]byte, len(text)*perChar), Format: format}, nil
}

func (m *Mock) Stream(ctx context.Context, text string) (AudioStream, error) {
	audio, err := m.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	return &bufferStream{data: audio.Data, format: audio.Format}, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Texts returns every requested text in order.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
