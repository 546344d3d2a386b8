package tts

import (
	"io"
	"sync"
)

// bodyStream reads audio from an HTTP response body.
type bodyStream struct {
	mu     sync.Mutex
	body   io.ReadCloser
	format Format
	buf    []byte
	closed bool
}

func newBodyStream(body io.ReadCloser, format Format) *bodyStream {
	return &bodyStream{body: body, format: format, buf: make([]byte, 4096)}
}

func (s *bodyStream) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	n, err := s.body.Read(s.buf)
	if n > 0 {
		return append([]byte(nil), s.buf[:n]...), nil
	}
	if err == io.EOF {
		return nil, nil
	}
	return nil, err
}

func (s *bodyStream) Format() Format { return s.format }

func (s *bodyStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// bufferStream yields an in-memory utterance in one chunk.
type bufferStream struct {
	data   []byte
	format Format
	done   bool
}

func (s *bufferStream) Read() ([]byte, error) {
	if s.done || len(s.data) == 0 {
		return nil, nil
	}
	s.done = true
	return s.data, nil
}

func (s *bufferStream) Format() Format { return s.format }

func (s *bufferStream) Close() error { return nil }

// ReadAll drains s and closes it.
func ReadAll(s AudioStream) ([]byte, error) {
	defer s.Close()
	var out []byte
	for {
		chunk, err := s.Read()
		if err != nil {
			return out, err
		}
		if chunk == nil {
			return out, nil
		}
		out = append(out, chunk...)
	}
}
