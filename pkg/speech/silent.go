package speech

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Silent is a Speaker for setups without speech output. It logs what would
// have been said and returns immediately.
type Silent struct {
	logger *slog.Logger

	mu     sync.Mutex
	spoken []string
}

var _ Speaker = (*Silent)(nil)

// NewSilent creates a Silent speaker. A nil logger uses slog.Default.
func NewSilent(logger *slog.Logger) *Silent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Silent{logger: logger.With("component", "speech.silent")}
}

// Speak records text.
func (s *Silent) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	s.logger.Info("speech output disabled", "text", text)
	return ctx.Err()
}

// Spoken returns every utterance recorded so far.
func (s *Silent) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

// Cancel is a no-op.
func (s *Silent) Cancel() bool { return false }

// Speaking is always false.
func (s *Silent) Speaking() bool { return false }

// Close is a no-op.
func (s *Silent) Close() error { return nil }
