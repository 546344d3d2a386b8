// Package speech plays synthesized speech through a speaker sink.
//
// An Engine speaks one utterance at a time: it streams audio from a
// tts.Provider into an audioio.Sink and holds the speaker only while
// speaking. Cancel stops playback immediately.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/teslashibe/go-voicechat/pkg/audioio"
	"github.com/teslashibe/go-voicechat/pkg/tts"
)

var (
	// ErrBusy is returned by Speak while another utterance is playing.
	ErrBusy = errors.New("speech: already speaking")

	// ErrCanceled is returned by Speak when Cancel interrupted playback.
	ErrCanceled = errors.New("speech: canceled")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("speech: engine closed")

	// ErrUnsupportedFormat is returned when a provider delivers audio the
	// sink cannot play directly.
	ErrUnsupportedFormat = errors.New("speech: provider audio is not PCM16")
)

// Speaker is the playback surface a voice session drives.
type Speaker interface {
	// Speak plays text and blocks until playback ends.
	Speak(ctx context.Context, text string) error
	// Cancel stops the current utterance and returns once it has ended.
	// It reports whether one was playing.
	Cancel() bool
	// Speaking reports whether an utterance is playing.
	Speaking() bool
	// Close cancels playback and releases the speaker.
	Close() error
}

// Engine is a Speaker backed by a TTS provider and an audio sink.
type Engine struct {
	provider tts.Provider
	sink     audioio.Sink
	logger   *slog.Logger

	mu       sync.Mutex
	speaking bool
	closed   bool
	cancel   context.CancelFunc
	done     chan struct{}
}

var _ Speaker = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine. The engine owns sink and closes it on Close; the
// provider stays owned by the caller.
func New(provider tts.Provider, sink audioio.Sink, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("speech: provider is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("speech: sink is required")
	}
	e := &Engine{
		provider: provider,
		sink:     sink,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "speech.engine")
	return e, nil
}

// Speak synthesizes text and plays it, returning when playback finishes,
// fails, or is canceled. A call made while speaking returns ErrBusy without
// interrupting the current utterance.
func (e *Engine) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return tts.ErrEmptyText
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.speaking {
		e.mu.Unlock()
		return ErrBusy
	}
	if ctx.Err() != nil {
		e.mu.Unlock()
		return ErrCanceled
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.speaking = true
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		e.speaking = false
		e.cancel = nil
		e.done = nil
		e.mu.Unlock()
		close(done)
	}()

	err := e.play(ctx, text)
	if err != nil && ctx.Err() != nil {
		return ErrCanceled
	}
	return err
}

func (e *Engine) play(ctx context.Context, text string) error {
	stream, err := e.provider.Stream(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	defer stream.Close()

	format := stream.Format()
	if !format.Encoding.IsPCM() {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format.Encoding)
	}
	if format.SampleRate == 0 {
		format.SampleRate = format.Encoding.SampleRate()
	}
	format.Channels = max(format.Channels, 1)

	if err := e.sink.Start(ctx); err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}
	defer func() {
		if err := e.sink.Stop(); err != nil {
			e.logger.Warn("release speaker", "error", err)
		}
	}()

	var carry []byte
	var played int
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data, err := stream.Read()
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}
		if data == nil {
			break
		}
		if len(carry) > 0 {
			data = append(carry, data...)
			carry = nil
		}
		if len(data)%2 == 1 {
			carry = []byte{data[len(data)-1]}
			data = data[:len(data)-1]
		}
		if len(data) == 0 {
			continue
		}
		played += len(data)

		var chunk audioio.AudioChunk
		chunk.FromBytes(data, format.SampleRate, format.Channels)
		if err := e.sink.Write(ctx, chunk); err != nil {
			return fmt.Errorf("play audio: %w", err)
		}
	}

	if err := e.sink.Flush(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	e.logger.Debug("utterance played",
		"chars", len(text),
		"duration", format.Duration(played),
	)
	return nil
}

// Cancel interrupts the current utterance, drops queued audio and waits
// until the speaker has been released.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	if !e.speaking {
		e.mu.Unlock()
		return false
	}
	e.cancel()
	done := e.done
	if err := e.sink.Clear(); err != nil {
		e.logger.Warn("clear speaker", "error", err)
	}
	e.mu.Unlock()

	<-done
	e.logger.Debug("utterance canceled")
	return true
}

// Speaking reports whether an utterance is playing.
func (e *Engine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking
}

// Close cancels playback and closes the sink.
func (e *Engine) Close() error {
	e.Cancel()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	return e.sink.Close()
}
