package voice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-voicechat/pkg/audioio"
	"github.com/teslashibe/go-voicechat/pkg/speech"
)

// DefaultSubmitDelay is the pause between a successful transcription and
// automatic submission.
const DefaultSubmitDelay = time.Second

// Transcriber turns packaged audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// TranscriberFunc adapts a function to Transcriber.
type TranscriberFunc func(ctx context.Context, audio []byte, mimeType string) (string, error)

// Transcribe calls f.
func (f TranscriberFunc) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return f(ctx, audio, mimeType)
}

// Config holds the collaborators and hooks of a Session.
type Config struct {
	// Microphone is the capture device. Required.
	Microphone audioio.Source

	// Speaker plays replies and prompts. Default: speech.Silent.
	Speaker speech.Speaker

	// Transcriber converts recordings to text. Required.
	Transcriber Transcriber

	// SubmitDelay is the pause before OnSubmit fires.
	// Default: 1s
	SubmitDelay time.Duration

	// OnTranscript receives the transcribed text as soon as it is available.
	OnTranscript func(text string)

	// OnSubmit is called with the transcribed text after SubmitDelay.
	OnSubmit func(ctx context.Context, text string)

	// OnError receives device, transcription and playback failures.
	OnError func(err error)

	// OnStateChange is called on every transition. It runs with the session
	// lock held and must not call back into the Session.
	OnStateChange func(from, to State)

	Logger *slog.Logger
}

// DefaultConfig returns a Config with default timing and a silent speaker.
func DefaultConfig() Config {
	return Config{
		SubmitDelay: DefaultSubmitDelay,
		Logger:      slog.Default(),
	}
}

// Option configures a Session.
type Option func(*Config)

// WithMicrophone sets the capture device.
func WithMicrophone(src audioio.Source) Option {
	return func(c *Config) {
		c.Microphone = src
	}
}

// WithSpeaker sets the speech output.
func WithSpeaker(sp speech.Speaker) Option {
	return func(c *Config) {
		c.Speaker = sp
	}
}

// WithTranscriber sets the transcription service.
func WithTranscriber(t Transcriber) Option {
	return func(c *Config) {
		c.Transcriber = t
	}
}

// WithSubmitDelay sets the pause before automatic submission.
func WithSubmitDelay(d time.Duration) Option {
	return func(c *Config) {
		c.SubmitDelay = d
	}
}

// WithOnTranscript sets the transcript hook.
func WithOnTranscript(fn func(text string)) Option {
	return func(c *Config) {
		c.OnTranscript = fn
	}
}

// WithOnSubmit sets the submission hook.
func WithOnSubmit(fn func(ctx context.Context, text string)) Option {
	return func(c *Config) {
		c.OnSubmit = fn
	}
}

// WithOnError sets the error hook.
func WithOnError(fn func(err error)) Option {
	return func(c *Config) {
		c.OnError = fn
	}
}

// WithOnStateChange sets the transition hook.
func WithOnStateChange(fn func(from, to State)) Option {
	return func(c *Config) {
		c.OnStateChange = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Microphone == nil {
		return errors.New("voice: microphone required")
	}
	if c.Transcriber == nil {
		return errors.New("voice: transcriber required")
	}
	if c.SubmitDelay < 0 {
		return errors.New("voice: submit delay must not be negative")
	}
	return nil
}
