package web

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/teslashibe/go-voicechat/pkg/chat"
)

// DefaultBodyLimit fits a few minutes of FLAC speech.
const DefaultBodyLimit = 25 * 1024 * 1024

// Transcriber turns uploaded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Config configures a Server.
type Config struct {
	// Generator serves POST /api/generate and conversation replies. Required.
	Generator chat.Generator

	// Transcriber serves POST /api/transcribe. Required.
	Transcriber Transcriber

	// Store enables the /api/conversations routes when set.
	Store *chat.Store

	// AllowOrigins is the CORS allow list.
	AllowOrigins string

	// BodyLimit caps request bodies in bytes.
	BodyLimit int

	// AccessLog receives one line per request when set.
	AccessLog io.Writer

	Version string
	Logger  *slog.Logger
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		AllowOrigins: "*",
		BodyLimit:    DefaultBodyLimit,
		Version:      "dev",
		Logger:       slog.Default(),
	}
}

// Option configures a Server.
type Option func(*Config)

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Generator == nil {
		return errors.New("web: generator is required")
	}
	if c.Transcriber == nil {
		return errors.New("web: transcriber is required")
	}
	if c.BodyLimit <= 0 {
		return errors.New("web: body limit must be positive")
	}
	return nil
}

// WithGenerator sets the text generator.
func WithGenerator(g chat.Generator) Option {
	return func(c *Config) { c.Generator = g }
}

// WithTranscriber sets the transcriber.
func WithTranscriber(t Transcriber) Option {
	return func(c *Config) { c.Transcriber = t }
}

// WithStore enables server-hosted conversations.
func WithStore(s *chat.Store) Option {
	return func(c *Config) { c.Store = s }
}

// WithAllowOrigins sets the CORS allow list.
func WithAllowOrigins(origins string) Option {
	return func(c *Config) { c.AllowOrigins = origins }
}

// WithBodyLimit sets the request body limit.
func WithBodyLimit(n int) Option {
	return func(c *Config) { c.BodyLimit = n }
}

// WithAccessLog enables request logging to w.
func WithAccessLog(w io.Writer) Option {
	return func(c *Config) { c.AccessLog = w }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(c *Config) { c.Version = v }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
