package tts

import (
	"log/slog"
	"time"
)

// Config holds provider settings. Each constructor supplies its own
// defaults before options apply.
type Config struct {
	APIKey  string
	BaseURL string
	Voice   string
	Model   string

	// Speed is the speaking rate; 1.0 is normal.
	Speed float64

	// Encoding is the requested output. OpenAI always delivers EncodingPCM24.
	Encoding Encoding

	// ElevenLabs voice settings, 0.0 to 1.0.
	Stability  float64
	Similarity float64

	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration

	Logger *slog.Logger
}

// Option configures a provider.
type Option func(*Config)

func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

func WithVoice(voice string) Option {
	return func(c *Config) { c.Voice = voice }
}

func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithSpeed sets the speaking rate.
func WithSpeed(speed float64) Option {
	return func(c *Config) { c.Speed = speed }
}

// WithOutputFormat requests an encoding from providers that offer a choice.
func WithOutputFormat(e Encoding) Option {
	return func(c *Config) { c.Encoding = e }
}

// WithVoiceSettings tunes ElevenLabs stability and similarity boost.
func WithVoiceSettings(stability, similarity float64) Option {
	return func(c *Config) {
		c.Stability = stability
		c.Similarity = similarity
	}
}

// WithTimeout bounds a whole request, including reading the audio body.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry retries rate-limited and 5xx answers n times, waiting
// backoff*attempt between tries.
func WithRetry(n int, backoff time.Duration) Option {
	return func(c *Config) {
		c.Retries = n
		c.RetryBackoff = backoff
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func newConfig(defaults Config, opts []Option) Config {
	cfg := defaults
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}
