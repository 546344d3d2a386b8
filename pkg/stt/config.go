package stt

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-voicechat/internal/httpc"
)

// Config is shared by every provider; each constructor fills in its own
// defaults first.
type Config struct {
	APIKey  string
	BaseURL string

	Model    string
	Language string

	// Deepgram only.
	SmartFormat bool
	Punctuate   bool

	Timeout time.Duration
	Logger  *slog.Logger
}

type Option func(*Config)

func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

func WithModel(model string) Option {
	return func(c *Config) {
		if model != "" {
			c.Model = model
		}
	}
}

// WithLanguage sets the default BCP-47 language.
func WithLanguage(lang string) Option {
	return func(c *Config) {
		if lang != "" {
			c.Language = lang
		}
	}
}

// WithFormatting toggles Deepgram smart formatting and punctuation.
func WithFormatting(smartFormat, punctuate bool) Option {
	return func(c *Config) {
		c.SmartFormat = smartFormat
		c.Punctuate = punctuate
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func newConfig(defaults Config, opts []Option) (Config, error) {
	cfg := defaults
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = httpc.UploadTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return cfg, ErrNoAPIKey
	}
	return cfg, nil
}
