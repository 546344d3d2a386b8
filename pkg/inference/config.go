package inference

import (
	"log/slog"
	"time"
)

// Config holds provider settings. Each constructor supplies its own
// defaults before options apply.
type Config struct {
	// BaseURL overrides the service endpoint, e.g. a local
	// OpenAI-compatible server.
	BaseURL string
	APIKey  string

	// UseADC authenticates Gemini with Application Default Credentials
	// instead of an API key.
	UseADC bool

	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	Logger *slog.Logger
}

// Option configures a provider.
type Option func(*Config)

func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithADC switches Gemini to Application Default Credentials.
func WithADC(enabled bool) Option {
	return func(c *Config) { c.UseADC = enabled }
}

// WithModel sets the default model. An empty model keeps the provider default.
func WithModel(model string) Option {
	return func(c *Config) {
		if model != "" {
			c.Model = model
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = t }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func newConfig(defaults Config, opts []Option) (Config, error) {
	cfg := defaults
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	switch {
	case cfg.Model == "":
		return cfg, ErrNoModel
	case cfg.APIKey == "" && !cfg.UseADC:
		return cfg, ErrNoAPIKey
	}
	return cfg, nil
}
