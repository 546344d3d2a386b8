package tts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Chain is a Provider that tries each provider in order.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

var _ Provider = (*Chain)(nil)

// NewChain requires at least one provider. A nil logger uses slog.Default.
func NewChain(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		providers: providers,
		logger:    logger.With("component", "tts.chain"),
	}, nil
}

// Name lists the chained providers, e.g. "openai>elevenlabs".
func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ">")
}

func (c *Chain) Synthesize(ctx context.Context, text string) (*Audio, error) {
	return fallback(ctx, c, "synthesize", func(p Provider) (*Audio, error) {
		return p.Synthesize(ctx, text)
	})
}

func (c *Chain) Stream(ctx context.Context, text string) (AudioStream, error) {
	return fallback(ctx, c, "stream", func(p Provider) (AudioStream, error) {
		return p.Stream(ctx, text)
	})
}

// Close closes every provider.
func (c *Chain) Close() error {
	errs := make([]error, 0, len(c.providers))
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// Providers returns the chained providers in order.
func (c *Chain) Providers() []Provider {
	return c.providers
}

func fallback[T any](ctx context.Context, c *Chain, op string, call func(Provider) (T, error)) (T, error) {
	var zero T
	var errs []error
	for i, p := range c.providers {
		v, err := call(p)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider used", "op", op, "provider", p.Name())
			}
			return v, nil
		}
		// No provider can speak empty text, and a canceled caller wants nothing.
		if errors.Is(err, ErrEmptyText) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		c.logger.Warn("provider failed", "op", op, "provider", p.Name(), "error", err)
		errs = append(errs, err)
	}
	return zero, &FallbackError{Errs: errs}
}
