package inference

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
		logger:    logger.With("component", "inference.chain"),
	}, nil
}

// Name lists the chained providers, e.g. "gemini>openai".
func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ">")
}

// Complete returns the first successful reply. A canceled context or an
// empty prompt ends the walk early.
func (c *Chain) Complete(ctx context.Context, req *Request) (*Response, error) {
	var errs []error
	for i, p := range c.providers {
		resp, err := p.Complete(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider answered", "provider", p.Name(), "failed", len(errs))
			}
			return resp, nil
		}
		if errors.Is(err, ErrEmptyPrompt) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("provider failed", "provider", p.Name(), "error", err)
		errs = append(errs, err)
	}
	return nil, &FallbackError{Errs: errs}
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
