package stt

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Chain tries providers in order until one recognizes the audio.
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
	return &Chain{providers: providers, logger: logger.With("component", "stt.chain")}, nil
}

func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ">")
}

// Transcribe returns the first provider's result that succeeds. Empty audio
// fails every provider alike, so it is returned without trying the rest.
func (c *Chain) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	errs := make([]error, 0, len(c.providers))
	for i, p := range c.providers {
		res, err := p.Transcribe(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider answered", "provider", p.Name(), "failed", len(errs))
			}
			return res, nil
		}
		if errors.Is(err, ErrEmptyAudio) {
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

func (c *Chain) Close() error {
	errs := make([]error, 0, len(c.providers))
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

func (c *Chain) Providers() []Provider {
	return c.providers
}
