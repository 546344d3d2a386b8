package audioio

import (
	"fmt"
	"log/slog"
)

// NewSource opens a microphone on cfg.Backend. BackendAuto falls back to a
// silent mock when no capture device can be opened.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	return open(cfg, logger, "source",
		func() (Source, error) {
			src, err := NewMalgoSource(cfg, logger)
			if err != nil {
				return nil, err
			}
			return src, nil
		},
		func() Source { return NewMockSource(cfg, logger) })
}

// NewSink opens a speaker on cfg.Backend. BackendAuto falls back to a mock
// that discards audio.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	return open(cfg, logger, "sink",
		func() (Sink, error) {
			sink, err := NewMalgoSink(cfg, logger)
			if err != nil {
				return nil, err
			}
			return sink, nil
		},
		func() Sink { return NewMockSink(cfg, logger) })
}

func open[D Device](cfg Config, logger *slog.Logger, kind string, real func() (D, error), mock func() D) (D, error) {
	var zero D
	if err := cfg.Validate(); err != nil {
		return zero, fmt.Errorf("audioio: %s: %w", kind, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opening audio "+kind, "backend", cfg.Backend, "rate", cfg.SampleRate, "channels", cfg.Channels)

	switch cfg.Backend {
	case BackendMock:
		return mock(), nil
	case BackendMalgo:
		return real()
	case BackendAuto:
		d, err := real()
		if err != nil {
			logger.Warn("no audio device, using mock "+kind, "error", err)
			return mock(), nil
		}
		return d, nil
	default:
		return zero, fmt.Errorf("audioio: unsupported backend %q", cfg.Backend)
	}
}
