// Package audioio provides microphone capture and speaker playback for the
// voice client.
//
// Two backends exist:
//   - malgo (miniaudio) for real devices on Linux, macOS and Windows
//   - mock for tests and headless runs
//
// Captured audio is PCM16. EncodeFLAC packages a recording losslessly for
// upload to a transcription service.
package audioio

import (
	"fmt"
	"time"
)

// Backend selects the device implementation.
type Backend string

const (
	// BackendAuto uses malgo when a device opens and mock otherwise.
	BackendAuto  Backend = "auto"
	BackendMalgo Backend = "malgo"
	BackendMock  Backend = "mock"
)

// ParseBackend accepts the backend names; empty means auto.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case "":
		return BackendAuto, nil
	case BackendAuto, BackendMalgo, BackendMock:
		return b, nil
	default:
		return "", fmt.Errorf("audioio: unknown backend %q", s)
	}
}

// Config describes the PCM16 stream a device produces or accepts.
type Config struct {
	Backend    Backend `json:"backend"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	// BufferDuration is the length of one captured chunk or device period.
	BufferDuration time.Duration `json:"buffer_duration"`
}

// DefaultConfig is 16kHz mono in 20ms chunks, the rate transcription
// services take without resampling.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 20 * time.Millisecond,
	}
}

// PlaybackConfig matches the 24kHz mono PCM speech providers deliver.
func PlaybackConfig() Config {
	cfg := DefaultConfig()
	cfg.SampleRate = 24000
	return cfg
}

func (c *Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample rate %d is not positive", c.SampleRate)
	case c.Channels != 1 && c.Channels != 2:
		return fmt.Errorf("%d channels, want mono or stereo", c.Channels)
	case c.BufferDuration <= 0:
		return fmt.Errorf("buffer duration %v is not positive", c.BufferDuration)
	}
	return nil
}

// BufferSize is the number of frames in one buffer.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}
