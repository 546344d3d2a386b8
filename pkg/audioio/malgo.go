package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// ErrDeviceUnavailable is returned when a capture or playback device cannot
// be opened or started.
var ErrDeviceUnavailable = errors.New("audioio: device unavailable")

func deviceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, op, err)
}

func initMalgoContext() (*malgo.AllocatedContext, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, deviceError("init context", err)
	}
	return ctx, nil
}

func freeMalgoContext(ctx *malgo.AllocatedContext) {
	if ctx == nil {
		return
	}
	_ = ctx.Uninit()
	ctx.Free()
}

// MalgoSource captures microphone audio with miniaudio.
// The device is opened on Start and released on Stop.
type MalgoSource struct {
	cfg    Config
	logger *slog.Logger
	mctx   *malgo.AllocatedContext

	mu      sync.Mutex
	device  *malgo.Device
	running bool
	closed  bool

	// cbMu orders callback sends against the channel close in Stop.
	cbMu      sync.Mutex
	capturing bool
	streamCh  chan AudioChunk

	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	overruns    atomic.Int64
}

// NewMalgoSource initializes a miniaudio context for capture.
func NewMalgoSource(cfg Config, logger *slog.Logger) (*MalgoSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mctx, err := initMalgoContext()
	if err != nil {
		return nil, err
	}
	ch := make(chan AudioChunk)
	close(ch)
	return &MalgoSource{
		cfg:      cfg,
		logger:   logger.With("component", "audioio.malgo_source"),
		mctx:     mctx,
		streamCh: ch,
	}, nil
}

// Start opens the default capture device and begins streaming chunks.
func (m *MalgoSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return nil
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = uint32(m.cfg.Channels)
	devCfg.SampleRate = uint32(m.cfg.SampleRate)
	devCfg.PeriodSizeInMilliseconds = uint32(m.cfg.BufferDuration.Milliseconds())

	device, err := malgo.InitDevice(m.mctx.Context, devCfg, malgo.DeviceCallbacks{
		Data: m.onData,
	})
	if err != nil {
		return deviceError("open capture device", err)
	}

	m.cbMu.Lock()
	m.streamCh = make(chan AudioChunk, 256)
	m.capturing = true
	m.cbMu.Unlock()

	if err := device.Start(); err != nil {
		m.endStream()
		device.Uninit()
		return deviceError("start capture device", err)
	}

	m.device = device
	m.running = true
	m.logger.Info("capture started", "sample_rate", m.cfg.SampleRate, "channels", m.cfg.Channels)
	return nil
}

func (m *MalgoSource) onData(_, input []byte, _ uint32) {
	if len(input) == 0 {
		return
	}
	chunk := AudioChunk{
		Samples:    BytesToSamples(input),
		SampleRate: m.cfg.SampleRate,
		Channels:   m.cfg.Channels,
	}

	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	if !m.capturing {
		return
	}
	select {
	case m.streamCh <- chunk:
		m.chunksRead.Add(1)
		m.samplesRead.Add(int64(len(chunk.Samples)))
	default:
		m.overruns.Add(1)
	}
}

func (m *MalgoSource) endStream() {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	if m.capturing {
		m.capturing = false
		close(m.streamCh)
	}
}

// Stop halts capture and releases the device. Chunks already delivered to
// the stream stay readable until it is drained.
func (m *MalgoSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false

	err := m.device.Stop()
	m.endStream()
	m.device.Uninit()
	m.device = nil

	m.logger.Info("capture stopped",
		"chunks", m.chunksRead.Load(),
		"overruns", m.overruns.Load(),
	)
	if err != nil {
		return deviceError("stop capture device", err)
	}
	return nil
}

// Read reads the next audio chunk.
func (m *MalgoSource) Read(ctx context.Context) (AudioChunk, error) {
	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-m.Stream():
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

// Stream returns the channel of captured chunks for the current recording.
func (m *MalgoSource) Stream() <-chan AudioChunk {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	return m.streamCh
}

// Config returns the audio configuration.
func (m *MalgoSource) Config() Config {
	return m.cfg
}

// Name returns "malgo".
func (m *MalgoSource) Name() string {
	return "malgo"
}

// Close stops capture and frees the miniaudio context.
func (m *MalgoSource) Close() error {
	err := m.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	freeMalgoContext(m.mctx)
	m.mctx = nil
	return err
}

// Stats returns source statistics.
func (m *MalgoSource) Stats() Stats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return Stats{
		Backend: "malgo",
		Running: running,
		Chunks:  m.chunksRead.Load(),
		Samples: m.samplesRead.Load(),
		Dropped: m.overruns.Load(),
	}
}

// MalgoSink plays PCM16 audio with miniaudio. Written audio is queued and
// pulled by the device callback; Clear drops whatever is queued.
type MalgoSink struct {
	cfg    Config
	logger *slog.Logger
	mctx   *malgo.AllocatedContext

	mu      sync.Mutex
	device  *malgo.Device
	running bool
	closed  bool

	// bufMu guards pending, which the device callback drains.
	bufMu   sync.Mutex
	pending []byte

	chunksWritten  atomic.Int64
	samplesWritten atomic.Int64
	underruns      atomic.Int64
}

// NewMalgoSink initializes a miniaudio context for playback.
func NewMalgoSink(cfg Config, logger *slog.Logger) (*MalgoSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mctx, err := initMalgoContext()
	if err != nil {
		return nil, err
	}
	return &MalgoSink{
		cfg:    cfg,
		logger: logger.With("component", "audioio.malgo_sink"),
		mctx:   mctx,
	}, nil
}

// Start opens the default playback device.
func (m *MalgoSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return nil
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Playback)
	devCfg.Playback.Format = malgo.FormatS16
	devCfg.Playback.Channels = uint32(m.cfg.Channels)
	devCfg.SampleRate = uint32(m.cfg.SampleRate)
	devCfg.PeriodSizeInMilliseconds = uint32(m.cfg.BufferDuration.Milliseconds())

	device, err := malgo.InitDevice(m.mctx.Context, devCfg, malgo.DeviceCallbacks{
		Data: m.onData,
	})
	if err != nil {
		return deviceError("open playback device", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return deviceError("start playback device", err)
	}

	m.device = device
	m.running = true
	m.logger.Info("playback started", "sample_rate", m.cfg.SampleRate)
	return nil
}

func (m *MalgoSink) onData(output, _ []byte, _ uint32) {
	m.bufMu.Lock()
	n := copy(output, m.pending)
	if n > 0 && n < len(output) {
		m.underruns.Add(1)
	}
	m.pending = m.pending[n:]
	m.bufMu.Unlock()

	for i := n; i < len(output); i++ {
		output[i] = 0
	}
}

// Stop halts playback, drops queued audio and releases the device.
func (m *MalgoSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false

	err := m.device.Stop()
	m.device.Uninit()
	m.device = nil
	_ = m.Clear()

	m.logger.Info("playback stopped", "chunks", m.chunksWritten.Load())
	if err != nil {
		return deviceError("stop playback device", err)
	}
	return nil
}

// Write queues a chunk for playback, converting sample rate and channel
// layout to the device format.
func (m *MalgoSink) Write(ctx context.Context, chunk AudioChunk) error {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if !running {
		return io.ErrClosedPipe
	}

	samples := conform(chunk, m.cfg)
	data := SamplesToBytes(samples)

	m.bufMu.Lock()
	m.pending = append(m.pending, data...)
	m.bufMu.Unlock()

	m.chunksWritten.Add(1)
	m.samplesWritten.Add(int64(len(samples)))
	return nil
}

// Flush blocks until queued audio has been handed to the device or ctx ends.
func (m *MalgoSink) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if m.buffered() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *MalgoSink) buffered() int {
	m.bufMu.Lock()
	defer m.bufMu.Unlock()
	return len(m.pending)
}

// Clear discards queued audio immediately.
func (m *MalgoSink) Clear() error {
	m.bufMu.Lock()
	m.pending = nil
	m.bufMu.Unlock()
	return nil
}

// Config returns the audio configuration.
func (m *MalgoSink) Config() Config {
	return m.cfg
}

// Name returns "malgo".
func (m *MalgoSink) Name() string {
	return "malgo"
}

// Close stops playback and frees the miniaudio context.
func (m *MalgoSink) Close() error {
	err := m.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	freeMalgoContext(m.mctx)
	m.mctx = nil
	return err
}

// Stats returns sink statistics.
func (m *MalgoSink) Stats() Stats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return Stats{
		Backend:  "malgo",
		Running:  running,
		Chunks:   m.chunksWritten.Load(),
		Samples:  m.samplesWritten.Load(),
		Dropped:  m.underruns.Load(),
		Buffered: int64(m.buffered() / 2),
	}
}

// conform converts a chunk to the sample rate and channel count of cfg.
func conform(chunk AudioChunk, cfg Config) []int16 {
	samples := chunk.Samples
	channels := chunk.Channels
	if channels == 0 {
		channels = 1
	}
	if channels == 2 && cfg.Channels == 1 {
		samples = StereoToMono(samples)
		channels = 1
	}
	if chunk.SampleRate > 0 && chunk.SampleRate != cfg.SampleRate && channels == 1 {
		samples = Resample(samples, chunk.SampleRate, cfg.SampleRate)
	}
	if channels == 1 && cfg.Channels == 2 {
		samples = MonoToStereo(samples)
	}
	return samples
}
