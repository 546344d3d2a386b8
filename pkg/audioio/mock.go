package audioio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockSource is an audio source for tests and headless runs.
// It emits silence, a sine wave, or a scripted sequence of chunks.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	starts   int
	streamCh chan AudioChunk
	stopCh   chan struct{}
	done     chan struct{}

	chunksRead  atomic.Int64
	samplesRead atomic.Int64

	startErr  error
	script    []AudioChunk
	phase     float64 // radians
	frequency float64 // Hz; zero is silence
	amplitude float64
}

type MockSourceOption func(*MockSource)

// WithSineWave replaces silence with a tone. Amplitude is in [0, 1].
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// WithScript makes every recording emit exactly these chunks, one per
// buffer period, then idle until stopped.
func WithScript(chunks ...AudioChunk) MockSourceOption {
	return func(m *MockSource) {
		m.script = chunks
	}
}

// WithStartError makes Start fail, simulating a denied or missing microphone.
func WithStartError(err error) MockSourceOption {
	return func(m *MockSource) {
		m.startErr = err
	}
}

// NewMockSource emits silence unless configured otherwise.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}

	ch := make(chan AudioChunk)
	close(ch)
	m := &MockSource{
		cfg:       cfg,
		logger:    logger.With("component", "audioio.mock_source"),
		streamCh:  ch,
		amplitude: 0.5,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.startErr != nil {
		return m.startErr
	}
	if m.running {
		return nil
	}

	m.running = true
	m.starts++
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})
	m.streamCh = make(chan AudioChunk, 64)

	go m.generateLoop(ctx, m.streamCh, m.stopCh, m.done)

	m.logger.Debug("mock capture started", "frequency", m.frequency, "scripted", len(m.script))
	return nil
}

func (m *MockSource) generateLoop(ctx context.Context, out chan<- AudioChunk, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	emit := func(chunk AudioChunk) bool {
		select {
		case out <- chunk:
			m.chunksRead.Add(1)
			m.samplesRead.Add(int64(len(chunk.Samples)))
			return true
		case <-stop:
			return false
		case <-ctx.Done():
			return false
		}
	}

	ticker := time.NewTicker(m.cfg.BufferDuration)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
		}

		var chunk AudioChunk
		switch {
		case m.script == nil:
			chunk = m.generateChunk()
		case i < len(m.script):
			chunk = m.script[i]
		default:
			continue
		}
		if !emit(chunk) {
			return
		}
	}
}

// generateChunk renders one buffer of the tone, continuing its phase from
// the previous buffer.
func (m *MockSource) generateChunk() AudioChunk {
	frames := m.cfg.BufferSize()
	chunk := AudioChunk{
		Samples:    make([]int16, frames*m.cfg.Channels),
		SampleRate: m.cfg.SampleRate,
		Channels:   m.cfg.Channels,
	}
	if m.frequency <= 0 {
		return chunk
	}

	step := 2 * math.Pi * m.frequency / float64(m.cfg.SampleRate)
	for f := range frames {
		v := int16(m.amplitude * math.MaxInt16 * math.Sin(m.phase))
		for c := range m.cfg.Channels {
			chunk.Samples[f*m.cfg.Channels+c] = v
		}
		m.phase = math.Mod(m.phase+step, 2*math.Pi)
	}
	return chunk
}

// Stop halts audio generation. Chunks already emitted stay readable.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	done := m.done
	m.mu.Unlock()

	<-done
	m.logger.Debug("mock capture stopped")
	return nil
}

func (m *MockSource) Read(ctx context.Context) (AudioChunk, error) {
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

// Stream is the channel of the current recording.
func (m *MockSource) Stream() <-chan AudioChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamCh
}

func (m *MockSource) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Starts returns how many times capture has started.
func (m *MockSource) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// Closed reports whether Close has been called.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockSource) Config() Config {
	return m.cfg
}

func (m *MockSource) Name() string {
	return "mock"
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	return m.Stop()
}

func (m *MockSource) Stats() Stats {
	return Stats{
		Backend: "mock",
		Running: m.Running(),
		Chunks:  m.chunksRead.Load(),
		Samples: m.samplesRead.Load(),
	}
}

// MockSink is an audio sink for tests and headless runs.
// It records everything written. In realtime mode Flush takes as long as the
// queued audio would take to play, and Clear cuts it short.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	realtime bool
	startErr error
	queued   []AudioChunk
	written  []int16
	clears   int
	cleared  chan struct{}

	chunksWritten  atomic.Int64
	samplesWritten atomic.Int64
}

// MockSinkOption configures a MockSink.
type MockSinkOption func(*MockSink)

// WithRealtime makes Flush wait for the real duration of queued audio.
func WithRealtime() MockSinkOption {
	return func(m *MockSink) {
		m.realtime = true
	}
}

// WithSinkStartError makes Start fail, simulating a missing speaker.
func WithSinkStartError(err error) MockSinkOption {
	return func(m *MockSink) {
		m.startErr = err
	}
}

func NewMockSink(cfg Config, logger *slog.Logger, opts ...MockSinkOption) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MockSink{
		cfg:     cfg,
		logger:  logger.With("component", "audioio.mock_sink"),
		cleared: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.startErr != nil {
		return m.startErr
	}

	m.running = true
	return nil
}

// Stop halts audio acceptance and drops queued audio.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.running = false
	m.queued = nil
	return nil
}

// Write records chunk and queues it for Flush.
func (m *MockSink) Write(ctx context.Context, chunk AudioChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || !m.running {
		return io.ErrClosedPipe
	}

	m.queued = append(m.queued, chunk)
	m.written = append(m.written, chunk.Samples...)

	m.chunksWritten.Add(1)
	m.samplesWritten.Add(int64(len(chunk.Samples)))
	return nil
}

// Flush waits for queued audio. Outside realtime mode the wait is a
// hundredth of the audio length, capped at 10ms.
func (m *MockSink) Flush(ctx context.Context) error {
	m.mu.Lock()
	var total time.Duration
	for _, chunk := range m.queued {
		total += chunk.Duration()
	}
	cleared := m.cleared
	realtime := m.realtime
	m.mu.Unlock()

	wait := total
	if !realtime {
		wait = min(total/100, 10*time.Millisecond)
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cleared:
			return nil
		case <-timer.C:
		}
	}

	m.mu.Lock()
	m.queued = nil
	m.mu.Unlock()
	return nil
}

// Clear discards queued audio and releases any waiting Flush.
func (m *MockSink) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queued = nil
	m.clears++
	close(m.cleared)
	m.cleared = make(chan struct{})
	return nil
}

// Clears returns how many times Clear has been called.
func (m *MockSink) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// Written returns a copy of every sample written so far.
func (m *MockSink) Written() []int16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int16(nil), m.written...)
}

func (m *MockSink) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Closed reports whether Close has been called.
func (m *MockSink) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockSink) Config() Config {
	return m.cfg
}

func (m *MockSink) Name() string {
	return "mock"
}

func (m *MockSink) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	return m.Stop()
}

func (m *MockSink) Stats() Stats {
	m.mu.Lock()
	running := m.running
	var buffered int64
	for _, chunk := range m.queued {
		buffered += int64(len(chunk.Samples))
	}
	m.mu.Unlock()

	return Stats{
		Backend:  "mock",
		Running:  running,
		Chunks:   m.chunksWritten.Load(),
		Samples:  m.samplesWritten.Load(),
		Buffered: buffered,
	}
}
