package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-voicechat/pkg/audioio"
	"github.com/teslashibe/go-voicechat/pkg/speech"
)

// Session is a push-to-talk voice session. It is safe for concurrent use;
// transitions are serialized by an internal lock.
type Session struct {
	cfg   Config
	turns TurnLog

	// ctx bounds background speech and capture; canceled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	starting bool
	closed   bool

	// speechGen identifies the utterance that owns the Speaking state, so a
	// canceled utterance finishing late cannot override a newer state.
	// speechStop cancels that utterance even before it reaches the speaker.
	speechGen  uint64
	speechStop context.CancelFunc

	armed     atomic.Bool
	chunks    []audioio.AudioChunk
	collected chan struct{}

	submitTimer *time.Timer
	wg          sync.WaitGroup
}

// New creates a Session. A microphone and a transcriber are required.
func New(opts ...Option) (*Session, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = DefaultConfig().Logger
	}
	cfg.Logger = cfg.Logger.With("component", "voice.session")
	if cfg.Speaker == nil {
		cfg.Speaker = speech.NewSilent(cfg.Logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Turns returns the timing of recent turns.
func (s *Session) Turns() *TurnLog {
	return &s.turns
}

// setState must be called with the lock held.
func (s *Session) setState(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.cfg.Logger.Debug("state change", "from", from, "to", to)
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(from, to)
	}
}

// Toggle is the mic button: it starts a recording when idle or speaking and
// stops it when recording. While a transcription is pending it returns ErrBusy.
func (s *Session) Toggle(ctx context.Context) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state == Recording {
		return s.StopRecording(ctx)
	}
	return s.StartRecording(ctx)
}

// StartRecording cancels any speech, acquires the microphone and begins
// capturing. Microphone failure is spoken and reported to OnError; the
// session stays Idle and nil is returned.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == AwaitingTranscription || s.starting {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.state == Recording {
		s.mu.Unlock()
		return nil
	}
	interrupt := s.state == Speaking
	if interrupt {
		s.endSpeech()
		s.setState(Idle)
	}
	s.starting = true
	s.mu.Unlock()

	if interrupt {
		s.cfg.Speaker.Cancel()
	}

	mic := s.cfg.Microphone
	if err := mic.Start(s.ctx); err != nil {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
		s.report(&DeviceAccessError{Err: err}, PromptMicUnavailable)
		return nil
	}

	// Audio captured while the prompt plays is dropped.
	s.armed.Store(false)
	collected := make(chan struct{})
	s.mu.Lock()
	s.chunks = nil
	s.collected = collected
	s.mu.Unlock()
	go s.collect(mic.Stream(), collected)

	if err := s.cfg.Speaker.Speak(ctx, PromptListening); err != nil && !isBenignSpeechError(err) {
		s.cfg.Logger.Warn("listening prompt failed", "error", err)
	}

	s.mu.Lock()
	s.starting = false
	if s.closed {
		s.mu.Unlock()
		s.releaseMicrophone()
		return ErrClosed
	}
	s.armed.Store(true)
	s.setState(Recording)
	s.mu.Unlock()

	s.turns.begin()
	s.cfg.Logger.Info("recording started")
	return nil
}

func (s *Session) collect(stream <-chan audioio.AudioChunk, done chan<- struct{}) {
	defer close(done)
	for chunk := range stream {
		if !s.armed.Load() {
			continue
		}
		s.mu.Lock()
		s.chunks = append(s.chunks, chunk)
		s.mu.Unlock()
	}
}

// releaseMicrophone stops capture and waits for the collector to drain.
func (s *Session) releaseMicrophone() {
	if err := s.cfg.Microphone.Stop(); err != nil {
		s.cfg.Logger.Warn("release microphone", "error", err)
	}
	s.mu.Lock()
	collected := s.collected
	s.mu.Unlock()
	if collected != nil {
		<-collected
	}
}

// StopRecording releases the microphone and transcribes the capture. It
// blocks until the session is back to Idle. Transcription failures are
// spoken and reported to OnError rather than returned.
func (s *Session) StopRecording(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.state == AwaitingTranscription:
		s.mu.Unlock()
		return ErrBusy
	case s.state != Recording:
		s.mu.Unlock()
		return ErrNotRecording
	}
	s.setState(AwaitingTranscription)
	s.mu.Unlock()

	s.releaseMicrophone()

	s.mu.Lock()
	chunks := s.chunks
	s.chunks = nil
	s.collected = nil
	s.mu.Unlock()

	s.turns.released(len(chunks))
	s.transcribe(ctx, chunks)
	return nil
}

func (s *Session) transcribe(ctx context.Context, chunks []audioio.AudioChunk) {
	var (
		text  string
		audio []byte
		err   error
	)
	audio, err = audioio.EncodeChunksFLAC(chunks)
	if err == nil {
		text, err = s.cfg.Transcriber.Transcribe(ctx, audio, audioio.MimeFLAC)
		text = strings.TrimSpace(text)
		if err == nil && text == "" {
			err = ErrEmptyTranscript
		}
	}
	s.turns.transcribed(len(audio), err != nil)

	s.mu.Lock()
	if s.state == AwaitingTranscription {
		s.setState(Idle)
	}
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return
	}
	if err != nil {
		s.report(&TranscriptionError{Err: err}, PromptNotUnderstood)
		return
	}

	s.cfg.Logger.Info("transcribed", "chars", len(text), "audio_bytes", len(audio))
	if s.cfg.OnTranscript != nil {
		s.cfg.OnTranscript(text)
	}
	s.announce(PromptProcessing)
	s.scheduleSubmit(text)
}

func (s *Session) scheduleSubmit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.submitTimer != nil {
		s.submitTimer.Stop()
	}
	s.submitTimer = time.AfterFunc(s.cfg.SubmitDelay, func() {
		s.submit(text)
	})
}

func (s *Session) submit(text string) {
	s.mu.Lock()
	closed := s.closed
	s.submitTimer = nil
	s.mu.Unlock()
	if closed {
		return
	}

	turn := s.turns.submitted()
	s.cfg.Logger.Debug("voice turn", "timing", turn.String())
	if s.cfg.OnSubmit != nil {
		s.cfg.OnSubmit(s.ctx, text)
	}
}

// HandleAssistantMessage speaks a new assistant reply when the session is
// Idle. Replies arriving in any other state are not spoken.
func (s *Session) HandleAssistantMessage(text string) {
	if err := s.Speak(text); err != nil {
		s.cfg.Logger.Debug("assistant reply not spoken", "reason", err, "state", s.State())
	}
}

// Speak plays text in the background, moving Idle to Speaking and back.
// It returns ErrBusy unless the session is Idle.
func (s *Session) Speak(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.state != Idle || s.starting {
		return ErrBusy
	}
	s.endSpeech()
	ctx, stop := context.WithCancel(s.ctx)
	s.speechStop = stop
	gen := s.speechGen
	s.setState(Speaking)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		err := speech.ErrCanceled
		if ctx.Err() == nil {
			err = s.cfg.Speaker.Speak(ctx, text)
		}

		s.mu.Lock()
		if s.speechGen == gen && s.state == Speaking {
			s.setState(Idle)
		}
		s.mu.Unlock()

		if err != nil && !isBenignSpeechError(err) {
			s.cfg.Logger.Warn("speech failed", "error", err)
			s.notifyError(err)
		}
	}()
	return nil
}

// endSpeech retires the current utterance. It must be called with the lock
// held; the caller still cancels the speaker to stop audio already playing.
func (s *Session) endSpeech() {
	s.speechGen++
	if s.speechStop != nil {
		s.speechStop()
		s.speechStop = nil
	}
}

// StopSpeaking cancels the current utterance, if any.
func (s *Session) StopSpeaking() {
	s.mu.Lock()
	if s.state != Speaking {
		s.mu.Unlock()
		return
	}
	s.endSpeech()
	s.setState(Idle)
	s.mu.Unlock()

	s.cfg.Speaker.Cancel()
}

// announce speaks a feedback prompt if the session is free to speak.
func (s *Session) announce(prompt string) {
	if err := s.Speak(prompt); err != nil {
		s.cfg.Logger.Debug("prompt skipped", "prompt", prompt, "reason", err)
	}
}

// report logs err, speaks the matching prompt and calls OnError.
func (s *Session) report(err error, prompt string) {
	s.cfg.Logger.Warn("voice turn failed", "error", err)
	s.announce(prompt)
	s.notifyError(err)
}

func (s *Session) notifyError(err error) {
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
}

// Close stops any pending submission, cancels speech and releases both
// devices. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	recording := s.state == Recording
	if s.submitTimer != nil {
		s.submitTimer.Stop()
		s.submitTimer = nil
	}
	s.endSpeech()
	s.setState(Idle)
	s.mu.Unlock()

	s.cancel()
	s.cfg.Speaker.Cancel()
	if recording {
		s.releaseMicrophone()
	}
	s.wg.Wait()

	errs := []error{
		s.cfg.Speaker.Close(),
		s.cfg.Microphone.Close(),
	}
	s.cfg.Logger.Info("voice session closed")
	return errors.Join(errs...)
}

func isBenignSpeechError(err error) bool {
	return errors.Is(err, speech.ErrCanceled) ||
		errors.Is(err, speech.ErrBusy) ||
		errors.Is(err, context.Canceled)
}
