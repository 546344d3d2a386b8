// Package tui is the terminal chat client: a conversation sidebar, the
// formatted transcript of the active conversation, a draft input and the
// push-to-talk controls of a voice session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/teslashibe/go-voicechat/pkg/chat"
	"github.com/teslashibe/go-voicechat/pkg/format"
	"github.com/teslashibe/go-voicechat/pkg/voice"
)

// TranscriptPreviewLength is how much of a transcript the status line shows.
const TranscriptPreviewLength = 30

// DefaultStatusTTL is how long a status line stays visible.
const DefaultStatusTTL = 5 * time.Second

// Voice is the part of voice.Session the client drives.
type Voice interface {
	Toggle(ctx context.Context) error
	Speak(text string) error
	StopSpeaking()
	State() voice.State
}

// Config configures the client model.
type Config struct {
	Store *chat.Store
	Flow  *chat.SubmitFlow

	// Voice enables the mic and speech keys when set.
	Voice Voice

	// Copy writes text to the system clipboard.
	Copy func(text string) error

	StatusTTL time.Duration
	Logger    *slog.Logger
}

// Model is the bubbletea model of the client.
type Model struct {
	cfg    Config
	ctx    context.Context
	logger *slog.Logger

	input    textinput.Model
	viewport viewport.Model
	ready    bool
	width    int
	height   int

	// sending is the conversation whose submission this client started.
	sending    string
	voiceState voice.State
	status     string
	statusErr  bool
	statusSeq  int
	quitting   bool
}

// New creates the model. ctx bounds every submission and voice action
// started from the keyboard.
func New(ctx context.Context, cfg Config) (Model, error) {
	if cfg.Store == nil || cfg.Flow == nil {
		return Model{}, errors.New("tui: store and flow are required")
	}
	if cfg.Copy == nil {
		cfg.Copy = clipboard.WriteAll
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = DefaultStatusTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4000
	ti.Prompt = "> "
	ti.Focus()

	return Model{
		cfg:    cfg,
		ctx:    ctx,
		logger: cfg.Logger.With("component", "tui.model"),
		input:  ti,
		width:  100,
		height: 30,
	}, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case voiceStateMsg:
		m.voiceState = msg.to
		return m, nil

	case transcriptMsg:
		m.input.SetValue(msg.text)
		m.input.CursorEnd()
		return m.setStatus("Heard: "+chat.Preview(msg.text, TranscriptPreviewLength), false)

	case voiceErrorMsg:
		return m.setStatus(describeVoiceError(msg.err), true)

	case submitStartedMsg:
		m.input.Reset()
		m.sending = msg.conversationID
		m.refresh()
		return m, nil

	case submitDoneMsg:
		if m.sending == msg.conversationID {
			m.sending = ""
		}
		m.refresh()
		if msg.err == nil {
			return m, nil
		}
		var uerr *chat.UpstreamError
		switch {
		case errors.As(msg.err, &uerr):
			// reported by submitFailedMsg
			return m, nil
		case errors.Is(msg.err, chat.ErrInFlight):
			return m.setStatus("Still waiting for the previous reply", false)
		case errors.Is(msg.err, chat.ErrNoActiveConversation):
			return m.setStatus("No chat selected. Press ctrl+n to start one", false)
		case errors.Is(msg.err, chat.ErrEmptyDraft):
			return m, nil
		default:
			return m.setStatus("Send failed: "+msg.err.Error(), true)
		}

	case submitFailedMsg:
		m.refresh()
		return m.setStatus("Failed to generate response: "+rootCause(msg.err), true)

	case assistantMsg:
		m.refresh()
		return m, nil

	case statusMsg:
		return m.setStatus(msg.text, msg.isErr)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		return m.submit()

	case "ctrl+n":
		if _, err := m.cfg.Store.Create(m.ctx); err != nil {
			m.logger.Warn("create chat", "error", err)
		}
		m.refresh()
		return m, nil

	case "ctrl+d":
		id := m.cfg.Store.ActiveID()
		if id == "" {
			return m, nil
		}
		if err := m.cfg.Store.Delete(m.ctx, id); err != nil && !errors.Is(err, chat.ErrNotFound) {
			m.logger.Warn("delete chat", "error", err)
		}
		m.refresh()
		return m, nil

	case "tab":
		m.cycle(1)
		return m, nil

	case "shift+tab":
		m.cycle(-1)
		return m, nil

	case "ctrl+r":
		return m.toggleVoice()

	case "ctrl+s":
		return m.speakLast()

	case "ctrl+x":
		if m.cfg.Voice != nil {
			v := m.cfg.Voice
			return m, func() tea.Msg {
				v.StopSpeaking()
				return nil
			}
		}
		return m, nil

	case "ctrl+y":
		return m.copyLast()

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the draft to the active conversation in the background.
func (m Model) submit() (tea.Model, tea.Cmd) {
	draft := m.input.Value()
	id := m.cfg.Store.ActiveID()
	if strings.TrimSpace(draft) == "" || id == "" || m.loading(id) {
		return m, nil
	}
	m.input.Reset()
	m.sending = id
	m.refresh()

	flow, ctx := m.cfg.Flow, m.ctx
	return m, func() tea.Msg {
		_, err := flow.SubmitTo(ctx, id, draft)
		return submitDoneMsg{conversationID: id, err: err}
	}
}

// cycle moves the active selection by delta, wrapping around.
func (m *Model) cycle(delta int) {
	convs := m.cfg.Store.List()
	if len(convs) == 0 {
		return
	}
	cur := 0
	for i, c := range convs {
		if c.ID == m.cfg.Store.ActiveID() {
			cur = i
			break
		}
	}
	next := (cur + delta + len(convs)) % len(convs)
	if err := m.cfg.Store.Select(convs[next].ID); err != nil {
		m.logger.Warn("select chat", "error", err)
	}
	m.refresh()
}

func (m Model) toggleVoice() (tea.Model, tea.Cmd) {
	if m.cfg.Voice == nil {
		return m.setStatus("Voice is disabled", false)
	}
	// The mic is off while a reply is pending; a running recording can
	// still be stopped.
	if m.cfg.Voice.State() != voice.Recording && m.loading(m.cfg.Store.ActiveID()) {
		return m.setStatus("Wait for the reply before recording", false)
	}
	v, ctx := m.cfg.Voice, m.ctx
	return m, func() tea.Msg {
		if err := v.Toggle(ctx); err != nil {
			return voiceErrorMsg{err: err}
		}
		return nil
	}
}

// speakLast speaks the last message of the active conversation when it
// came from the assistant.
func (m Model) speakLast() (tea.Model, tea.Cmd) {
	if m.cfg.Voice == nil {
		return m.setStatus("Voice is disabled", false)
	}
	conv, ok := m.cfg.Store.Active()
	if !ok {
		return m, nil
	}
	reply := conv.LastResponse()
	if reply == "" {
		return m.setStatus("Nothing to speak yet", false)
	}
	v := m.cfg.Voice
	text := format.Plain(format.Format(reply))
	return m, func() tea.Msg {
		if err := v.Speak(text); err != nil {
			return voiceErrorMsg{err: err}
		}
		return nil
	}
}

func (m Model) copyLast() (tea.Model, tea.Cmd) {
	conv, ok := m.cfg.Store.Active()
	if !ok || conv.LastResponse() == "" {
		return m.setStatus("Nothing to copy yet", false)
	}
	if err := m.cfg.Copy(format.Render(format.Format(conv.LastResponse()))); err != nil {
		return m.setStatus("Copy failed: "+err.Error(), true)
	}
	return m.setStatus("Copied last reply", false)
}

// setStatus shows text until a newer status replaces it or the TTL ends.
func (m Model) setStatus(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.statusSeq++
	m.status = text
	m.statusErr = isErr
	seq := m.statusSeq
	return m, tea.Tick(m.cfg.StatusTTL, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

func describeVoiceError(err error) string {
	var (
		derr *voice.DeviceAccessError
		terr *voice.TranscriptionError
	)
	switch {
	case errors.As(err, &derr):
		return "Microphone unavailable: " + rootCause(derr.Err)
	case errors.As(err, &terr):
		return "Couldn't understand that: " + rootCause(terr.Err)
	case errors.Is(err, voice.ErrBusy):
		return "Voice is busy, try again in a moment"
	default:
		return fmt.Sprintf("Voice error: %v", err)
	}
}

func rootCause(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
