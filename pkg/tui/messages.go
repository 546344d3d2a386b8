package tui

import (
	"context"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teslashibe/go-voicechat/pkg/chat"
	"github.com/teslashibe/go-voicechat/pkg/voice"
)

type voiceStateMsg struct{ from, to voice.State }

type transcriptMsg struct{ text string }

type voiceErrorMsg struct{ err error }

type assistantMsg struct {
	conversationID string
	message        chat.Message
}

type submitStartedMsg struct{ conversationID string }

type submitDoneMsg struct {
	conversationID string
	err            error
}

type submitFailedMsg struct {
	conversationID string
	err            error
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{ seq int }

// Sender delivers messages to a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Notifier forwards events from background goroutines into the program.
// Its hooks never block: the voice session calls them with its lock held,
// and Program.Send blocks until the update loop is free.
type Notifier struct {
	logger *slog.Logger
	queue  chan tea.Msg
	done   chan struct{}
	once   sync.Once
}

// NewNotifier creates a Notifier. Start forwarding with Run.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger: logger.With("component", "tui.notifier"),
		queue:  make(chan tea.Msg, 256),
		done:   make(chan struct{}),
	}
}

// Run forwards queued events to s until Close.
func (n *Notifier) Run(s Sender) {
	for {
		select {
		case msg := <-n.queue:
			s.Send(msg)
		case <-n.done:
			return
		}
	}
}

// Close stops Run. Later events are dropped.
func (n *Notifier) Close() {
	n.once.Do(func() { close(n.done) })
}

func (n *Notifier) post(msg tea.Msg) {
	select {
	case <-n.done:
		return
	default:
	}
	select {
	case n.queue <- msg:
	default:
		n.logger.Warn("ui event dropped", "type", msgName(msg))
	}
}

func msgName(msg tea.Msg) string {
	switch msg.(type) {
	case voiceStateMsg:
		return "voice_state"
	case transcriptMsg:
		return "transcript"
	case voiceErrorMsg:
		return "voice_error"
	case assistantMsg:
		return "assistant"
	case submitStartedMsg, submitDoneMsg:
		return "submit"
	case submitFailedMsg:
		return "submit_failed"
	default:
		return "other"
	}
}

// StateChanged is a voice.WithOnStateChange hook.
func (n *Notifier) StateChanged(from, to voice.State) {
	n.post(voiceStateMsg{from: from, to: to})
}

// Transcript is a voice.WithOnTranscript hook.
func (n *Notifier) Transcript(text string) {
	n.post(transcriptMsg{text: text})
}

// VoiceError is a voice.WithOnError hook.
func (n *Notifier) VoiceError(err error) {
	n.post(voiceErrorMsg{err: err})
}

// AssistantMessage is a chat.SubmitFlow.OnAssistantMessage listener.
func (n *Notifier) AssistantMessage(conversationID string, msg chat.Message) {
	n.post(assistantMsg{conversationID: conversationID, message: msg})
}

// SubmitFailed is a chat.SubmitFlow.OnFailure listener.
func (n *Notifier) SubmitFailed(conversationID string, err error) {
	n.post(submitFailedMsg{conversationID: conversationID, err: err})
}

// VoiceSubmitter returns a voice.WithOnSubmit hook that sends transcripts to
// the active conversation and keeps the loading indicator in sync. A skipped
// submission leaves the input, and the transcript in it, alone.
func (n *Notifier) VoiceSubmitter(store *chat.Store, flow *chat.SubmitFlow) func(ctx context.Context, text string) {
	return func(ctx context.Context, text string) {
		id := store.ActiveID()
		_, err := flow.SubmitNotify(ctx, id, text, func() {
			n.post(submitStartedMsg{conversationID: id})
		})
		if err != nil && chat.IsSkipped(err) {
			n.logger.Info("voice submission skipped", "conversation", id, "reason", err)
		}
		n.post(submitDoneMsg{conversationID: id, err: err})
	}
}
