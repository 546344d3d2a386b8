package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/go-voicechat/pkg/chat"
	"github.com/teslashibe/go-voicechat/pkg/format"
	"github.com/teslashibe/go-voicechat/pkg/voice"
)

// header, input, status and help lines
const chromeHeight = 4

func (m Model) mainWidth() int {
	return max(20, m.width-sidebarWidth-3)
}

// layout sizes the viewport to the window.
func (m *Model) layout() {
	h := max(3, m.height-chromeHeight)
	if !m.ready {
		m.viewport = viewport.New(m.mainWidth(), h)
		m.ready = true
	} else {
		m.viewport.Width = m.mainWidth()
		m.viewport.Height = h
	}
	m.input.Width = m.mainWidth() - len(m.input.Prompt) - 1
	m.refresh()
}

// refresh re-renders the active conversation and scrolls to its end.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) loading(id string) bool {
	return m.sending == id || m.cfg.Flow.Loading(id)
}

func (m Model) renderConversation() string {
	conv, ok := m.cfg.Store.Active()
	if !ok {
		return dimStyle.Render("No chat selected. Press ctrl+n to start one.")
	}
	loading := m.loading(conv.ID)
	if len(conv.Messages) == 0 && !loading {
		return dimStyle.Render("Start a conversation by typing a message or pressing ctrl+r to speak.")
	}

	wrap := lipgloss.NewStyle().Width(m.mainWidth())
	var b strings.Builder
	for _, msg := range conv.Messages {
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString(userLabelStyle.Render("You") + "\n")
			b.WriteString(wrap.Render(msg.Content) + "\n\n")
		default:
			b.WriteString(assistantLabelStyle.Render("Assistant") + "\n")
			b.WriteString(renderSegments(format.Format(msg.Content), m.mainWidth()) + "\n\n")
		}
	}
	if loading {
		b.WriteString(busyStyle.Render("Thinking..."))
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderSegments styles formatted reply lines for the terminal.
func renderSegments(segments []format.Segment, width int) string {
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		switch s.Kind {
		case format.Header:
			lines = append(lines, headerStyle.Render(s.Text))
		case format.Bullet:
			lines = append(lines, bulletStyle.Width(width).Render(s.String()))
		default:
			lines = append(lines, lipgloss.NewStyle().Width(width).Render(s.Text))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Chats") + "\n\n")

	convs := m.cfg.Store.List()
	if len(convs) == 0 {
		b.WriteString(dimStyle.Render("none yet"))
	}
	active := m.cfg.Store.ActiveID()
	for _, c := range convs {
		title := []rune(c.Title)
		if len(title) > sidebarWidth-4 {
			title = append(title[:sidebarWidth-6], []rune("..")...)
		}
		line := string(title)
		if m.loading(c.ID) {
			line += " …"
		}
		if c.ID == active {
			b.WriteString(activeChatStyle.Render("▸ "+line) + "\n")
		} else {
			b.WriteString(chatStyle.Render("  "+line) + "\n")
		}
	}
	return sidebarStyle.Height(max(1, m.height-1)).Render(b.String())
}

func (m Model) renderVoiceIndicator() string {
	if m.cfg.Voice == nil {
		return dimStyle.Render("voice off")
	}
	switch m.voiceState {
	case voice.Recording:
		return recordingStyle.Render("● REC")
	case voice.AwaitingTranscription:
		return busyStyle.Render("… transcribing")
	case voice.Speaking:
		return speakingStyle.Render("♪ speaking")
	default:
		return dimStyle.Render("○ mic idle")
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "loading..."
	}

	title := "New Chat"
	if conv, ok := m.cfg.Store.Active(); ok {
		title = conv.Title
	}
	header := titleStyle.Render(title) + "  " + m.renderVoiceIndicator()

	status := statusStyle.Render(m.status)
	if m.statusErr {
		status = errorStyle.Render(m.status)
	}

	help := helpStyle.Render(fmt.Sprintf("%s  %s  %s  %s  %s  %s  %s",
		"enter send", "ctrl+r mic", "ctrl+s speak", "ctrl+x stop", "ctrl+y copy", "ctrl+n/d new/delete", "tab switch"))

	main := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.input.View(),
		status,
		help,
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), " ", main)
}
