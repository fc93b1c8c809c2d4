// Package tui is the terminal front end: a conversation view, a replay of the
// conversation log and an about page.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"intent-chatter/internal/chat"
	"intent-chatter/internal/history"
	"intent-chatter/internal/storage"
)

type view int

const (
	viewHome view = iota
	viewHistory
	viewAbout
)

var menu = []string{"Home", "Conversation History", "About"}

// Model is the bubbletea model of the chat UI.
type Model struct {
	engine   *chat.Engine
	session  *chat.Session
	styles   Styles
	input    textinput.Model
	chatView viewport.Model
	histView viewport.Model
	active   view
	notice   string
	isError  bool
	width    int
	height   int
}

func New(engine *chat.Engine) Model {
	ti := textinput.New()
	ti.Prompt = "You: "
	ti.Placeholder = "Type a message and press Enter"
	ti.CharLimit = 0
	ti.Focus()

	return Model{
		engine:   engine,
		session:  chat.NewSession(engine),
		styles:   DefaultStyles(),
		input:    ti,
		chatView: viewport.New(80, 15),
		histView: viewport.New(80, 18),
		width:    80,
		height:   24,
	}
}

// Run starts the UI on the alternate screen and blocks until it exits.
func Run(engine *chat.Engine) error {
	_, err := tea.NewProgram(New(engine), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			return m.switchTo((m.active + 1) % view(len(menu))), nil
		case tea.KeyShiftTab:
			return m.switchTo((m.active + view(len(menu)) - 1) % view(len(menu))), nil
		case tea.KeyCtrlN:
			m.session = chat.NewSession(m.engine)
			m.notice, m.isError = "", false
			m.refreshChat()
			cmd := m.input.Focus()
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch m.active {
	case viewHome:
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.Type {
			case tea.KeyEnter:
				m.submit()
				return m, nil
			case tea.KeyPgUp, tea.KeyPgDown:
				m.chatView, cmd = m.chatView.Update(msg)
				return m, cmd
			}
		}
		m.input, cmd = m.input.Update(msg)
	case viewHistory:
		m.histView, cmd = m.histView.Update(msg)
	}
	return m, cmd
}

func (m *Model) setSize(w, h int) {
	m.width, m.height = w, h
	// header, menu, welcome, input, notice and help
	m.chatView.Width = w
	m.chatView.Height = max(h-9, 3)
	m.histView.Width = w
	m.histView.Height = max(h-5, 3)
	m.input.Width = max(w-len(m.input.Prompt)-1, 10)
	m.refreshChat()
	m.refreshHistory()
}

func (m Model) switchTo(v view) Model {
	m.active = v
	if v == viewHistory {
		m.refreshHistory()
		m.histView.GotoTop()
	}
	return m
}

func (m *Model) submit() {
	text := m.input.Value()
	m.input.Reset()

	reply, err := m.session.Submit(text)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		return
	case errors.Is(err, chat.ErrSessionEnded):
		m.notice, m.isError = "The conversation has ended. Press Ctrl+N to start a new one.", false
		return
	case err != nil:
		m.notice, m.isError = "Error: "+err.Error(), true
		return
	}

	m.notice, m.isError = "", false
	if reply.LogErr != nil {
		m.notice, m.isError = "Conversation could not be saved: "+reply.LogErr.Error(), true
	}
	if reply.Ended {
		m.input.Blur()
		m.notice = strings.TrimSpace(m.notice + "\n" + chat.Farewell)
	}
	m.refreshChat()
}

func (m *Model) refreshChat() {
	var sb strings.Builder
	for _, e := range m.session.Transcript().Entries() {
		style := m.styles.Bot
		if e.Sender == history.SenderUser {
			style = m.styles.User
		}
		sb.WriteString(style.Render(e.Sender+":") + " " + e.Message + "\n")
	}
	m.chatView.SetContent(wrap(sb.String(), m.width))
	m.chatView.GotoBottom()
}

func (m *Model) refreshHistory() {
	turns, err := storage.Collect(m.engine.History())
	if err != nil {
		m.histView.SetContent(m.styles.Error.Render("Could not read the conversation log: " + err.Error()))
		return
	}
	if len(turns) == 0 {
		m.histView.SetContent("No conversation history available.")
		return
	}
	var sb strings.Builder
	sep := m.styles.Separator.Render(strings.Repeat("-", min(m.width, 40)))
	for _, t := range turns {
		fmt.Fprintf(&sb, "User: %s\nChatbot: %s\nTimestamp: %s\n%s\n", t.UserInput, t.Response, t.FormattedTimestamp(), sep)
	}
	m.histView.SetContent(wrap(sb.String(), m.width))
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Chatbot"))
	sb.WriteString("\n")
	sb.WriteString(m.renderMenu())
	sb.WriteString("\n\n")

	switch m.active {
	case viewHome:
		sb.WriteString(m.styles.Muted.Render(chat.Welcome))
		sb.WriteString("\n")
		sb.WriteString(m.chatView.View())
		sb.WriteString("\n")
		if !m.session.Ended() {
			sb.WriteString(m.input.View())
			sb.WriteString("\n")
		}
		if m.notice != "" {
			style := m.styles.Notice
			if m.isError {
				style = m.styles.Error
			}
			sb.WriteString(style.Render(m.notice))
			sb.WriteString("\n")
		}
	case viewHistory:
		sb.WriteString(m.histView.View())
		sb.WriteString("\n")
	case viewAbout:
		sb.WriteString(m.styles.Title.Render("About the Chatbot"))
		sb.WriteString("\n")
		sb.WriteString(wrap(chat.About, m.width))
		sb.WriteString("\n")
	}

	sb.WriteString(m.styles.Muted.Render("tab: switch view • ctrl+n: new conversation • pgup/pgdn: scroll • esc: quit"))
	return sb.String()
}

func (m Model) renderMenu() string {
	items := make([]string, len(menu))
	for i, name := range menu {
		if view(i) == m.active {
			items[i] = m.styles.MenuActive.Render(name)
		} else {
			items[i] = m.styles.MenuItem.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, items...)
}
