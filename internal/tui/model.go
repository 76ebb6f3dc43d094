package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lecture-rag/internal/models"
	"lecture-rag/internal/render"
	"lecture-rag/internal/session"
)

// Chat is the TUI-facing subset of a session.
type Chat interface {
	State() session.State
	Settings() session.Settings
	SetShowSources(bool)
	SetIncludeImages(bool)
	Turns() []models.ConversationTurn
	Focus()
	Submit(ctx context.Context, text string) (*models.AnswerResult, error)
	RenderComplete()
	Reset()
}

// answerMsg carries the outcome of a submitted turn back to Update.
type answerMsg struct {
	answer *models.AnswerResult
	err    error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	chat     Chat
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	status   string
	busy     bool
	ready    bool
}

func New(ctx context.Context, chat Chat) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your lectures and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle

	chat.Focus()
	return Model{
		ctx:      ctx,
		chat:     chat,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   helpLine,
	}
}

const helpLine = "enter: ask  ctrl+s: sources  ctrl+o: images  ctrl+r: reset  ctrl+c: quit"

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := conversationStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyCtrlS:
			m.chat.SetShowSources(!m.chat.Settings().ShowSources)
			m.refresh()
			return m, nil
		case tea.KeyCtrlO:
			m.chat.SetIncludeImages(!m.chat.Settings().IncludeImages)
			m.refresh()
			return m, nil
		case tea.KeyCtrlR:
			m.chat.Reset()
			m.chat.Focus()
			m.busy = false
			m.status = "Conversation reset"
			m.refresh()
			return m, nil
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			m.status = ""
			cmd := submit(m.ctx, m.chat, q)
			m.refreshWithPending(q)
			return m, tea.Batch(m.spinner.Tick, cmd)
		}

	case answerMsg:
		if errors.Is(msg.err, models.ErrTurnDiscarded) {
			// reset while in flight; a newer turn may already be running
			return m, nil
		}
		m.busy = false
		switch {
		case msg.err != nil:
			m.status = "Error: " + msg.err.Error()
		default:
			m.status = helpLine
			m.refresh()
			m.chat.RenderComplete()
		}
		m.chat.Focus()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func submit(ctx context.Context, chat Chat, q string) tea.Cmd {
	return func() tea.Msg {
		ans, err := chat.Submit(ctx, q)
		return answerMsg{answer: ans, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Lecture Assistant") + " " + settingsStyle.Render(settingsLine(m.chat.Settings()))
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + stateLabel(m.chat.State())
	}
	return header + "\n" +
		conversationStyle.Render(m.viewport.View()) + "\n" +
		queryBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m *Model) refresh() {
	m.viewport.SetContent(Transcript(m.chat.Turns(), m.chat.Settings(), m.viewport.Width))
	m.viewport.GotoBottom()
}

// the session records the user turn only once Submit runs, so the pending
// question is drawn here until then
func (m *Model) refreshWithPending(q string) {
	turns := append(m.chat.Turns(), models.ConversationTurn{Role: models.RoleUser, Text: q})
	m.viewport.SetContent(Transcript(turns, m.chat.Settings(), m.viewport.Width))
	m.viewport.GotoBottom()
}

// Transcript renders the conversation for the viewport.
func Transcript(turns []models.ConversationTurn, settings session.Settings, width int) string {
	body := lipgloss.NewStyle().Width(max(20, width-4))
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		switch t.Role {
		case models.RoleUser:
			b.WriteString(userStyle.Render("You") + "\n")
		case models.RoleAssistant:
			b.WriteString(assistantStyle.Render("Assistant") + "\n")
		default:
			b.WriteString(systemStyle.Render(body.Render(t.Content())) + "\n")
			continue
		}
		b.WriteString(body.Render(render.Turn(t, settings)) + "\n")
	}
	return b.String()
}

func settingsLine(s session.Settings) string {
	return fmt.Sprintf("[sources: %s] [images: %s]", onOff(s.ShowSources), onOff(s.IncludeImages))
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func stateLabel(st session.State) string {
	switch st {
	case session.Retrieving:
		return "Searching lecture text and images..."
	case session.Generating:
		return "Generating answer..."
	default:
		return "Working..."
	}
}

var (
	headerStyle       = lipgloss.NewStyle().Bold(true)
	settingsStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	conversationStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	systemStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)
