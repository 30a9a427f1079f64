// Command widget runs the chat widget in a terminal: a collapsed badge that
// expands into a conversation panel backed by the chatbot API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/openorder-ai/erp-chatbot/internal/config"
	"github.com/openorder-ai/erp-chatbot/pkg/widget"
)

var (
	badgeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(1, 2)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	botStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

type sessionStartedMsg struct{ err error }

type exchangeDoneMsg struct{}

type model struct {
	widget    *widget.Widget
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model

	// sending is set the moment Enter dispatches an exchange and cleared when
	// it completes. The widget's own loading flag flips inside the send
	// command, too late for the first spinner ticks to see it.
	sending bool

	ready  bool
	width  int
	height int
}

func newModel(w *widget.Widget) model {
	ti := textinput.New()
	ti.Placeholder = "Ask about orders, items, customers... (Enter to send)"
	ti.Prompt = "│ "
	ti.CharLimit = 500
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(60, 16)

	return model{
		widget:    w,
		textinput: ti,
		viewport:  vp,
		spinner:   sp,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.startSession(),
	)
}

func (m model) startSession() tea.Cmd {
	return func() tea.Msg {
		return sessionStartedMsg{err: m.widget.StartSession(context.Background())}
	}
}

func (m model) send(draft string) tea.Cmd {
	return func() tea.Msg {
		m.widget.SendMessage(context.Background(), draft)
		return exchangeDoneMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit

		case tea.KeyCtrlO, tea.KeyEsc:
			m.widget.Toggle()
			m.syncTranscript()
			return m, nil

		case tea.KeyEnter:
			state := m.widget.State()
			if !state.Open || state.Loading || m.sending {
				return m, nil
			}
			draft := m.textinput.Value()
			if strings.TrimSpace(draft) == "" {
				return m, nil
			}
			m.textinput.Reset()
			m.widget.SetDraft("")
			m.sending = true
			return m, tea.Batch(m.send(draft), m.spinner.Tick)
		}

		if m.widget.State().Open && !m.widget.State().Loading {
			m.textinput, tiCmd = m.textinput.Update(msg)
			m.widget.SetDraft(m.textinput.Value())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		panelHeight := msg.Height - 7
		if panelHeight < 4 {
			panelHeight = 4
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, panelHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = panelHeight
		}
		m.textinput.Width = msg.Width - 6
		m.syncTranscript()

	case sessionStartedMsg:
		// A failed session start leaves sending disabled; nothing to render
		// beyond the hint in the footer.
		return m, nil

	case exchangeDoneMsg:
		m.sending = false
		m.syncTranscript()
		return m, nil

	case spinner.TickMsg:
		if m.sending {
			// The optimistic user message lands in the transcript as soon as
			// the send command starts; each tick picks it up.
			m.syncTranscript()
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}
		return m, nil
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

// syncTranscript re-renders the transcript into the viewport and scrolls to
// the end, keeping the latest exchange visible.
func (m *model) syncTranscript() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m model) renderTranscript() string {
	state := m.widget.State()
	if len(state.Transcript) == 0 {
		return faintStyle.Render("No messages yet. Say hi!")
	}

	var b strings.Builder
	for _, msg := range state.Transcript {
		label := botStyle.Render("Assistant")
		if msg.Sender == widget.SenderUser {
			label = userStyle.Render("You")
		}
		fmt.Fprintf(&b, "%s\n%s\n\n", label, msg.Text)
	}
	return b.String()
}

func (m model) View() string {
	state := m.widget.State()

	if !state.Open {
		return badgeStyle.Render("💬 Chat") + "\n" +
			faintStyle.Render("ctrl+o to open, ctrl+c to quit") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("ERP Assistant"))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if state.Loading || m.sending {
		b.WriteString(m.spinner.View() + faintStyle.Render(" thinking..."))
	} else {
		b.WriteString(m.textinput.View())
	}
	b.WriteString("\n")

	if state.SessionID == "" {
		b.WriteString(faintStyle.Render("no session - backend unreachable, sending disabled"))
	} else {
		b.WriteString(faintStyle.Render("ctrl+o to minimize, ctrl+c to quit"))
	}
	b.WriteString("\n")

	return b.String()
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	w := widget.New(widget.NewClient(cfg.Widget.BaseURL))

	program := tea.NewProgram(newModel(w), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "widget error: %v\n", err)
		os.Exit(1)
	}
}
