// Package tui is the interactive chat interface. The model never blocks:
// every drain tick it pulls whatever the background request produced and
// re-renders, so streamed text appears without any push plumbing.
package tui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/exedev/hum/internal/request"
	"github.com/exedev/hum/internal/session"
)

const (
	drainInterval = 50 * time.Millisecond
	noticeTTL     = 3 * time.Second
	maxHistory    = 100
)

// drainMsg is the render-loop heartbeat. Each one triggers a channel drain.
type drainMsg struct{}

// Model is the Bubble Tea model for the hum chat UI.
type Model struct {
	session *session.Session
	input   textarea.Model
	spin    spinner.Model

	// UI state
	width    int
	height   int
	scroll   int // transcript scroll offset, lines from bottom
	menuOpen bool
	notice   string
	noticeAt time.Time

	// Input history (submitted prompts, oldest first)
	history []string
	histIdx int // == len(history) when not browsing
	draft   string

	submittedAt time.Time
	quitting    bool
}

func New(sess *session.Session) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask anything…"
	ta.Prompt = "❯ "
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	return Model{
		session: sess,
		input:   ta,
		spin:    sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(drainCmd(), m.spin.Tick, tea.WindowSize())
}

func drainCmd() tea.Cmd {
	return tea.Tick(drainInterval, func(t time.Time) tea.Msg {
		return drainMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inputW := msg.Width - 6
		if inputW < 20 {
			inputW = 20
		}
		m.input.SetWidth(inputW)

	case drainMsg:
		if evs := m.session.DrainForRender(); len(evs) > 0 {
			m.scroll = 0 // new output snaps the view to the bottom
		}
		if m.notice != "" && time.Since(m.noticeAt) > noticeTTL {
			m.notice = ""
		}
		return m, drainCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The menu is modal: any key dismisses it, escape included.
	if m.menuOpen {
		m.menuOpen = false
		return m, nil
	}

	if msg.String() == "esc" {
		switch m.session.HandleEscape() {
		case session.EscapeCancelRequested:
			m.setNotice("cancelling…")
		case session.EscapeInputCleared:
			m.input.Reset()
			m.stopBrowsing()
		case session.EscapeMenuOpened:
			m.menuOpen = true
		}
		return m, nil
	}

	// Every other key breaks a pending escape sequence.
	m.session.NoteInput()

	switch msg.String() {
	case "ctrl+c":
		// First interrupt cancels the in-flight request, second one quits.
		if m.session.CancelActive() {
			m.setNotice("cancelling…")
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case "enter":
		return m.submit()

	case "up":
		m.browseHistory(-1)
		return m, nil

	case "down":
		m.browseHistory(1)
		return m, nil

	case "pgup":
		m.scroll += m.transcriptHeight() / 2
		return m, nil

	case "pgdown":
		m.scroll -= m.transcriptHeight() / 2
		if m.scroll < 0 {
			m.scroll = 0
		}
		return m, nil
	}

	m.stopBrowsing()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}

	if _, err := m.session.Submit(text); err != nil {
		if errors.Is(err, request.ErrBusy) {
			m.setNotice("still working — press esc to cancel first")
		} else {
			m.setNotice(err.Error())
		}
		return m, nil
	}
	m.pushHistory(text)
	m.input.Reset()
	m.stopBrowsing()
	m.scroll = 0
	m.submittedAt = time.Now()
	return m, nil
}

// runCommand handles the slash commands typed into the prompt.
func (m Model) runCommand(text string) (tea.Model, tea.Cmd) {
	switch strings.Fields(text)[0] {
	case "/help":
		m.menuOpen = true
	case "/clear":
		m.session.ClearTranscript()
		m.scroll = 0
	case "/exit", "/quit":
		m.quitting = true
		m.input.Reset()
		return m, tea.Quit
	default:
		m.setNotice("unknown command (try /help)")
		return m, nil
	}
	m.input.Reset()
	return m, nil
}

func (m *Model) setNotice(text string) {
	m.notice = text
	m.noticeAt = time.Now()
}

func (m *Model) pushHistory(text string) {
	if n := len(m.history); n > 0 && m.history[n-1] == text {
		m.histIdx = len(m.history)
		return
	}
	m.history = append(m.history, text)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.histIdx = len(m.history)
}

// browseHistory moves through submitted prompts; direction -1 is older,
// +1 newer. Leaving the newest slot restores whatever was being typed.
func (m *Model) browseHistory(direction int) {
	if len(m.history) == 0 {
		return
	}
	if m.histIdx == len(m.history) {
		if direction > 0 {
			return
		}
		m.draft = m.input.Value()
	}

	next := m.histIdx + direction
	if next < 0 {
		return
	}
	if next >= len(m.history) {
		m.histIdx = len(m.history)
		m.input.SetValue(m.draft)
		m.input.CursorEnd()
		return
	}
	m.histIdx = next
	m.input.SetValue(m.history[next])
	m.input.CursorEnd()
}

func (m *Model) stopBrowsing() {
	m.histIdx = len(m.history)
	m.draft = ""
}
