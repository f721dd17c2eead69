package tui

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/exedev/hum/internal/chatlog"
	"github.com/exedev/hum/internal/event"
	"github.com/exedev/hum/internal/gesture"
	"github.com/exedev/hum/internal/provider"
	"github.com/exedev/hum/internal/request"
	"github.com/exedev/hum/internal/session"
	"github.com/exedev/hum/internal/tool"
)

// idleClient ends every stream immediately.
type idleClient struct{}

func (idleClient) Stream(ctx context.Context, req provider.Request, onChunk func(provider.Chunk) error) error {
	return onChunk(provider.Chunk{Kind: provider.ChunkEndOfStream})
}

func newTestModel(t *testing.T) (Model, *session.Session) {
	t.Helper()
	ch := event.NewChannel()
	clog := chatlog.New(nil, nil)
	mgr := request.NewManager(ch, idleClient{}, tool.NewRegistry(), clog, nil, "")
	sess := session.New(mgr, ch, clog, gesture.NewMachine(time.Second), nil)
	return New(sess), sess
}

func pressKey(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestNonEscapeKeysDisarmGesture(t *testing.T) {
	cases := []struct {
		name string
		msg  tea.KeyMsg
	}{
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}},
		{"up", tea.KeyMsg{Type: tea.KeyUp}},
		{"down", tea.KeyMsg{Type: tea.KeyDown}},
		{"pgup", tea.KeyMsg{Type: tea.KeyPgUp}},
		{"pgdown", tea.KeyMsg{Type: tea.KeyPgDown}},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
		{"rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, sess := newTestModel(t)

			m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEsc})
			if !sess.GestureArmed() {
				t.Fatal("escape did not arm the gesture")
			}

			m = pressKey(t, m, tc.msg)
			if sess.GestureArmed() {
				t.Fatalf("gesture still armed after %s", tc.name)
			}

			// A following escape is a fresh single press, not a menu open.
			m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEsc})
			if m.menuOpen {
				t.Fatalf("menu opened after %s broke the sequence", tc.name)
			}
		})
	}
}

func TestRenderEntryTruncatesOnRuneBoundaries(t *testing.T) {
	m, _ := newTestModel(t)
	wide := strings.Repeat("日", 60)

	call := m.renderEntry(chatlog.Entry{Kind: chatlog.KindToolCall, ToolName: "echo", Text: wide}, 80)
	if len(call) == 0 || !utf8.ValidString(call[0]) {
		t.Fatalf("tool call line is not valid UTF-8: %q", call)
	}
	if !strings.Contains(call[0], "…") {
		t.Fatalf("wide tool args not truncated: %q", call[0])
	}

	res := m.renderEntry(chatlog.Entry{Kind: chatlog.KindToolResult, ToolOK: true, Text: wide}, 40)
	if len(res) == 0 || !utf8.ValidString(res[0]) {
		t.Fatalf("tool result line is not valid UTF-8: %q", res)
	}
}

func TestDoubleEscapeStillOpensMenu(t *testing.T) {
	m, _ := newTestModel(t)

	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if !m.menuOpen {
		t.Fatal("double escape did not open the menu")
	}
}
