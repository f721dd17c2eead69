package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/exedev/hum/internal/chatlog"
	"github.com/exedev/hum/internal/session"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	w := m.width
	if w < 40 {
		w = 80 // sensible default before WindowSizeMsg
	}
	h := m.height
	if h < 10 {
		h = 24
	}

	transcript := m.renderTranscript(w-2, m.transcriptHeight())
	status := m.renderStatusBar(w)
	input := inputBorder.Width(w - 2).Render(m.input.View())

	screen := transcript + "\n" + status + "\n" + input

	if m.menuOpen {
		return m.renderMenuOverlay(w, h, screen)
	}
	return screen
}

// transcriptHeight is the number of transcript lines that fit above the
// status bar and input box.
func (m Model) transcriptHeight() int {
	h := m.height
	if h < 10 {
		h = 24
	}
	// status bar + bordered input eat the bottom rows
	th := h - 1 - (m.input.Height() + 2)
	if th < 3 {
		th = 3
	}
	return th
}

func (m Model) renderTranscript(w, h int) string {
	var lines []string
	for _, e := range m.session.Entries() {
		lines = append(lines, m.renderEntry(e, w)...)
	}
	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice))
	}

	// Window from the bottom, honoring the scroll offset.
	end := len(lines) - m.scroll
	if end > len(lines) {
		end = len(lines)
	}
	if end < 0 {
		end = 0
	}
	start := end - h
	if start < 0 {
		start = 0
	}
	visible := lines[start:end]

	out := make([]string, 0, h)
	if m.scroll > 0 && len(lines) > 0 {
		out = append(out, subtleStyle.Render(fmt.Sprintf("  [↓%d below]", m.scroll)))
	}
	out = append(out, visible...)
	for len(out) < h {
		out = append(out, "")
	}
	if len(out) > h {
		out = out[len(out)-h:]
	}
	return strings.Join(out, "\n")
}

func (m Model) renderEntry(e chatlog.Entry, w int) []string {
	switch e.Kind {
	case chatlog.KindUser:
		var lines []string
		for i, wl := range wrapText(e.Text, w-4) {
			if i == 0 {
				lines = append(lines, userStyle.Render("you ❯ ")+assistantStyle.Render(wl))
			} else {
				lines = append(lines, "      "+assistantStyle.Render(wl))
			}
		}
		lines = append(lines, "")
		return lines

	case chatlog.KindAssistant:
		var lines []string
		for _, wl := range wrapText(e.Text, w-2) {
			lines = append(lines, assistantStyle.Render(wl))
		}
		lines = append(lines, "")
		return lines

	case chatlog.KindToolCall:
		args := runewidth.Truncate(e.Text, 80, "…")
		return []string{toolCallStyle.Render("  ⚙ " + e.ToolName + subtleStyle.Render("("+args+")"))}

	case chatlog.KindToolResult:
		style := toolResultStyle
		icon := successStyle.Render("✔")
		if !e.ToolOK {
			style = errorStyle
			icon = errorStyle.Render("✖")
		}
		result := firstLine(e.Text)
		if w > 13 {
			result = runewidth.Truncate(result, w-12, "…")
		}
		line := "  " + icon + " " + style.Render(result)
		if e.Elapsed > 0 {
			line += subtleStyle.Render(fmt.Sprintf(" (%s)", e.Elapsed.Round(time.Millisecond)))
		}
		return []string{line, ""}

	case chatlog.KindCancelled:
		return []string{cancelStyle.Render("  ⊘ cancelled"), ""}

	case chatlog.KindFailed:
		return []string{errorStyle.Render("  ✖ " + e.Text), ""}
	}
	return nil
}

func (m Model) renderStatusBar(w int) string {
	var left string
	switch m.session.Indicator() {
	case session.IndicatorThinking:
		left = m.spin.View() + titleStyle.Render("thinking") + m.elapsedSuffix()
	case session.IndicatorWaiting:
		left = m.spin.View() + toolCallStyle.Render("waiting on tool") + m.elapsedSuffix()
	default:
		left = successStyle.Render("● ") + subtleStyle.Render("ready")
	}

	var right string
	if m.session.GestureArmed() {
		right = noticeStyle.Render("esc again: menu")
	} else if m.session.Busy() {
		right = subtleStyle.Render("esc: cancel")
	} else {
		right = subtleStyle.Render("enter: send · esc esc: menu · /help")
	}

	gap := w - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return statusBar.Width(w - 2).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) elapsedSuffix() string {
	if m.submittedAt.IsZero() {
		return ""
	}
	return subtleStyle.Render(fmt.Sprintf(" %s", time.Since(m.submittedAt).Round(time.Second)))
}

func (m Model) renderMenuOverlay(w, h int, under string) string {
	rows := []string{
		titleStyle.Render("hum"),
		"",
		subtleStyle.Render("enter") + "      send prompt",
		subtleStyle.Render("esc") + "        cancel request / clear input",
		subtleStyle.Render("esc esc") + "    open this menu",
		subtleStyle.Render("up/down") + "    input history",
		subtleStyle.Render("pgup/pgdn") + "  scroll transcript",
		subtleStyle.Render("/clear") + "     clear the transcript",
		subtleStyle.Render("/exit") + "      quit",
		"",
		subtleStyle.Render("press any key to close"),
	}
	menu := menuBorder.Render(strings.Join(rows, "\n"))
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, menu)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

// wrapText wraps a string to fit within maxWidth display columns,
// correctly handling emoji and CJK characters.
func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		maxWidth = 80
	}
	if len(text) == 0 {
		return []string{""}
	}
	if runewidth.StringWidth(text) <= maxWidth {
		return []string{text}
	}

	var lines []string
	for runewidth.StringWidth(text) > maxWidth {
		// Find the byte offset that fits within maxWidth display columns
		colW := 0
		byteOff := 0
		for i, r := range text {
			rw := runewidth.RuneWidth(r)
			if colW+rw > maxWidth {
				break
			}
			colW += rw
			byteOff = i + len(string(r))
		}
		if byteOff == 0 {
			// Single character wider than maxWidth — force advance
			byteOff = len(string([]rune(text)[0]))
		}
		// Try to break on a space within the last third
		cut := byteOff
		if idx := strings.LastIndex(text[:byteOff], " "); idx > byteOff/3 {
			cut = idx
		}
		lines = append(lines, text[:cut])
		text = strings.TrimLeft(text[cut:], " ")
	}
	if text != "" {
		lines = append(lines, text)
	}
	return lines
}
