package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/exedev/hum/internal/chatlog"
)

// Transcript renders stored conversation entries for `hum log`.
type Transcript struct {
	mode        Mode
	writer      io.Writer
	showElapsed bool
}

func NewTranscript(mode Mode, w io.Writer, showElapsed bool) *Transcript {
	return &Transcript{mode: mode, writer: w, showElapsed: showElapsed}
}

// Render writes the entries in order, one block per entry.
func (t *Transcript) Render(entries []chatlog.Entry) error {
	switch t.mode {
	case ModeJSON:
		return t.renderJSON(entries)
	case ModePlain:
		t.renderPlain(entries)
	}
	return nil
}

func (t *Transcript) renderPlain(entries []chatlog.Entry) {
	for _, e := range entries {
		switch e.Kind {
		case chatlog.KindUser:
			fmt.Fprintf(t.writer, "%s %s\n", pterm.LightCyan("you ❯"), e.Text)
		case chatlog.KindAssistant:
			fmt.Fprintf(t.writer, "%s %s\n", pterm.LightMagenta("hum ❯"), e.Text)
		case chatlog.KindToolCall:
			fmt.Fprintf(t.writer, "%s %s %s\n", pterm.Gray("  ⚙"), pterm.Bold.Sprint(e.ToolName), pterm.Gray(e.Text))
		case chatlog.KindToolResult:
			icon := StatusIcon("completed")
			if !e.ToolOK {
				icon = StatusIcon("failed")
			}
			line := fmt.Sprintf("  %s %s", icon, firstLine(e.Text))
			if t.showElapsed && e.Elapsed > 0 {
				line += pterm.Gray(fmt.Sprintf(" (%s)", e.Elapsed.Round(time.Millisecond)))
			}
			fmt.Fprintln(t.writer, line)
		case chatlog.KindCancelled:
			fmt.Fprintf(t.writer, "  %s %s\n", StatusIcon("cancelled"), pterm.Yellow("cancelled"))
		case chatlog.KindFailed:
			fmt.Fprintf(t.writer, "  %s %s\n", StatusIcon("failed"), e.Text)
		}
	}
}

// entryJSON is the line format for `hum log --json`.
type entryJSON struct {
	Seq       int64     `json:"seq"`
	RequestID string    `json:"request_id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text,omitempty"`
	ToolName  string    `json:"tool_name,omitempty"`
	ToolOK    *bool     `json:"tool_ok,omitempty"`
	ElapsedMS int64     `json:"elapsed_ms,omitempty"`
	Time      time.Time `json:"time"`
}

func (t *Transcript) renderJSON(entries []chatlog.Entry) error {
	enc := json.NewEncoder(t.writer)
	for _, e := range entries {
		line := entryJSON{
			Seq:       e.Seq,
			RequestID: e.RequestID,
			Kind:      string(e.Kind),
			Text:      e.Text,
			ToolName:  e.ToolName,
			ElapsedMS: e.Elapsed.Milliseconds(),
			Time:      e.Time,
		}
		if e.Kind == chatlog.KindToolResult {
			ok := e.ToolOK
			line.ToolOK = &ok
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
