// Package output renders transcripts and status messages outside the TUI:
// the pre-flight banner, `hum log`, and error reporting.
package output

// Mode selects how non-TUI output is rendered.
type Mode int

const (
	// ModePlain writes styled text to stdout.
	ModePlain Mode = iota
	// ModeJSON writes one JSON object per transcript entry.
	ModeJSON
	// ModeQuiet suppresses everything but errors.
	ModeQuiet
)
