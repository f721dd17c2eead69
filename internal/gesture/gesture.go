// Package gesture disambiguates the Escape key. One physical key maps to
// three intents (cancel the in-flight request, clear the input line, open
// the menu) chosen by request state and press timing.
package gesture

import "time"

// Action is the intent resolved for one Escape press.
type Action int

const (
	ActionNone Action = iota
	ActionCancel
	ActionClearInput
	ActionOpenMenu
)

func (a Action) String() string {
	switch a {
	case ActionCancel:
		return "cancel"
	case ActionClearInput:
		return "clear_input"
	case ActionOpenMenu:
		return "open_menu"
	default:
		return "none"
	}
}

// DefaultWindow is how long a first Escape stays armed for the menu.
const DefaultWindow = time.Second

// Machine is the two-state Escape interpreter. It owns only the arm flag
// and last-press timestamp, and is touched exclusively by the foreground
// loop.
type Machine struct {
	window  time.Duration
	now     func() time.Time
	armed   bool
	armedAt time.Time
}

func NewMachine(window time.Duration) *Machine {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Machine{window: window, now: time.Now}
}

// NewMachineWithClock injects a clock for tests.
func NewMachineWithClock(window time.Duration, now func() time.Time) *Machine {
	m := NewMachine(window)
	m.now = now
	return m
}

// Escape resolves one Escape press. requestActive reports whether a request
// is currently non-terminal; an in-flight request always takes priority
// over gesture accumulation.
func (m *Machine) Escape(requestActive bool) Action {
	if requestActive {
		m.Reset()
		return ActionCancel
	}

	now := m.now()
	if m.armed && now.Sub(m.armedAt) < m.window {
		m.Reset()
		return ActionOpenMenu
	}

	// Either idle or the arm has gone stale; a stale press re-evaluates as
	// a fresh single Escape rather than accumulating indefinitely.
	m.armed = true
	m.armedAt = now
	return ActionClearInput
}

// Reset disarms the machine. Called on any non-Escape input.
func (m *Machine) Reset() {
	m.armed = false
	m.armedAt = time.Time{}
}

// Armed reports whether a second Escape within the window would open the
// menu. Display-only, used for the "press esc again" hint.
func (m *Machine) Armed() bool {
	return m.armed && m.now().Sub(m.armedAt) < m.window
}
