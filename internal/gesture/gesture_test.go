package gesture

import (
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMachine() (*Machine, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	return NewMachineWithClock(time.Second, clock.now), clock
}

func TestCancelWinsWhileRequestActive(t *testing.T) {
	m, _ := newTestMachine()

	if got := m.Escape(true); got != ActionCancel {
		t.Errorf("Escape with active request = %s, want cancel", got)
	}
	// Cancel resets the machine: the next idle Escape is a fresh single.
	if got := m.Escape(false); got != ActionClearInput {
		t.Errorf("Escape after cancel = %s, want clear_input", got)
	}
}

func TestDoubleEscapeWithinWindowOpensMenu(t *testing.T) {
	m, clock := newTestMachine()

	if got := m.Escape(false); got != ActionClearInput {
		t.Fatalf("first Escape = %s, want clear_input", got)
	}
	clock.advance(400 * time.Millisecond)
	if got := m.Escape(false); got != ActionOpenMenu {
		t.Errorf("second Escape at 400ms = %s, want open_menu", got)
	}
}

func TestSlowDoubleEscapeClearsTwice(t *testing.T) {
	m, clock := newTestMachine()

	if got := m.Escape(false); got != ActionClearInput {
		t.Fatalf("first Escape = %s, want clear_input", got)
	}
	clock.advance(1500 * time.Millisecond)
	if got := m.Escape(false); got != ActionClearInput {
		t.Errorf("second Escape at 1.5s = %s, want clear_input (window expired)", got)
	}
	// The stale press re-armed the machine, so a quick third press opens
	// the menu.
	clock.advance(200 * time.Millisecond)
	if got := m.Escape(false); got != ActionOpenMenu {
		t.Errorf("third Escape = %s, want open_menu", got)
	}
}

func TestExactWindowBoundaryDecays(t *testing.T) {
	m, clock := newTestMachine()

	m.Escape(false)
	clock.advance(time.Second) // elapsed == window
	if got := m.Escape(false); got != ActionClearInput {
		t.Errorf("Escape at exactly the window = %s, want clear_input", got)
	}
}

func TestNonEscapeInputDisarms(t *testing.T) {
	m, clock := newTestMachine()

	m.Escape(false)
	m.Reset() // user typed something
	clock.advance(100 * time.Millisecond)
	if got := m.Escape(false); got != ActionClearInput {
		t.Errorf("Escape after typing = %s, want clear_input", got)
	}
}

func TestArmedHint(t *testing.T) {
	m, clock := newTestMachine()

	if m.Armed() {
		t.Error("new machine should not be armed")
	}
	m.Escape(false)
	if !m.Armed() {
		t.Error("machine should be armed after single Escape")
	}
	clock.advance(2 * time.Second)
	if m.Armed() {
		t.Error("arm should expire with the window")
	}
}

func TestDefaultWindow(t *testing.T) {
	m := NewMachine(0)
	if m.window != DefaultWindow {
		t.Errorf("zero window = %v, want default %v", m.window, DefaultWindow)
	}
}
