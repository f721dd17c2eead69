// Package session is the foreground coordinator: it owns the drain loop
// that moves events from background request tasks into the conversation
// log, routes escape presses, and derives the status indicator. Everything
// here runs on the render goroutine; the only shared state it touches is
// behind the channel and the manager.
package session

import (
	"io"
	"log"

	"github.com/exedev/hum/internal/chatlog"
	"github.com/exedev/hum/internal/event"
	"github.com/exedev/hum/internal/gesture"
	"github.com/exedev/hum/internal/request"
)

// Indicator is the user-visible activity state. It is derived from the
// active request's status, never stored.
type Indicator int

const (
	IndicatorReady Indicator = iota
	IndicatorThinking
	IndicatorWaiting
)

func (i Indicator) String() string {
	switch i {
	case IndicatorThinking:
		return "thinking"
	case IndicatorWaiting:
		return "waiting on tool"
	default:
		return "ready"
	}
}

// EscapeResult tells the UI what a handled escape press did.
type EscapeResult int

const (
	EscapeNone EscapeResult = iota
	EscapeCancelRequested
	EscapeInputCleared
	EscapeMenuOpened
)

type Session struct {
	mgr     *request.Manager
	ch      *event.Channel
	log     *chatlog.Log
	gesture *gesture.Machine
	logger  *log.Logger
}

func New(mgr *request.Manager, ch *event.Channel, clog *chatlog.Log, g *gesture.Machine, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{mgr: mgr, ch: ch, log: clog, gesture: g, logger: logger}
}

// Submit forwards the prompt to the manager. A request.ErrBusy return means
// the UI should flash a notice and leave the in-flight request alone.
func (s *Session) Submit(prompt string) (string, error) {
	return s.mgr.Submit(prompt)
}

// Busy reports whether a request is in flight.
func (s *Session) Busy() bool {
	_, _, ok := s.mgr.Active()
	return ok
}

// CancelActive requests cancellation of the in-flight request, if any.
// Returns false when the session is idle.
func (s *Session) CancelActive() bool {
	id, _, ok := s.mgr.Active()
	if !ok {
		return false
	}
	s.mgr.Cancel(id)
	return true
}

// HandleEscape feeds one escape press through the gesture machine and
// applies its action. Cancellation always wins while a request is active.
func (s *Session) HandleEscape() EscapeResult {
	id, _, active := s.mgr.Active()
	switch s.gesture.Escape(active) {
	case gesture.ActionCancel:
		s.mgr.Cancel(id)
		return EscapeCancelRequested
	case gesture.ActionOpenMenu:
		return EscapeMenuOpened
	case gesture.ActionClearInput:
		return EscapeInputCleared
	default:
		return EscapeNone
	}
}

// NoteInput disarms a pending escape gesture. Any non-escape key breaks
// the double-press sequence.
func (s *Session) NoteInput() {
	s.gesture.Reset()
}

// GestureArmed reports whether a second escape within the window would
// open the menu, for the UI hint.
func (s *Session) GestureArmed() bool {
	return s.gesture.Armed()
}

// Indicator derives the activity state from the active request's status.
func (s *Session) Indicator() Indicator {
	_, st, ok := s.mgr.Active()
	if !ok {
		return IndicatorReady
	}
	if st == request.StatusAwaitingTool {
		return IndicatorWaiting
	}
	return IndicatorThinking
}

// DrainForRender empties the event channel and folds each event into the
// conversation log in drain order, which is production order. Terminal
// events apply their status transition here, so the indicator flips back
// to ready in the same pass that logs the request's last entry. Returns
// the drained events so the caller knows whether to redraw.
func (s *Session) DrainForRender() []event.Event {
	evs := s.ch.Drain()
	for _, ev := range evs {
		switch ev.Kind {
		case event.KindTextDelta:
			s.log.AppendDelta(ev.RequestID, ev.Text)
		case event.KindToolStarted:
			s.log.AppendToolCall(ev.RequestID, ev.Call.Name, ev.Call.Args)
		case event.KindToolFinished:
			s.log.AppendToolResult(ev.RequestID, ev.Call.Name, ev.Call.Result, !ev.Call.IsError, ev.Call.Elapsed)
		case event.KindCompleted:
			s.log.Complete(ev.RequestID)
			s.mgr.Finish(ev.RequestID, request.StatusCompleted, "")
		case event.KindCancelled:
			s.log.AppendCancelled(ev.RequestID)
			s.mgr.Finish(ev.RequestID, request.StatusCancelled, "")
		case event.KindFailed:
			s.log.AppendFailed(ev.RequestID, ev.Reason)
			s.mgr.Finish(ev.RequestID, request.StatusFailed, ev.Reason)
		}
	}
	return evs
}

// Entries returns the rendered conversation log.
func (s *Session) Entries() []chatlog.Entry {
	return s.log.Entries()
}

// ClearTranscript drops the visible log. In-flight requests keep running.
func (s *Session) ClearTranscript() {
	s.log.Clear()
}
