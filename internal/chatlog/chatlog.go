// Package chatlog holds the durable, strictly ordered conversation record.
// Entry order equals the foreground drain/render order; nothing here is
// allowed to reorder entries.
package chatlog

import (
	"time"
)

type Kind string

const (
	KindUser       Kind = "user"
	KindAssistant  Kind = "assistant"
	KindToolCall   Kind = "tool_call"
	KindToolResult Kind = "tool_result"
	KindCancelled  Kind = "cancelled"
	KindFailed     Kind = "failed"
)

// Entry is one logged unit of the conversation.
type Entry struct {
	Seq       int64
	RequestID string
	Kind      Kind
	Text      string // prompt, assistant text, or failure reason
	ToolName  string
	ToolOK    bool
	Elapsed   time.Duration
	Time      time.Time
}

// Appender persists entries. Failures are reported to the caller and never
// retried here.
type Appender interface {
	Append(Entry) error
}

// Log is the in-session conversation record. It is mutated solely by the
// foreground loop; assistant text arrives as deltas and is coalesced into
// one entry per uninterrupted run, flushed to the store when the run closes
// (tool boundary or terminal marker).
type Log struct {
	entries []Entry
	store   Appender
	onError func(error)
	seq     int64

	// Open assistant run, if any. Index into entries.
	open          int
	openRequestID string
}

// New builds a Log. store and onError may be nil.
func New(store Appender, onError func(error)) *Log {
	return &Log{store: store, onError: onError, open: -1}
}

// Entries returns the log in order. The returned slice is a copy.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Clear drops the in-memory view. The persisted transcript is untouched;
// clearing is a display affordance, not a history rewrite.
func (l *Log) Clear() {
	l.entries = nil
	l.open = -1
	l.openRequestID = ""
}

// AppendUser records the user's prompt. Called synchronously at submission
// time, before the request's background task exists, which is what makes
// the user message causally precede every event of its request.
func (l *Log) AppendUser(requestID, text string) {
	l.closeOpen()
	l.append(Entry{RequestID: requestID, Kind: KindUser, Text: text}, true)
}

// AppendDelta folds streamed assistant text into the open assistant entry,
// starting one if needed.
func (l *Log) AppendDelta(requestID, text string) {
	if l.open >= 0 && l.openRequestID == requestID {
		l.entries[l.open].Text += text
		return
	}
	l.closeOpen()
	l.append(Entry{RequestID: requestID, Kind: KindAssistant, Text: text}, false)
	l.open = len(l.entries) - 1
	l.openRequestID = requestID
}

// AppendToolCall records the start of a tool invocation.
func (l *Log) AppendToolCall(requestID, toolName, args string) {
	l.closeOpen()
	l.append(Entry{RequestID: requestID, Kind: KindToolCall, ToolName: toolName, Text: args}, true)
}

// AppendToolResult records a finished tool invocation.
func (l *Log) AppendToolResult(requestID, toolName, result string, ok bool, elapsed time.Duration) {
	l.closeOpen()
	l.append(Entry{
		RequestID: requestID,
		Kind:      KindToolResult,
		ToolName:  toolName,
		Text:      result,
		ToolOK:    ok,
		Elapsed:   elapsed,
	}, true)
}

// AppendCancelled records the request's cancellation marker.
func (l *Log) AppendCancelled(requestID string) {
	l.closeOpen()
	l.append(Entry{RequestID: requestID, Kind: KindCancelled}, true)
}

// AppendFailed records the request's failure marker.
func (l *Log) AppendFailed(requestID, reason string) {
	l.closeOpen()
	l.append(Entry{RequestID: requestID, Kind: KindFailed, Text: reason}, true)
}

// Complete flushes the open assistant entry when a request finishes
// normally. Completion itself is a status change, not a log entry.
func (l *Log) Complete(requestID string) {
	l.closeOpen()
}

func (l *Log) append(e Entry, persist bool) {
	l.seq++
	e.Seq = l.seq
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	l.entries = append(l.entries, e)
	if persist {
		l.persist(e)
	}
}

// closeOpen flushes the in-progress assistant entry to the store.
func (l *Log) closeOpen() {
	if l.open < 0 {
		return
	}
	l.persist(l.entries[l.open])
	l.open = -1
	l.openRequestID = ""
}

func (l *Log) persist(e Entry) {
	if l.store == nil {
		return
	}
	if err := l.store.Append(e); err != nil && l.onError != nil {
		l.onError(err)
	}
}
