// Package request owns the lifecycle of the active conversational turn:
// submission, the background streaming task, cooperative cancellation, and
// status tracking. At most one request is non-terminal at any time.
package request

import (
	"context"
	"sync/atomic"
	"time"
)

type Status int

const (
	StatusPending Status = iota
	StatusStreaming
	StatusAwaitingTool
	StatusCompleted
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusStreaming:
		return "streaming"
	case StatusAwaitingTool:
		return "awaiting_tool"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final. A request reaches a
// terminal status exactly once.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// Request is one user-submitted prompt and its full assistant turn.
type Request struct {
	ID        string
	Prompt    string
	CreatedAt time.Time

	// cancelled is the shared cooperative flag: written by Cancel, read at
	// chunk and tool-leg boundaries by the background task.
	cancelled atomic.Bool
	cancel    context.CancelFunc

	// status and reason are guarded by the manager's mutex.
	status Status
	reason string
}

// Cancelled reports whether cancellation has been requested.
func (r *Request) Cancelled() bool {
	return r.cancelled.Load()
}
