// Package event defines the typed events streamed from background request
// tasks to the foreground render loop, and the unbounded ordered channel
// that carries them.
package event

import (
	"sync"
	"time"
)

type Kind string

const (
	KindTextDelta    Kind = "text.delta"
	KindToolStarted  Kind = "tool.started"
	KindToolFinished Kind = "tool.finished"
	KindCompleted    Kind = "request.completed"
	KindCancelled    Kind = "request.cancelled"
	KindFailed       Kind = "request.failed"
)

// Terminal reports whether the kind marks the end of a request's stream.
// The producing task emits exactly one terminal event and then goes silent.
func (k Kind) Terminal() bool {
	return k == KindCompleted || k == KindCancelled || k == KindFailed
}

// ToolCall describes one tool invocation. Started events carry ID, Name and
// Args; Finished events additionally carry Result, IsError and Elapsed.
type ToolCall struct {
	ID      string
	Name    string
	Args    string
	Result  string
	IsError bool
	Elapsed time.Duration
}

// Event is one atomic unit of streamed output. Every event carries the ID
// of the request that produced it so the consumer can verify ownership even
// though only one request is ever active.
type Event struct {
	Kind      Kind
	RequestID string
	Text      string    // KindTextDelta
	Call      *ToolCall // KindToolStarted, KindToolFinished
	Reason    string    // KindFailed
	Time      time.Time
}

// Channel is an unbounded multi-producer/single-consumer queue. Producers
// append under a mutex; the single consumer takes everything queued so far
// in one non-blocking Drain. Queue order is push order, which for a single
// producing task equals production order.
type Channel struct {
	mu    sync.Mutex
	queue []Event
}

func NewChannel() *Channel {
	return &Channel{}
}

// Producer returns a new producer handle stamping events with requestID.
func (c *Channel) Producer(requestID string) *Producer {
	return &Producer{ch: c, requestID: requestID}
}

// Drain removes and returns all currently-queued events. It never blocks;
// an empty queue yields nil.
func (c *Channel) Drain() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	out := c.queue
	c.queue = nil
	return out
}

// Len reports the number of queued events.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *Channel) push(ev Event) {
	c.mu.Lock()
	c.queue = append(c.queue, ev)
	c.mu.Unlock()
}

// Producer is a cloneable write handle into a Channel. A background task
// holds exactly one producer per request and closes it after emitting its
// terminal event; pushes on a closed producer are dropped, which is what
// guarantees nothing is logged after a request's terminal marker.
type Producer struct {
	ch        *Channel
	requestID string

	mu     sync.Mutex
	closed bool
}

// Push enqueues ev, stamping the request ID and time.
func (p *Producer) Push(ev Event) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}
	ev.RequestID = p.requestID
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	p.ch.push(ev)
}

// Clone returns another open handle onto the same channel and request.
func (p *Producer) Clone() *Producer {
	return &Producer{ch: p.ch, requestID: p.requestID}
}

// Close drops the handle. Idempotent.
func (p *Producer) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}
