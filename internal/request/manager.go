package request

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/exedev/hum/internal/chatlog"
	"github.com/exedev/hum/internal/event"
	"github.com/exedev/hum/internal/provider"
	"github.com/exedev/hum/internal/tool"
)

// ErrBusy is returned by Submit while another request is still in flight.
var ErrBusy = errors.New("a request is already in progress")

// ErrEmptyPrompt is returned by Submit for blank input.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Manager creates requests, runs each one on its own background task, and
// enforces the single-active-request rule.
//
// Terminal status transitions are not applied by the background task: it
// emits the terminal event and exits, and the display side calls Finish when
// it drains that event. That keeps the visible status in lockstep with the
// transcript.
type Manager struct {
	mu       sync.Mutex
	ch       *event.Channel
	client   provider.Client
	tools    *tool.Registry
	log      *chatlog.Log
	logger   *log.Logger
	system   string
	history  []provider.Message
	active   *Request
	requests map[string]*Request
	newID    func() string
	now      func() time.Time
}

func NewManager(ch *event.Channel, client provider.Client, tools *tool.Registry, clog *chatlog.Log, logger *log.Logger, system string) *Manager {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Manager{
		ch:       ch,
		client:   client,
		tools:    tools,
		log:      clog,
		logger:   logger,
		system:   system,
		requests: make(map[string]*Request),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Submit creates a request for prompt and spawns its background task. The
// user message is appended to the conversation log before the task starts,
// so it always precedes any output from the request. Returns ErrBusy while
// a previous request has not reached a terminal status.
func (m *Manager) Submit(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return "", ErrBusy
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := &Request{
		ID:        m.newID(),
		Prompt:    prompt,
		CreatedAt: m.now(),
		cancel:    cancel,
		status:    StatusPending,
	}
	m.requests[req.ID] = req
	m.active = req

	m.log.AppendUser(req.ID, prompt)

	history := make([]provider.Message, 0, len(m.history)+1)
	history = append(history, m.history...)
	history = append(history, provider.UserText(prompt))

	prod := m.ch.Producer(req.ID)
	m.mu.Unlock()

	m.logger.Printf("request %s submitted", req.ID)
	go m.run(ctx, req, prod, history)
	return req.ID, nil
}

// Cancel requests cooperative cancellation of the active request. It sets
// the shared flag and cancels the request context so abortable work (shell
// tools, the provider stream) stops promptly. No-op for unknown, inactive,
// or already-terminal requests; safe to call repeatedly.
func (m *Manager) Cancel(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok || req != m.active || req.status.Terminal() {
		return
	}
	req.cancelled.Store(true)
	req.cancel()
	m.logger.Printf("request %s cancellation requested", id)
}

// Status returns the current status of a request by id.
func (m *Manager) Status(id string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return 0, false
	}
	return req.status, true
}

// Reason returns the failure reason recorded for a failed request.
func (m *Manager) Reason(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req, ok := m.requests[id]; ok {
		return req.reason
	}
	return ""
}

// Active returns the id and status of the in-flight request, if any.
func (m *Manager) Active() (string, Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return "", 0, false
	}
	return m.active.ID, m.active.status, true
}

// Finish applies a terminal status. Called by the display coordinator when
// it drains the request's terminal event; the first terminal transition
// wins and frees the active slot.
func (m *Manager) Finish(id string, st Status, reason string) {
	if !st.Terminal() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok || req.status.Terminal() {
		return
	}
	req.status = st
	req.reason = reason
	req.cancel()
	if m.active == req {
		m.active = nil
	}
	m.logger.Printf("request %s finished: %s", id, st)
}

// setStatus applies a non-terminal transition from the background task.
func (m *Manager) setStatus(req *Request, st Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !req.status.Terminal() {
		req.status = st
	}
}

// recordTurn appends a completed user/assistant exchange to the history
// sent with future requests. Cancelled and failed turns are never recorded.
func (m *Manager) recordTurn(prompt, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, provider.UserText(prompt), provider.AssistantText(reply))
}
