package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/exedev/hum/internal/chatlog"
	"github.com/exedev/hum/internal/event"
	"github.com/exedev/hum/internal/gesture"
	"github.com/exedev/hum/internal/provider"
	"github.com/exedev/hum/internal/request"
	"github.com/exedev/hum/internal/tool"
)

type scriptedClient struct {
	mu   sync.Mutex
	legs [][]provider.Chunk
	call int
}

func (c *scriptedClient) Stream(ctx context.Context, req provider.Request, onChunk func(provider.Chunk) error) error {
	c.mu.Lock()
	n := c.call
	c.call++
	c.mu.Unlock()

	if n >= len(c.legs) {
		return errors.New("scriptedClient: unexpected extra call")
	}
	for _, ck := range c.legs[n] {
		if err := onChunk(ck); err != nil {
			return err
		}
	}
	return nil
}

// gatedClient emits one delta then blocks until released, so tests can act
// while a stream is provably in flight. Only the first call gates; requests
// submitted afterwards get an immediate short reply.
type gatedClient struct {
	mu        sync.Mutex
	calls     int
	streaming chan struct{}
	release   chan struct{}
}

func (c *gatedClient) Stream(ctx context.Context, req provider.Request, onChunk func(provider.Chunk) error) error {
	c.mu.Lock()
	n := c.calls
	c.calls++
	c.mu.Unlock()

	if n > 0 {
		if err := onChunk(provider.Chunk{Kind: provider.ChunkTextDelta, Text: "ok"}); err != nil {
			return err
		}
		return onChunk(provider.Chunk{Kind: provider.ChunkEndOfStream})
	}

	if err := onChunk(provider.Chunk{Kind: provider.ChunkTextDelta, Text: "partial answer"}); err != nil {
		return err
	}
	close(c.streaming)
	<-c.release
	if err := onChunk(provider.Chunk{Kind: provider.ChunkTextDelta, Text: " continues"}); err != nil {
		return err
	}
	return onChunk(provider.Chunk{Kind: provider.ChunkEndOfStream})
}

// gatedTool parks until released, holding the request in its tool phase.
type gatedTool struct {
	started chan struct{}
	release chan struct{}
}

func (t *gatedTool) Def() tool.Def {
	return tool.Def{Name: "slow", Description: "parks until released"}
}

func (t *gatedTool) Validate(json.RawMessage) error { return nil }

func (t *gatedTool) Execute(ctx context.Context, _ json.RawMessage) (string, error) {
	close(t.started)
	select {
	case <-t.release:
		return "slow result", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func textDelta(s string) provider.Chunk {
	return provider.Chunk{Kind: provider.ChunkTextDelta, Text: s}
}

func toolChunk(id, name, args string) provider.Chunk {
	return provider.Chunk{Kind: provider.ChunkToolRequest, Tool: &provider.ToolRequest{
		ID:   id,
		Name: name,
		Args: json.RawMessage(args),
	}}
}

func endOfStream() provider.Chunk {
	return provider.Chunk{Kind: provider.ChunkEndOfStream}
}

func newTestSession(client provider.Client, tools *tool.Registry, g *gesture.Machine) *Session {
	if tools == nil {
		tools = tool.NewRegistry()
	}
	if g == nil {
		g = gesture.NewMachine(gesture.DefaultWindow)
	}
	ch := event.NewChannel()
	clog := chatlog.New(nil, nil)
	mgr := request.NewManager(ch, client, tools, clog, nil, "test system prompt")
	return New(mgr, ch, clog, g, nil)
}

// drainUntilIdle runs drain passes until the session reports ready again.
func drainUntilIdle(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.DrainForRender()
		if !s.Busy() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("session still busy after deadline")
}

func entryKinds(entries []chatlog.Entry) []chatlog.Kind {
	out := make([]chatlog.Kind, len(entries))
	for i, e := range entries {
		out[i] = e.Kind
	}
	return out
}

func requireKinds(t *testing.T, entries []chatlog.Entry, want []chatlog.Kind) {
	t.Helper()
	got := entryKinds(entries)
	if len(got) != len(want) {
		t.Fatalf("entry kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry kinds = %v, want %v", got, want)
		}
	}
}

func TestPlainResponseTurn(t *testing.T) {
	client := &scriptedClient{legs: [][]provider.Chunk{
		{textDelta("Hello"), textDelta(", world"), endOfStream()},
	}}
	s := newTestSession(client, nil, nil)

	if s.Indicator() != IndicatorReady {
		t.Fatalf("initial indicator = %s, want ready", s.Indicator())
	}
	if _, err := s.Submit("hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.Indicator() != IndicatorThinking {
		t.Fatalf("indicator after submit = %s, want thinking", s.Indicator())
	}

	drainUntilIdle(t, s)

	entries := s.Entries()
	requireKinds(t, entries, []chatlog.Kind{chatlog.KindUser, chatlog.KindAssistant})
	if entries[0].Text != "hi" {
		t.Fatalf("user entry = %q", entries[0].Text)
	}
	if entries[1].Text != "Hello, world" {
		t.Fatalf("assistant entry = %q, want coalesced deltas", entries[1].Text)
	}
	if s.Indicator() != IndicatorReady {
		t.Fatalf("final indicator = %s, want ready", s.Indicator())
	}
}

func TestToolCallTurn(t *testing.T) {
	client := &scriptedClient{legs: [][]provider.Chunk{
		{textDelta("Checking."), toolChunk("call_1", "slow", `{}`), endOfStream()},
		{textDelta("All done."), endOfStream()},
	}}
	slow := &gatedTool{started: make(chan struct{}), release: make(chan struct{})}
	tools := tool.NewRegistry()
	tools.Register(slow)
	s := newTestSession(client, tools, nil)

	if _, err := s.Submit("check it"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-slow.started
	s.DrainForRender()
	if s.Indicator() != IndicatorWaiting {
		t.Fatalf("indicator during tool call = %s, want waiting", s.Indicator())
	}
	close(slow.release)

	drainUntilIdle(t, s)

	entries := s.Entries()
	requireKinds(t, entries, []chatlog.Kind{
		chatlog.KindUser,
		chatlog.KindAssistant,
		chatlog.KindToolCall,
		chatlog.KindToolResult,
		chatlog.KindAssistant,
	})
	if entries[2].ToolName != "slow" {
		t.Fatalf("tool call entry = %+v", entries[2])
	}
	if !entries[3].ToolOK || entries[3].Text != "slow result" {
		t.Fatalf("tool result entry = %+v", entries[3])
	}
	if entries[4].Text != "All done." {
		t.Fatalf("closing assistant entry = %q", entries[4].Text)
	}
}

func TestCancelMidStreamKeepsPartialOutput(t *testing.T) {
	client := &gatedClient{streaming: make(chan struct{}), release: make(chan struct{})}
	s := newTestSession(client, nil, nil)

	if _, err := s.Submit("long one"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-client.streaming
	s.DrainForRender()

	if res := s.HandleEscape(); res != EscapeCancelRequested {
		t.Fatalf("HandleEscape = %d, want cancel requested", res)
	}
	close(client.release)

	drainUntilIdle(t, s)

	entries := s.Entries()
	requireKinds(t, entries, []chatlog.Kind{
		chatlog.KindUser,
		chatlog.KindAssistant,
		chatlog.KindCancelled,
	})
	if entries[1].Text != "partial answer" {
		t.Fatalf("partial assistant entry = %q, nothing may follow the cancel point", entries[1].Text)
	}
	if s.Indicator() != IndicatorReady {
		t.Fatalf("indicator after cancel = %s, want ready", s.Indicator())
	}
	if _, err := s.Submit("next"); errors.Is(err, request.ErrBusy) {
		t.Fatal("session still busy after cancelled request drained")
	}
	drainUntilIdle(t, s)
}

func TestSubmitWhileBusyLeavesStreamUntouched(t *testing.T) {
	client := &gatedClient{streaming: make(chan struct{}), release: make(chan struct{})}
	s := newTestSession(client, nil, nil)

	if _, err := s.Submit("first"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-client.streaming

	if _, err := s.Submit("second"); !errors.Is(err, request.ErrBusy) {
		t.Fatalf("Submit while busy error = %v, want ErrBusy", err)
	}
	close(client.release)

	drainUntilIdle(t, s)

	// The rejected prompt leaves no trace in the transcript.
	for _, e := range s.Entries() {
		if e.Kind == chatlog.KindUser && e.Text == "second" {
			t.Fatal("rejected submission appeared in the transcript")
		}
	}
}

func TestSequentialRequestsStayOrdered(t *testing.T) {
	client := &scriptedClient{legs: [][]provider.Chunk{
		{textDelta("answer one"), endOfStream()},
		{textDelta("answer two"), endOfStream()},
	}}
	s := newTestSession(client, nil, nil)

	id1, err := s.Submit("one")
	if err != nil {
		t.Fatalf("Submit one: %v", err)
	}
	drainUntilIdle(t, s)
	id2, err := s.Submit("two")
	if err != nil {
		t.Fatalf("Submit two: %v", err)
	}
	drainUntilIdle(t, s)

	entries := s.Entries()
	requireKinds(t, entries, []chatlog.Kind{
		chatlog.KindUser,
		chatlog.KindAssistant,
		chatlog.KindUser,
		chatlog.KindAssistant,
	})
	for _, e := range entries[:2] {
		if e.RequestID != id1 {
			t.Fatalf("entry %+v not attributed to first request", e)
		}
	}
	for _, e := range entries[2:] {
		if e.RequestID != id2 {
			t.Fatalf("entry %+v not attributed to second request", e)
		}
	}
}

func TestFailedRequestRecordsReason(t *testing.T) {
	client := &scriptedClient{} // zero legs: first call errors immediately
	s := newTestSession(client, nil, nil)

	id, err := s.Submit("doomed")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	drainUntilIdle(t, s)

	entries := s.Entries()
	last := entries[len(entries)-1]
	if last.Kind != chatlog.KindFailed || last.Text == "" {
		t.Fatalf("last entry = %+v, want failed marker with reason", last)
	}
	if st, _ := s.mgr.Status(id); st != request.StatusFailed {
		t.Fatalf("status = %s, want failed", st)
	}
}

func TestEscapeWhileIdle(t *testing.T) {
	now := time.Unix(0, 0)
	g := gesture.NewMachineWithClock(time.Second, func() time.Time { return now })
	s := newTestSession(&scriptedClient{}, nil, g)

	if res := s.HandleEscape(); res != EscapeInputCleared {
		t.Fatalf("first escape = %d, want input cleared", res)
	}
	if !s.GestureArmed() {
		t.Fatal("gesture not armed after first escape")
	}
	now = now.Add(400 * time.Millisecond)
	if res := s.HandleEscape(); res != EscapeMenuOpened {
		t.Fatalf("second escape = %d, want menu opened", res)
	}
	if s.GestureArmed() {
		t.Fatal("gesture still armed after menu opened")
	}
}

func TestTypingDisarmsEscapeGesture(t *testing.T) {
	now := time.Unix(0, 0)
	g := gesture.NewMachineWithClock(time.Second, func() time.Time { return now })
	s := newTestSession(&scriptedClient{}, nil, g)

	s.HandleEscape()
	s.NoteInput()
	now = now.Add(100 * time.Millisecond)
	if res := s.HandleEscape(); res != EscapeInputCleared {
		t.Fatalf("escape after typing = %d, want input cleared", res)
	}
}

func TestClearTranscriptLeavesRequestsAlone(t *testing.T) {
	client := &scriptedClient{legs: [][]provider.Chunk{
		{textDelta("hello"), endOfStream()},
		{textDelta("again"), endOfStream()},
	}}
	s := newTestSession(client, nil, nil)

	if _, err := s.Submit("hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	drainUntilIdle(t, s)
	s.ClearTranscript()

	if n := len(s.Entries()); n != 0 {
		t.Fatalf("entries after clear = %d, want 0", n)
	}
	if _, err := s.Submit("again"); err != nil {
		t.Fatalf("Submit after clear: %v", err)
	}
	drainUntilIdle(t, s)
}
