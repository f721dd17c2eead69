package request

import (
	"context"
	"errors"
	"strings"

	"github.com/exedev/hum/internal/event"
	"github.com/exedev/hum/internal/provider"
	"github.com/exedev/hum/internal/tool"
)

// errCancelled aborts the provider stream from inside the chunk callback
// when the cooperative flag flips mid-stream.
var errCancelled = errors.New("cancelled by user")

// run is the background task for one request. The request leaves Pending
// when its first leg begins. Each leg streams one assistant message, and if
// the message requests tool calls the results are fed back as the next
// leg's input. The task emits exactly one terminal event and closes its
// producer before exiting.
func (m *Manager) run(ctx context.Context, req *Request, prod *event.Producer, history []provider.Message) {
	defer prod.Close()

	for {
		if req.Cancelled() {
			prod.Push(event.Event{Kind: event.KindCancelled})
			return
		}
		m.setStatus(req, StatusStreaming)

		var text strings.Builder
		var calls []provider.ToolRequest
		preq := provider.Request{
			System:  m.system,
			History: history,
			Tools:   m.tools.Defs(),
		}
		err := m.client.Stream(ctx, preq, func(ck provider.Chunk) error {
			if req.Cancelled() {
				return errCancelled
			}
			switch ck.Kind {
			case provider.ChunkTextDelta:
				prod.Push(event.Event{Kind: event.KindTextDelta, Text: ck.Text})
				text.WriteString(ck.Text)
			case provider.ChunkToolRequest:
				calls = append(calls, *ck.Tool)
			}
			return nil
		})
		switch {
		case errors.Is(err, errCancelled) || req.Cancelled():
			prod.Push(event.Event{Kind: event.KindCancelled})
			return
		case err != nil:
			reason := provider.FailureReason(err)
			m.logger.Printf("request %s stream error: %v", req.ID, err)
			prod.Push(event.Event{Kind: event.KindFailed, Reason: reason})
			return
		}

		history = append(history, assistantMessage(text.String(), calls))

		if len(calls) == 0 {
			m.recordTurn(req.Prompt, text.String())
			prod.Push(event.Event{Kind: event.KindCompleted})
			return
		}

		m.setStatus(req, StatusAwaitingTool)
		results := make([]provider.Block, 0, len(calls))
		for _, call := range calls {
			if req.Cancelled() {
				prod.Push(event.Event{Kind: event.KindCancelled})
				return
			}
			res := m.executeCall(ctx, prod, call)
			results = append(results, provider.Block{
				Type: "tool_result",
				ToolResult: &provider.ToolResult{
					ID:      call.ID,
					Content: res.Content,
					IsError: res.IsError,
				},
			})
		}
		history = append(history, provider.Message{Role: "user", Content: results})

		if req.Cancelled() {
			prod.Push(event.Event{Kind: event.KindCancelled})
			return
		}
	}
}

// executeCall runs one tool call between a paired started/finished event.
// The finished event is deferred so the pair closes on every exit path,
// including tool panics surfaced by the registry as error results.
func (m *Manager) executeCall(ctx context.Context, prod *event.Producer, call provider.ToolRequest) tool.Result {
	started := event.ToolCall{ID: call.ID, Name: call.Name, Args: string(call.Args)}
	prod.Push(event.Event{Kind: event.KindToolStarted, Call: &started})

	var res tool.Result
	defer func() {
		done := started
		done.Result = res.Content
		done.IsError = res.IsError
		done.Elapsed = res.Elapsed
		prod.Push(event.Event{Kind: event.KindToolFinished, Call: &done})
	}()

	res = m.tools.Execute(ctx, call.Name, call.Args)
	return res
}

// assistantMessage builds the assistant history message for one leg: the
// streamed text followed by any tool_use blocks in request order.
func assistantMessage(text string, calls []provider.ToolRequest) provider.Message {
	blocks := make([]provider.Block, 0, len(calls)+1)
	if text != "" {
		blocks = append(blocks, provider.Block{Type: "text", Text: text})
	}
	for i := range calls {
		blocks = append(blocks, provider.Block{Type: "tool_use", ToolUse: &calls[i]})
	}
	return provider.Message{Role: "assistant", Content: blocks}
}
