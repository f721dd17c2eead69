// Package provider abstracts the model-provider transport. The coordinator
// consumes a stream of chunks and never sees provider wire formats.
package provider

import (
	"context"
	"encoding/json"

	"github.com/exedev/hum/internal/tool"
)

// ChunkKind tags one unit of streamed provider output.
type ChunkKind string

const (
	ChunkTextDelta   ChunkKind = "text_delta"
	ChunkToolRequest ChunkKind = "tool_request"
	ChunkEndOfStream ChunkKind = "end_of_stream"
)

// ToolRequest is the model asking for a tool invocation.
type ToolRequest struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ToolResult answers a ToolRequest on the next leg.
type ToolResult struct {
	ID      string
	Content string
	IsError bool
}

// Chunk is one streamed unit. Transport errors are returned from Stream
// itself, not delivered as chunks.
type Chunk struct {
	Kind       ChunkKind
	Text       string       // ChunkTextDelta
	Tool       *ToolRequest // ChunkToolRequest
	StopReason string       // ChunkEndOfStream
}

// Block is a single piece of a conversation message.
type Block struct {
	Type       string // "text", "tool_use", "tool_result"
	Text       string
	ToolUse    *ToolRequest
	ToolResult *ToolResult
}

// Message is one conversation turn as the provider sees it.
type Message struct {
	Role    string // "user" or "assistant"
	Content []Block
}

// Request is everything one streaming leg needs.
type Request struct {
	System  string
	History []Message
	Tools   []tool.Def
}

// Client streams one assistant leg. onChunk is called once per chunk, in
// arrival order; returning an error aborts the stream, and that error is
// returned unchanged so the caller can distinguish its own abort from a
// transport failure. Tool-request chunks arrive after their arguments are
// complete, before the end-of-stream chunk.
type Client interface {
	Stream(ctx context.Context, req Request, onChunk func(Chunk) error) error
}

// UserText builds a plain user message.
func UserText(text string) Message {
	return Message{Role: "user", Content: []Block{{Type: "text", Text: text}}}
}

// AssistantText builds a plain assistant message.
func AssistantText(text string) Message {
	return Message{Role: "assistant", Content: []Block{{Type: "text", Text: text}}}
}
