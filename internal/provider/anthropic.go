package provider

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/exedev/hum/internal/tool"
)

// AnthropicClient streams assistant turns through the Anthropic Messages
// API.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicClient(apiKey, model string, maxTokens int64) *AnthropicClient {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	c := anthropic.NewClient(opts...)
	return &AnthropicClient{client: &c, model: model, maxTokens: maxTokens}
}

func (c *AnthropicClient) Stream(ctx context.Context, req Request, onChunk func(Chunk) error) error {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  toAnthropicMessages(req.History),
		Tools:     toAnthropicTools(req.Tools),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	var acc anthropic.Message
	for stream.Next() {
		ev := stream.Current()
		if err := acc.Accumulate(ev); err != nil {
			return err
		}
		switch variant := ev.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				if err := onChunk(Chunk{Kind: ChunkTextDelta, Text: delta.Text}); err != nil {
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return err
	}

	// Tool-use arguments stream as partial JSON; they are only complete
	// once the whole message has accumulated.
	for _, block := range acc.Content {
		if block.Type != "tool_use" {
			continue
		}
		tu := block.AsToolUse()
		ck := Chunk{Kind: ChunkToolRequest, Tool: &ToolRequest{
			ID:   tu.ID,
			Name: tu.Name,
			Args: tu.Input,
		}}
		if err := onChunk(ck); err != nil {
			return err
		}
	}

	return onChunk(Chunk{Kind: ChunkEndOfStream, StopReason: string(acc.StopReason)})
}

func toAnthropicTools(defs []tool.Def) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(defs))
	for i, d := range defs {
		props, _ := d.InputSchema["properties"].(map[string]interface{})
		schema := anthropic.ToolInputSchemaParam{Properties: props}
		switch req := d.InputSchema["required"].(type) {
		case []string:
			schema.Required = req
		case []interface{}:
			names := make([]string, len(req))
			for j, r := range req {
				names[j], _ = r.(string)
			}
			schema.Required = names
		}
		t := anthropic.ToolUnionParamOfTool(schema, d.Name)
		if d.Description != "" {
			t.OfTool.Description = param.NewOpt(d.Description)
		}
		out[i] = t
	}
	return out
}

func toAnthropicMessages(history []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(history))
	for _, msg := range history {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
		for _, b := range msg.Content {
			switch b.Type {
			case "text":
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case "tool_use":
				if b.ToolUse != nil {
					var input map[string]interface{}
					_ = json.Unmarshal(b.ToolUse.Args, &input)
					blocks = append(blocks, anthropic.NewToolUseBlock(b.ToolUse.ID, input, b.ToolUse.Name))
				}
			case "tool_result":
				if b.ToolResult != nil {
					blocks = append(blocks, anthropic.NewToolResultBlock(
						b.ToolResult.ID, b.ToolResult.Content, b.ToolResult.IsError))
				}
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if msg.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}
