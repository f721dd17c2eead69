// Package tool provides the registry the model's tool calls dispatch
// through. Unknown tool names and tool failures are results fed back to the
// model, never faults of the surrounding request.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Def describes a tool to the model provider.
type Def struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Result is what a tool invocation produces. IsError marks failures the
// model should see and react to.
type Result struct {
	Content string
	IsError bool
	Elapsed time.Duration
}

// Tool is one callable unit. Validate rejects malformed arguments before
// Execute runs; Execute must honor ctx cancellation where the underlying
// work is abortable.
type Tool interface {
	Def() Def
	Validate(args json.RawMessage) error
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Registry maps tool names to implementations.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Def().Name] = t
}

// Defs returns definitions for every registered tool, name-sorted so the
// provider sees a stable order.
func (r *Registry) Defs() []Def {
	defs := make([]Def, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Def())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs the named tool and always returns a Result: unknown names
// yield a ToolNotFound result, validation failures and panics become error
// results. Elapsed covers the execution itself.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) Result {
	t, ok := r.tools[name]
	if !ok {
		return Result{Content: fmt.Sprintf("ToolNotFound: no tool named %q", name), IsError: true}
	}
	if err := t.Validate(args); err != nil {
		return Result{Content: fmt.Sprintf("invalid arguments for %s: %v", name, err), IsError: true}
	}

	start := time.Now()
	content, err := safeExecute(ctx, t, args)
	elapsed := time.Since(start)

	if err != nil {
		return Result{Content: err.Error(), IsError: true, Elapsed: elapsed}
	}
	return Result{Content: content, Elapsed: elapsed}
}

// safeExecute converts a panicking tool into an error result so a bad tool
// can never take down the request task.
func safeExecute(ctx context.Context, t Tool, args json.RawMessage) (content string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool panic: %v", rec)
		}
	}()
	return t.Execute(ctx, args)
}
