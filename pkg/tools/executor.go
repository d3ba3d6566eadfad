package tools

import (
	"context"
	"fmt"
)

// Executor runs catalog tools against one board, guarding against a
// duplicate tool_use_id within the same tool loop (spec §4.M).
type Executor struct {
	registry *Registry
	guard    *Guard
}

// NewExecutor builds an executor over registry, with a fresh per-loop guard.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry, guard: NewGuard()}
}

// Execute looks up name, rejects a replayed callID, and runs the tool
// against call with input. A nil input is normalized to an empty map so
// tool Execute functions never need a nil check.
func (e *Executor) Execute(ctx context.Context, call *Call, callID, name string, input map[string]any) (*Result, error) {
	if !e.guard.Register(callID) {
		return nil, fmt.Errorf("duplicate tool call id: %s", callID)
	}
	tool := e.registry.Get(name)
	if tool == nil {
		return &Result{Summary: "unknown tool: " + name, IsError: true}, nil
	}
	if input == nil {
		input = map[string]any{}
	}
	return tool.Execute(ctx, call, input)
}

// Registry returns the underlying tool registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}
