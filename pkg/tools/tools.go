// Package tools defines the tool surface an agent instance exposes to the
// model. Concrete tools (cloud metrics, mail, notes) are registered per
// session; the agent dispatches model tool calls through the Registry.
package tools

import (
	"context"
	"fmt"

	"github.com/steward-agent/steward/pkg/domain"
)

// Tool is one named capability the model may invoke.
type Tool interface {
	// Spec returns the model-facing declaration of the tool.
	Spec() domain.ToolSpec

	// Call executes the tool with the model-supplied input and returns the
	// textual result handed back to the model.
	Call(ctx context.Context, input map[string]any) (string, error)
}

// Registry holds the tools available to one agent instance. It is populated
// at construction time and read-only afterward, so it needs no locking.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry from the given tools.
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		name := t.Spec().Name
		if _, dup := r.tools[name]; !dup {
			r.order = append(r.order, name)
		}
		r.tools[name] = t
	}
	return r
}

// Specs returns the declarations for all registered tools, in registration
// order.
func (r *Registry) Specs() []domain.ToolSpec {
	if r == nil || len(r.order) == 0 {
		return nil
	}
	specs := make([]domain.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec())
	}
	return specs
}

// Dispatch routes a tool call to the matching tool. Tool errors are folded
// into the result rather than propagated: a failed tool is information for
// the model, not a failed request.
func (r *Registry) Dispatch(ctx context.Context, tc *domain.ToolCall) *domain.ToolResult {
	if r == nil {
		return &domain.ToolResult{ToolCallID: tc.ID, Content: fmt.Sprintf("Error: unknown tool %q", tc.Name), IsError: true}
	}
	t, ok := r.tools[tc.Name]
	if !ok {
		return &domain.ToolResult{ToolCallID: tc.ID, Content: fmt.Sprintf("Error: unknown tool %q", tc.Name), IsError: true}
	}

	out, err := t.Call(ctx, tc.Input)
	if err != nil {
		return &domain.ToolResult{ToolCallID: tc.ID, Content: fmt.Sprintf("Error: %v", err), IsError: true}
	}
	return &domain.ToolResult{ToolCallID: tc.ID, Content: out}
}
