// Package hooks runs observers around a completion: before-generate hooks may
// inspect or adjust the agent context, after-generate hooks receive the
// produced message and its telemetry.
//
// A Pipeline is built once from an explicit list and never changes. Hooks in a
// phase run one at a time in registration order; the first failure aborts the
// rest of that phase and is reported as a *HookError. Earlier hooks are not
// rolled back.
package hooks

import (
	"context"
	"errors"
	"fmt"

	"llamachat/internal/inference"
	"llamachat/pkg/types"
)

// Hook observes a completion call.
type Hook interface {
	// BeforeGenerate runs before the prompt is built. Changes made to agent
	// are visible to later hooks and to the prompt of this call only.
	BeforeGenerate(ctx context.Context, agent *types.AgentContext, history types.ConversationHistory) error
	// AfterGenerate runs once the message has been produced.
	AfterGenerate(ctx context.Context, msg *types.GeneratedMessage, rec types.TelemetryRecord) error
}

// Phase names the hook phase that failed.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

// HookError reports the hook that aborted a phase.
type HookError struct {
	Phase Phase
	// Index is the position of the hook in registration order.
	Index int
	// Hook is the hook's name, see Name.
	Hook string
	Err  error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook %d (%s) failed %s generate: %v", e.Index, e.Hook, e.Phase, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// IsHookFailure reports whether err comes from a failed hook.
func IsHookFailure(err error) bool {
	var he *HookError
	return errors.As(err, &he)
}

// Named can be implemented by hooks to control how they appear in errors and logs.
type Named interface {
	Name() string
}

// Name returns the display name of h: Named.Name when implemented, else its type.
func Name(h Hook) string {
	if n, ok := h.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

// Pipeline is an immutable, ordered hook registration.
type Pipeline struct {
	hooks []Hook
}

// NewPipeline copies hs; nil entries are skipped.
func NewPipeline(hs ...Hook) *Pipeline {
	p := &Pipeline{hooks: make([]Hook, 0, len(hs))}
	for _, h := range hs {
		if h != nil {
			p.hooks = append(p.hooks, h)
		}
	}
	return p
}

// Len returns the number of registered hooks. A nil Pipeline has none.
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.hooks)
}

// Names lists hook names in registration order.
func (p *Pipeline) Names() []string {
	out := make([]string, 0, p.Len())
	if p == nil {
		return out
	}
	for _, h := range p.hooks {
		out = append(out, Name(h))
	}
	return out
}

// RunBefore invokes every BeforeGenerate hook in order. A done ctx stops the
// phase with inference.ErrCancelled before the next hook runs.
func (p *Pipeline) RunBefore(ctx context.Context, agent *types.AgentContext, history types.ConversationHistory) error {
	if p == nil {
		return nil
	}
	for i, h := range p.hooks {
		if ctx.Err() != nil {
			return inference.ErrCancelled
		}
		if err := h.BeforeGenerate(ctx, agent, history); err != nil {
			return &HookError{Phase: PhaseBefore, Index: i, Hook: Name(h), Err: err}
		}
	}
	return nil
}

// RunAfter invokes every AfterGenerate hook in order, with the same abort and
// cancellation rules as RunBefore.
func (p *Pipeline) RunAfter(ctx context.Context, msg *types.GeneratedMessage, rec types.TelemetryRecord) error {
	if p == nil {
		return nil
	}
	for i, h := range p.hooks {
		if ctx.Err() != nil {
			return inference.ErrCancelled
		}
		if err := h.AfterGenerate(ctx, msg, rec); err != nil {
			return &HookError{Phase: PhaseAfter, Index: i, Hook: Name(h), Err: err}
		}
	}
	return nil
}

// Funcs adapts plain functions to Hook. Nil funcs are no-ops.
type Funcs struct {
	HookName string
	Before   func(ctx context.Context, agent *types.AgentContext, history types.ConversationHistory) error
	After    func(ctx context.Context, msg *types.GeneratedMessage, rec types.TelemetryRecord) error
}

func (f Funcs) Name() string {
	if f.HookName == "" {
		return "funcs"
	}
	return f.HookName
}

func (f Funcs) BeforeGenerate(ctx context.Context, agent *types.AgentContext, history types.ConversationHistory) error {
	if f.Before == nil {
		return nil
	}
	return f.Before(ctx, agent, history)
}

func (f Funcs) AfterGenerate(ctx context.Context, msg *types.GeneratedMessage, rec types.TelemetryRecord) error {
	if f.After == nil {
		return nil
	}
	return f.After(ctx, msg, rec)
}
