package domain

import (
	"context"
	"time"
)

// RunEvent describes the start or the end of a run.
type RunEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	RunID      string    `json:"run_id"`
	Iterations int       `json:"iterations,omitempty"`
	Failed     bool      `json:"failed,omitempty"`
	Exhausted  bool      `json:"exhausted,omitempty"`
}

// StepEvent describes a visited node.
type StepEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	RunID     string        `json:"run_id"`
	Iteration int           `json:"iteration"`
	NodeID    string        `json:"node_id"`
	Handler   string        `json:"handler,omitempty"`
	Status    StepStatus    `json:"status,omitempty"` // Empty on OnStepStart
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously on the run's goroutine; nil hooks are skipped.
type LifecycleHooks struct {
	OnRunStart  func(context.Context, *RunEvent)
	OnStepStart func(context.Context, *StepEvent)
	OnStepEnd   func(context.Context, *StepEvent)
	OnRunEnd    func(context.Context, *RunEvent)
}

// Merge combines two hook sets; both callbacks fire, h first.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnRunStart:  chain(h.OnRunStart, other.OnRunStart),
		OnStepStart: chain(h.OnStepStart, other.OnStepStart),
		OnStepEnd:   chain(h.OnStepEnd, other.OnStepEnd),
		OnRunEnd:    chain(h.OnRunEnd, other.OnRunEnd),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
