package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/flowengine/internal/logging"
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Skip reasons recorded on skipped log entries.
const (
	ReasonNodeNotDeclared = "node not declared"
	ReasonNoHandler       = "no handler defined"
	reasonNotRegistered   = "handler not registered: "
)

const tracerName = "github.com/aretw0/flowengine"

// Engine interprets graph definitions against a handler registry.
// An Engine holds no per-run state and is safe for concurrent Run calls.
type Engine struct {
	registry    *registry.Registry
	pool        *Pool
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	tracer      trace.Tracer
	stepTimeout time.Duration
	now         func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. Nil keeps the no-op default.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks adds lifecycle callbacks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithStepTimeout bounds every handler invocation. Zero disables the bound.
func WithStepTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.stepTimeout = d
	}
}

// WithPool shares a dispatcher pool between engines.
func WithPool(pool *Pool) EngineOption {
	return func(e *Engine) {
		if pool != nil {
			e.pool = pool
		}
	}
}

// WithClock replaces time.Now for log timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine resolving handlers from reg.
func NewEngine(reg *registry.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: reg,
		logger:   logging.NewNop(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pool == nil {
		e.pool = NewPool(0)
	}
	return e
}

// Pool returns the dispatcher used by the engine.
func (e *Engine) Pool() *Pool {
	return e.pool
}

// Run executes def from START until END, a handler error, or maxIterations
// visits. The caller's initial state is never mutated. Run always returns a
// result; failures are reported in the log.
func (e *Engine) Run(ctx context.Context, runID string, def *domain.Definition, initial domain.State, maxIterations int) *domain.RunResult {
	if maxIterations <= 0 {
		maxIterations = domain.DefaultMaxIterations
	}
	if def == nil {
		def = &domain.Definition{}
	}

	ctx, span := e.tracer.Start(ctx, "flowengine.run", trace.WithAttributes(
		attribute.String("flowengine.run_id", runID),
		attribute.Int("flowengine.max_iterations", maxIterations),
	))
	defer span.End()

	logger := e.logger.With("run_id", runID)
	if e.hooks.OnRunStart != nil {
		e.hooks.OnRunStart(ctx, &domain.RunEvent{Timestamp: e.now(), RunID: runID})
	}

	state := initial.Clone()
	log := []domain.LogEntry{}

	current := domain.StartNode
	iteration := 0
	stopped := false

	for current != domain.EndNode && iteration < maxIterations {
		iteration++

		if current == domain.StartNode {
			entry, ok := def.EntryNode()
			if !ok {
				logger.Debug("graph has no entry edge")
				stopped = true
				break
			}
			current = entry
			continue
		}

		entry := e.step(ctx, runID, iteration, def, current, state)
		log = append(log, entry)
		if entry.Status == domain.StatusError {
			stopped = true
			break
		}
		current = next(def, current, state)
	}

	exhausted := !stopped && current != domain.EndNode && iteration >= maxIterations
	if exhausted {
		logger.Warn("max iterations reached", "max_iterations", maxIterations, "node", current)
		log = append(log, domain.LogEntry{
			Timestamp: e.now(),
			Warning:   domain.MaxIterationsWarning,
		})
	}

	result := &domain.RunResult{FinalState: state, Log: log}
	failed := result.Failed()
	if failed {
		span.SetStatus(codes.Error, log[len(log)-1].Error)
	}
	span.SetAttributes(
		attribute.Int("flowengine.iterations", iteration),
		attribute.Bool("flowengine.exhausted", exhausted),
	)
	if e.hooks.OnRunEnd != nil {
		e.hooks.OnRunEnd(ctx, &domain.RunEvent{
			Timestamp:  e.now(),
			RunID:      runID,
			Iterations: iteration,
			Failed:     failed,
			Exhausted:  exhausted,
		})
	}
	logger.Debug("run finished", "iterations", iteration, "steps", len(log), "failed", failed)
	return result
}

// step visits a single node and merges a successful mapping result into state.
func (e *Engine) step(ctx context.Context, runID string, iteration int, def *domain.Definition, nodeID string, state domain.State) domain.LogEntry {
	entry := domain.LogEntry{
		Iteration: iteration,
		Node:      nodeID,
		Timestamp: e.now(),
	}

	node, declared := def.Nodes[nodeID]
	event := &domain.StepEvent{
		Timestamp: entry.Timestamp,
		RunID:     runID,
		Iteration: iteration,
		NodeID:    nodeID,
		Handler:   node.Handler,
	}
	if e.hooks.OnStepStart != nil {
		e.hooks.OnStepStart(ctx, event)
	}

	var handler registry.Handler
	switch {
	case !declared:
		entry.Reason = ReasonNodeNotDeclared
	case node.Handler == "":
		entry.Reason = ReasonNoHandler
	default:
		var ok bool
		if e.registry != nil {
			handler, ok = e.registry.Lookup(node.Handler)
		}
		if !ok {
			entry.Reason = reasonNotRegistered + node.Handler
		}
	}

	if handler == nil {
		entry.Status = domain.StatusSkipped
		e.logger.Debug("step skipped", "run_id", runID, "iteration", iteration, "node", nodeID, "reason", entry.Reason)
		e.endStep(ctx, event, entry.Status, 0, nil)
		return entry
	}

	stepCtx, span := e.tracer.Start(ctx, "flowengine.step", trace.WithAttributes(
		attribute.String("flowengine.run_id", runID),
		attribute.Int("flowengine.iteration", iteration),
		attribute.String("flowengine.node", nodeID),
		attribute.String("flowengine.handler", node.Handler),
	))
	defer span.End()

	start := time.Now()
	output, err := e.invoke(stepCtx, node.Handler, handler, state.Clone())
	duration := time.Since(start)

	if err != nil {
		entry.Status = domain.StatusError
		entry.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, entry.Error)
		e.logger.Warn("step failed", "run_id", runID, "iteration", iteration, "node", nodeID, "handler", node.Handler, "error", err)
	} else {
		entry.Status = domain.StatusSuccess
		entry.Output = output
		if update, ok := domain.AsUpdate(output); ok {
			state.Merge(update)
		}
		e.logger.Debug("step completed", "run_id", runID, "iteration", iteration, "node", nodeID, "handler", node.Handler, "duration", duration)
	}
	span.SetAttributes(attribute.String("flowengine.status", string(entry.Status)))

	e.endStep(ctx, event, entry.Status, duration, err)
	return entry
}

func (e *Engine) endStep(ctx context.Context, event *domain.StepEvent, status domain.StepStatus, d time.Duration, err error) {
	if e.hooks.OnStepEnd == nil {
		return
	}
	end := *event
	end.Timestamp = e.now()
	end.Status = status
	end.Duration = d
	end.Err = err
	e.hooks.OnStepEnd(ctx, &end)
}

type outcome struct {
	output any
	err    error
}

// invoke runs the handler on the pool and waits for it, the step deadline or
// cancellation of the run, whichever comes first. The step deadline starts once
// a worker slot is held; a handler that is given up on stops counting against
// pool capacity.
func (e *Engine) invoke(ctx context.Context, name string, h registry.Handler, state domain.State) (any, error) {
	slot, err := e.pool.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("dispatch handler %q: %w", name, err)
	}

	stepCtx, cancel := ctx, context.CancelFunc(func() {})
	if e.stepTimeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, e.stepTimeout)
	}
	defer cancel()

	done := make(chan outcome, 1)
	slot.Go(func() error {
		output, err := call(stepCtx, h, state)
		done <- outcome{output: output, err: err}
		return err
	})

	select {
	case res := <-done:
		return res.output, res.err
	case <-stepCtx.Done():
		slot.Abandon()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("handler %q timed out after %s", name, e.stepTimeout)
	}
}

func call(ctx context.Context, h registry.Handler, state domain.State) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Invoke(ctx, state)
}

// next picks the successor of nodeID. The first matching condition wins; a
// matching condition without a target falls back to the plain edge, as does no
// match at all. Without a plain edge the run goes to END.
func next(def *domain.Definition, nodeID string, state domain.State) string {
	for _, cond := range def.ConditionalEdges[nodeID] {
		if Evaluate(state, cond.Field, cond.Operator, cond.Value) {
			if cond.Target != "" {
				return cond.Target
			}
			break
		}
	}
	if target, ok := def.Edges[nodeID]; ok && target != "" {
		return target
	}
	return domain.EndNode
}
