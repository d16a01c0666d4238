package flowengine

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/flowengine/internal/logging"
	"github.com/aretw0/flowengine/internal/runtime"
	"github.com/aretw0/flowengine/internal/validator"
	"github.com/aretw0/flowengine/pkg/adapters/memory"
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/ports"
	"github.com/aretw0/flowengine/pkg/registry"
	"github.com/aretw0/flowengine/pkg/service"
	"github.com/aretw0/flowengine/pkg/tools/codereview"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Engine is the high-level entry point for the flowengine library.
// It wires a handler registry, the graph interpreter, a store and the
// graph service together.
type Engine struct {
	registry *registry.Registry
	runtime  *runtime.Engine
	store    ports.Store
	service  *service.Service

	logger        *slog.Logger
	hooks         domain.LifecycleHooks
	tracer        trace.Tracer
	stepTimeout   time.Duration
	workers       int
	maxIterations int
	builtins      bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithStore replaces the default in-memory store.
func WithStore(store ports.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithRegistry uses an existing handler registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithTracer sets the OpenTelemetry tracer for run and step spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithStepTimeout bounds each handler invocation. Zero means no bound.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.stepTimeout = d
	}
}

// WithWorkers limits how many handlers run at once across all runs.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithMaxIterations sets the cap used when a run does not provide one.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		e.maxIterations = n
	}
}

// WithoutBuiltinTools skips registering the code-review handlers.
func WithoutBuiltinTools() Option {
	return func(e *Engine) {
		e.builtins = false
	}
}

// New initializes a new Engine. Unless WithoutBuiltinTools is given, the
// code-review handlers are registered.
func New(opts ...Option) *Engine {
	eng := &Engine{
		maxIterations: domain.DefaultMaxIterations,
		builtins:      true,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.registry == nil {
		eng.registry = registry.New()
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.builtins {
		codereview.Register(eng.registry)
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithStepTimeout(eng.stepTimeout),
		runtime.WithPool(runtime.NewPool(eng.workers)),
	}
	if eng.tracer != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithTracer(eng.tracer))
	}
	eng.runtime = runtime.NewEngine(eng.registry, runtimeOpts...)

	eng.service = service.New(eng.store, eng.runtime,
		service.WithLogger(eng.logger),
		service.WithMaxIterations(eng.maxIterations),
	)
	return eng
}

// Register adds a handler under name, replacing any previous one.
func (e *Engine) Register(name string, h registry.Handler) {
	e.registry.Register(name, h)
}

// RegisterFunc adds a plain function as a handler.
func (e *Engine) RegisterFunc(name string, fn func(ctx context.Context, state domain.State) (any, error)) {
	e.registry.RegisterFunc(name, fn)
}

// Run executes def directly, without storing it or the run. A non-positive
// maxIterations uses the engine default.
func (e *Engine) Run(ctx context.Context, def domain.Definition, initial domain.State, maxIterations int) *domain.RunResult {
	if maxIterations <= 0 {
		maxIterations = e.maxIterations
	}
	return e.runtime.Run(ctx, uuid.NewString(), &def, initial, maxIterations)
}

// CheckInput validates initial against def's input schema. Run does not call
// it; a definition without a schema accepts any state.
func (e *Engine) CheckInput(def domain.Definition, initial domain.State) error {
	return service.CheckInput(&def, initial)
}

// Validate reports structural problems in def.
func (e *Engine) Validate(def domain.Definition) []validator.Issue {
	return validator.Validate(&def)
}

// Service returns the graph service backed by the engine's store.
func (e *Engine) Service() *service.Service {
	return e.service
}

// Registry returns the handler registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Store returns the graph and run store.
func (e *Engine) Store() ports.Store {
	return e.store
}

// ActiveHandlers reports how many handlers are running right now.
func (e *Engine) ActiveHandlers() float64 {
	return float64(e.runtime.Pool().Metrics().Active)
}

// Close stops the handler pool and closes the store when it holds resources.
func (e *Engine) Close() error {
	e.runtime.Pool().Shutdown()
	if c, ok := e.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
