// Package service ties graph storage to the engine: it creates graphs with
// generated identities, runs them, and records every run.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/flowengine/internal/logging"
	"github.com/aretw0/flowengine/internal/validator"
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/ports"
	"github.com/aretw0/flowengine/pkg/schema"
	"github.com/aretw0/flowengine/pkg/tools/codereview"
	"github.com/google/uuid"
)

// Service is safe for concurrent use when its store and executor are.
type Service struct {
	store         ports.Store
	executor      ports.Executor
	logger        *slog.Logger
	maxIterations int
	now           func() time.Time
	newID         func() string
}

// Option configures the Service.
type Option func(*Service)

// WithLogger configures a logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxIterations sets the cap used when a run request does not provide one.
func WithMaxIterations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

// WithClock replaces time.Now for created/started/finished timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces the UUID generator for graph and run IDs.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// New creates a Service.
func New(store ports.Store, executor ports.Executor, opts ...Option) *Service {
	s := &Service{
		store:         store,
		executor:      executor,
		logger:        logging.NewNop(),
		maxIterations: domain.DefaultMaxIterations,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGraph validates and stores a definition under a new ID. An empty name
// becomes "Graph-<first 8 characters of the ID>". Validation issues are always
// returned; in strict mode error-severity issues reject the graph with a
// *validator.Error.
func (s *Service) CreateGraph(ctx context.Context, name string, def domain.Definition, strict bool) (*domain.Graph, []validator.Issue, error) {
	issues := validator.Validate(&def)
	if strict && validator.HasErrors(issues) {
		return nil, issues, validator.Check(&def)
	}

	id := s.newID()
	if name == "" {
		name = "Graph-" + prefix(id, 8)
	}

	graph := &domain.Graph{
		ID:         id,
		Name:       name,
		CreatedAt:  s.now().UTC(),
		Definition: def,
	}
	if err := s.store.SaveGraph(ctx, graph); err != nil {
		return nil, issues, fmt.Errorf("save graph: %w", err)
	}

	s.logger.Info("graph created", "graph_id", id, "name", name, "nodes", len(def.Nodes), "issues", len(issues))
	return graph, issues, nil
}

// CreateCodeReviewGraph stores the prebuilt code-review workflow.
func (s *Service) CreateCodeReviewGraph(ctx context.Context) (*domain.Graph, error) {
	graph, _, err := s.CreateGraph(ctx, codereview.WorkflowName, codereview.Workflow(), false)
	return graph, err
}

// GetGraph returns a stored graph or domain.ErrGraphNotFound.
func (s *Service) GetGraph(ctx context.Context, id string) (*domain.Graph, error) {
	return s.store.LoadGraph(ctx, id)
}

// ListGraphs returns all stored graphs ordered by creation time.
func (s *Service) ListGraphs(ctx context.Context) ([]*domain.Graph, error) {
	return s.store.ListGraphs(ctx)
}

// RunGraph executes a stored graph and records the run. Handler failures do not
// produce an error here; they are in the run's log. A non-positive
// maxIterations uses the service default.
func (s *Service) RunGraph(ctx context.Context, graphID string, initial domain.State, maxIterations int) (*domain.Run, error) {
	graph, err := s.store.LoadGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	if maxIterations <= 0 {
		maxIterations = s.maxIterations
	}
	if initial == nil {
		initial = domain.State{}
	}
	if err := CheckInput(&graph.Definition, initial); err != nil {
		return nil, err
	}

	run := &domain.Run{
		ID:        s.newID(),
		GraphID:   graphID,
		StartedAt: s.now().UTC(),
	}
	result := s.executor.Run(ctx, run.ID, &graph.Definition, initial, maxIterations)
	run.FinalState = result.FinalState
	run.Log = result.Log
	run.FinishedAt = s.now().UTC()

	// The run already happened; persist it even if the caller went away.
	if err := s.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	s.logger.Info("run finished",
		"run_id", run.ID,
		"graph_id", graphID,
		"steps", len(run.Log),
		"failed", result.Failed(),
		"exhausted", result.Exhausted(),
		"duration", run.FinishedAt.Sub(run.StartedAt))
	return run, nil
}

// CheckInput validates initial against the definition's input schema. A
// malformed schema wraps domain.ErrInvalidGraph; a mismatch wraps
// domain.ErrInvalidInput.
func CheckInput(def *domain.Definition, initial domain.State) error {
	s, err := schema.Parse(def.InputSchema)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidGraph, err)
	}
	if err := s.Check(initial); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

// GetRun returns a stored run or domain.ErrRunNotFound.
func (s *Service) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	return s.store.LoadRun(ctx, id)
}

// ListRuns returns the runs of a graph, or of all graphs when graphID is empty.
// A non-empty unknown graphID yields domain.ErrGraphNotFound.
func (s *Service) ListRuns(ctx context.Context, graphID string) ([]*domain.Run, error) {
	if graphID != "" {
		if _, err := s.store.LoadGraph(ctx, graphID); err != nil {
			return nil, err
		}
	}
	return s.store.ListRuns(ctx, graphID)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
