package ports

import (
	"context"

	"github.com/aretw0/flowengine/pkg/domain"
)

// GraphStore persists graph definitions keyed by their generated ID.
type GraphStore interface {
	// SaveGraph stores or replaces a graph.
	SaveGraph(ctx context.Context, graph *domain.Graph) error

	// LoadGraph retrieves a graph.
	// Returns domain.ErrGraphNotFound if the graph does not exist.
	LoadGraph(ctx context.Context, id string) (*domain.Graph, error)

	// ListGraphs returns every stored graph ordered by creation time, then ID.
	ListGraphs(ctx context.Context) ([]*domain.Graph, error)
}

// RunStore persists run records.
type RunStore interface {
	// SaveRun stores or replaces a run.
	SaveRun(ctx context.Context, run *domain.Run) error

	// LoadRun retrieves a run.
	// Returns domain.ErrRunNotFound if the run does not exist.
	LoadRun(ctx context.Context, id string) (*domain.Run, error)

	// ListRuns returns the runs of graphID ordered by start time, then ID.
	// An empty graphID lists all runs.
	ListRuns(ctx context.Context, graphID string) ([]*domain.Run, error)
}

// Store is the full persistence port used by the service layer.
type Store interface {
	GraphStore
	RunStore
}
