package memory

import (
	"context"
	"sync"

	"github.com/aretw0/flowengine/pkg/domain"
)

// Store implements ports.Store in memory.
// Safe for concurrent use. Values are copied on the way in and out so callers
// cannot mutate stored records through shared maps.
type Store struct {
	graphs map[string]*domain.Graph
	runs   map[string]*domain.Run
	mu     sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		graphs: make(map[string]*domain.Graph),
		runs:   make(map[string]*domain.Run),
	}
}

// SaveGraph stores a copy of graph.
func (s *Store) SaveGraph(ctx context.Context, graph *domain.Graph) error {
	copied := copyGraph(graph)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[graph.ID] = copied
	return nil
}

// LoadGraph retrieves a graph by ID.
func (s *Store) LoadGraph(ctx context.Context, id string) (*domain.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	graph, ok := s.graphs[id]
	if !ok {
		return nil, domain.ErrGraphNotFound
	}
	return copyGraph(graph), nil
}

// ListGraphs returns all graphs ordered by creation time.
func (s *Store) ListGraphs(ctx context.Context) ([]*domain.Graph, error) {
	s.mu.RLock()
	graphs := make([]*domain.Graph, 0, len(s.graphs))
	for _, g := range s.graphs {
		graphs = append(graphs, copyGraph(g))
	}
	s.mu.RUnlock()

	domain.SortGraphs(graphs)
	return graphs, nil
}

// SaveRun stores a copy of run.
func (s *Store) SaveRun(ctx context.Context, run *domain.Run) error {
	copied := copyRun(run)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = copied
	return nil
}

// LoadRun retrieves a run by ID.
func (s *Store) LoadRun(ctx context.Context, id string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return copyRun(run), nil
}

// ListRuns returns the runs of graphID (all runs when empty) ordered by start time.
func (s *Store) ListRuns(ctx context.Context, graphID string) ([]*domain.Run, error) {
	s.mu.RLock()
	runs := make([]*domain.Run, 0)
	for _, r := range s.runs {
		if graphID == "" || r.GraphID == graphID {
			runs = append(runs, copyRun(r))
		}
	}
	s.mu.RUnlock()

	domain.SortRuns(runs)
	return runs, nil
}

func copyGraph(g *domain.Graph) *domain.Graph {
	out := *g
	out.Definition = g.Definition.Clone()
	return &out
}

func copyRun(r *domain.Run) *domain.Run {
	out := *r
	out.FinalState = r.FinalState.Clone()
	out.Log = append([]domain.LogEntry{}, r.Log...)
	return &out
}
