package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/flowengine/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long graphs and runs stay in the cache.
const DefaultTTL = 24 * time.Hour

// noExpiry is the index score used when TTL is disabled (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.Store on Redis. It lets several server replicas share
// graphs and runs; with a TTL set it is a cache, not durable storage.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for graphs and runs. Zero disables expiration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "flowengine:",
		ttl:    DefaultTTL,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) graphKey(id string) string { return s.prefix + "graph:" + id }
func (s *Store) runKey(id string) string { return s.prefix + "run:" + id }
func (s *Store) graphIndex() string { return s.prefix + "graphs" }
func (s *Store) runIndex() string { return s.prefix + "runs" }

func (s *Store) graphRunIndex(graphID string) string {
	return s.prefix + "graph:" + graphID + ":runs"
}

// score is the expiry time of an entry written now; List prunes past scores.
func (s *Store) score() float64 {
	if s.ttl == 0 {
		return noExpiry
	}
	return float64(time.Now().Add(s.ttl).Unix())
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveGraph persists the graph as JSON and indexes it.
func (s *Store) SaveGraph(ctx context.Context, graph *domain.Graph) error {
	data, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.graphKey(graph.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.graphIndex(), backend.Z{Score: s.score(), Member: graph.ID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save graph to redis: %w", err)
	}
	return nil
}

// LoadGraph retrieves a graph.
func (s *Store) LoadGraph(ctx context.Context, id string) (*domain.Graph, error) {
	val, err := s.client.Get(ctx, s.graphKey(id)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrGraphNotFound
		}
		return nil, fmt.Errorf("failed to get graph from redis: %w", err)
	}

	var graph domain.Graph
	if err := json.Unmarshal([]byte(val), &graph); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return &graph, nil
}

// ListGraphs returns the live graphs ordered by creation time.
func (s *Store) ListGraphs(ctx context.Context) ([]*domain.Graph, error) {
	ids, err := s.members(ctx, s.graphIndex())
	if err != nil {
		return nil, err
	}

	graphs := make([]*domain.Graph, 0, len(ids))
	err = s.fetch(ctx, ids, s.graphKey, func(raw string) error {
		var g domain.Graph
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			return fmt.Errorf("failed to unmarshal graph: %w", err)
		}
		graphs = append(graphs, &g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	domain.SortGraphs(graphs)
	return graphs, nil
}

// SaveRun persists the run as JSON and indexes it globally and per graph.
func (s *Store) SaveRun(ctx context.Context, run *domain.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	score := s.score()
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.runKey(run.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.runIndex(), backend.Z{Score: score, Member: run.ID})
	pipe.ZAdd(ctx, s.graphRunIndex(run.GraphID), backend.Z{Score: score, Member: run.ID})
	if s.ttl > 0 {
		pipe.Expire(ctx, s.graphRunIndex(run.GraphID), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run to redis: %w", err)
	}
	return nil
}

// LoadRun retrieves a run.
func (s *Store) LoadRun(ctx context.Context, id string) (*domain.Run, error) {
	val, err := s.client.Get(ctx, s.runKey(id)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run from redis: %w", err)
	}

	var run domain.Run
	if err := json.Unmarshal([]byte(val), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// ListRuns returns the live runs of graphID (all when empty) ordered by start time.
func (s *Store) ListRuns(ctx context.Context, graphID string) ([]*domain.Run, error) {
	index := s.runIndex()
	if graphID != "" {
		index = s.graphRunIndex(graphID)
	}

	ids, err := s.members(ctx, index)
	if err != nil {
		return nil, err
	}

	runs := make([]*domain.Run, 0, len(ids))
	err = s.fetch(ctx, ids, s.runKey, func(raw string) error {
		var r domain.Run
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return fmt.Errorf("failed to unmarshal run: %w", err)
		}
		runs = append(runs, &r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	domain.SortRuns(runs)
	return runs, nil
}

// members prunes expired entries from a ZSET index and returns the rest.
func (s *Store) members(ctx context.Context, index string) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, index, "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired entries: %w", err)
	}

	ids, err := s.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list index %s: %w", index, err)
	}
	return ids, nil
}

// fetch loads ids with a single MGET. Keys that expired before their index
// entry was pruned come back nil and are skipped.
func (s *Store) fetch(ctx context.Context, ids []string, key func(string) string, decode func(string) error) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("failed to fetch from redis: %w", err)
	}

	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		if err := decode(raw); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
