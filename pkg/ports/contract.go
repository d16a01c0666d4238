package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests to verify that a Store implementation
// adheres to the defined interface contract. It expects an empty store.
func RunStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405.000000000")
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	graph := func(id string, offset time.Duration) *domain.Graph {
		return &domain.Graph{
			ID:        id,
			Name:      "Graph-" + id,
			CreatedAt: base.Add(offset),
			Definition: domain.Definition{
				Nodes: map[string]domain.Node{"a": {Handler: "h", Description: "first"}},
				Edges: map[string]string{domain.StartNode: "a", "a": domain.EndNode},
				ConditionalEdges: map[string]domain.ConditionGroup{
					"a": {
						{Name: "z_first", Field: "score", Operator: ">=", Value: 80.5, Target: domain.EndNode},
						{Name: "a_second", Field: "score", Operator: "<", Value: 80.5, Target: "a"},
					},
				},
			},
		}
	}

	t.Run("Save and Load Graph", func(t *testing.T) {
		g := graph("g-"+suffix, 0)
		require.NoError(t, store.SaveGraph(ctx, g), "SaveGraph should not return error")

		loaded, err := store.LoadGraph(ctx, g.ID)
		require.NoError(t, err, "LoadGraph should not return error")
		assert.Equal(t, g.ID, loaded.ID)
		assert.Equal(t, g.Name, loaded.Name)
		assert.True(t, g.CreatedAt.Equal(loaded.CreatedAt))
		assert.Equal(t, g.Nodes, loaded.Nodes)
		assert.Equal(t, g.Edges, loaded.Edges)
		require.Len(t, loaded.ConditionalEdges["a"], 2)
		// Group order is part of the routing semantics and must survive storage.
		assert.Equal(t, "z_first", loaded.ConditionalEdges["a"][0].Name)
		assert.Equal(t, "a_second", loaded.ConditionalEdges["a"][1].Name)
	})

	t.Run("Load Non-Existent Graph", func(t *testing.T) {
		_, err := store.LoadGraph(ctx, "missing-"+suffix)
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("List Graphs Ordered", func(t *testing.T) {
		// Saved out of order on purpose; equal timestamps fall back to ID.
		ids := []string{"l3-" + suffix, "l1-" + suffix, "l2-" + suffix}
		require.NoError(t, store.SaveGraph(ctx, graph(ids[0], 2*time.Hour)))
		require.NoError(t, store.SaveGraph(ctx, graph(ids[1], time.Hour)))
		require.NoError(t, store.SaveGraph(ctx, graph(ids[2], 2*time.Hour)))

		graphs, err := store.ListGraphs(ctx)
		require.NoError(t, err)

		var got []string
		for _, g := range graphs {
			for _, id := range ids {
				if g.ID == id {
					got = append(got, id)
				}
			}
		}
		assert.Equal(t, []string{ids[1], ids[2], ids[0]}, got)
	})

	t.Run("Save and Load Run", func(t *testing.T) {
		run := &domain.Run{
			ID:         "r-" + suffix,
			GraphID:    "g-" + suffix,
			FinalState: domain.State{"foo": "bar", "count": 42},
			Log: []domain.LogEntry{
				{Iteration: 2, Node: "a", Timestamp: base, Status: domain.StatusSuccess, Output: map[string]any{"count": 42}},
				{Timestamp: base, Warning: domain.MaxIterationsWarning},
			},
			StartedAt:  base,
			FinishedAt: base.Add(time.Second),
		}
		require.NoError(t, store.SaveRun(ctx, run))

		loaded, err := store.LoadRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.GraphID, loaded.GraphID)
		assert.Equal(t, "bar", loaded.FinalState["foo"])
		// JSON-backed stores decode numbers as float64; only existence is portable.
		assert.NotNil(t, loaded.FinalState["count"])
		require.Len(t, loaded.Log, 2)
		assert.Equal(t, domain.StatusSuccess, loaded.Log[0].Status)
		assert.True(t, loaded.Log[1].IsWarning())
		assert.True(t, run.FinishedAt.Equal(loaded.FinishedAt))
	})

	t.Run("Load Non-Existent Run", func(t *testing.T) {
		_, err := store.LoadRun(ctx, "missing-"+suffix)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("List Runs By Graph", func(t *testing.T) {
		graphID := "lr-" + suffix
		for i := 0; i < 3; i++ {
			target := graphID
			if i == 1 {
				target = "other-" + suffix
			}
			require.NoError(t, store.SaveRun(ctx, &domain.Run{
				ID:         fmt.Sprintf("lr-%d-%s", i, suffix),
				GraphID:    target,
				FinalState: domain.State{},
				Log:        []domain.LogEntry{},
				StartedAt:  base.Add(time.Duration(3-i) * time.Minute),
			}))
		}

		runs, err := store.ListRuns(ctx, graphID)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, fmt.Sprintf("lr-2-%s", suffix), runs[0].ID)
		assert.Equal(t, fmt.Sprintf("lr-0-%s", suffix), runs[1].ID)

		all, err := store.ListRuns(ctx, "")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 3)
	})

	t.Run("Stored Copies Are Isolated", func(t *testing.T) {
		g := graph("iso-"+suffix, 0)
		require.NoError(t, store.SaveGraph(ctx, g))
		g.Nodes["a"] = domain.Node{Handler: "mutated"}

		loaded, err := store.LoadGraph(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, "h", loaded.Nodes["a"].Handler)
	})
}
