package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/flowengine/internal/runtime"
	"github.com/aretw0/flowengine/internal/validator"
	"github.com/aretw0/flowengine/pkg/adapters/memory"
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/registry"
	"github.com/aretw0/flowengine/pkg/service"
	"github.com/aretw0/flowengine/pkg/tools/codereview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	reg := registry.New()
	codereview.Register(reg)
	reg.RegisterFunc("inc", func(_ context.Context, s domain.State) (any, error) {
		n, _ := s["count"].(int)
		return map[string]any{"count": n + 1}, nil
	})

	n := 0
	ids := service.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("0000000%d-aaaa-bbbb-cccc-dddddddddddd", n)
	})
	return service.New(memory.NewStore(), runtime.NewEngine(reg), append([]service.Option{ids}, opts...)...)
}

func counter() domain.Definition {
	return domain.Definition{
		Nodes: map[string]domain.Node{"a": {Handler: "inc"}},
		Edges: map[string]string{domain.StartNode: "a", "a": domain.EndNode},
	}
}

func TestService_CreateGraph_DefaultName(t *testing.T) {
	svc := newService(t)

	graph, issues, err := svc.CreateGraph(context.Background(), "", counter(), false)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, "00000001-aaaa-bbbb-cccc-dddddddddddd", graph.ID)
	assert.Equal(t, "Graph-00000001", graph.Name)

	stored, err := svc.GetGraph(context.Background(), graph.ID)
	require.NoError(t, err)
	assert.Equal(t, graph.Definition, stored.Definition)
}

func TestService_CreateGraph_Strict(t *testing.T) {
	svc := newService(t)
	bad := domain.Definition{Nodes: map[string]domain.Node{"a": {Handler: "inc"}}}

	_, issues, err := svc.CreateGraph(context.Background(), "bad", bad, true)
	assert.ErrorIs(t, err, domain.ErrInvalidGraph)
	var verr *validator.Error
	assert.True(t, errors.As(err, &verr))
	assert.True(t, validator.HasErrors(issues))

	graphs, err := svc.ListGraphs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, graphs)

	// Lenient mode stores it anyway; the engine treats it as a no-op.
	graph, issues, err := svc.CreateGraph(context.Background(), "bad", bad, false)
	require.NoError(t, err)
	assert.NotEmpty(t, issues)
	assert.Equal(t, "bad", graph.Name)
}

func TestService_RunGraph(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(t, service.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	ctx := context.Background()

	graph, _, err := svc.CreateGraph(ctx, "counter", counter(), true)
	require.NoError(t, err)

	run, err := svc.RunGraph(ctx, graph.ID, domain.State{"count": 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, graph.ID, run.GraphID)
	assert.Equal(t, 1, run.FinalState["count"])
	require.Len(t, run.Log, 1)
	assert.True(t, run.FinishedAt.After(run.StartedAt))

	stored, err := svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)

	runs, err := svc.ListRuns(ctx, graph.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestService_RunGraph_NotFound(t *testing.T) {
	svc := newService(t)

	_, err := svc.RunGraph(context.Background(), "nope", nil, 0)
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)

	_, err = svc.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	_, err = svc.ListRuns(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestService_MaxIterationsDefault(t *testing.T) {
	svc := newService(t, service.WithMaxIterations(4))
	ctx := context.Background()

	loop := domain.Definition{
		Nodes: map[string]domain.Node{"a": {Handler: "inc"}},
		Edges: map[string]string{domain.StartNode: "a", "a": "a"},
	}
	graph, _, err := svc.CreateGraph(ctx, "loop", loop, true)
	require.NoError(t, err)

	run, err := svc.RunGraph(ctx, graph.ID, domain.State{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, run.FinalState["count"])
	assert.True(t, run.Log[len(run.Log)-1].IsWarning())

	run, err = svc.RunGraph(ctx, graph.ID, domain.State{}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, run.FinalState["count"])
}

func TestService_CodeReviewGraph(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	graph, err := svc.CreateCodeReviewGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, codereview.WorkflowName, graph.Name)

	run, err := svc.RunGraph(ctx, graph.ID, domain.State{"code": "def ok():\n    return 1\n"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, run.FinalState["quality_score"])
}

func TestService_RunGraph_InputSchema(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	def := counter()
	def.InputSchema = map[string]string{"count": "int", "label": "string?"}
	graph, _, err := svc.CreateGraph(ctx, "typed", def, true)
	require.NoError(t, err)

	_, err = svc.RunGraph(ctx, graph.ID, domain.State{"count": "zero"}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorContains(t, err, "count: expected int")

	_, err = svc.RunGraph(ctx, graph.ID, nil, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	runs, err := svc.ListRuns(ctx, graph.ID)
	require.NoError(t, err)
	assert.Empty(t, runs, "rejected input must not record a run")

	run, err := svc.RunGraph(ctx, graph.ID, domain.State{"count": 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, run.FinalState["count"])
}

func TestService_CreateGraph_BadInputSchema(t *testing.T) {
	svc := newService(t)
	def := counter()
	def.InputSchema = map[string]string{"count": "number"}

	_, _, err := svc.CreateGraph(context.Background(), "bad", def, true)
	var verr *validator.Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Issues[0].Message, "input_schema count")
}

func TestCheckInput(t *testing.T) {
	def := &domain.Definition{InputSchema: map[string]string{"n": "bogus"}}
	assert.ErrorIs(t, service.CheckInput(def, domain.State{}), domain.ErrInvalidGraph)

	assert.NoError(t, service.CheckInput(&domain.Definition{}, nil))
}
