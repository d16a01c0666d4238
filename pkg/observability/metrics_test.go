package observability_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/flowengine/internal/runtime"
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/observability"
	"github.com/aretw0/flowengine/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	handlers := registry.New()
	handlers.RegisterFunc("ok", func(context.Context, domain.State) (any, error) { return nil, nil })
	handlers.RegisterFunc("bad", func(context.Context, domain.State) (any, error) { return nil, errors.New("x") })

	engine := runtime.NewEngine(handlers, runtime.WithLifecycleHooks(metrics.Hooks()))

	completes := &domain.Definition{
		Nodes: map[string]domain.Node{"a": {Handler: "ok"}, "b": {}},
		Edges: map[string]string{domain.StartNode: "a", "a": "b"},
	}
	fails := &domain.Definition{
		Nodes: map[string]domain.Node{"a": {Handler: "bad"}},
		Edges: map[string]string{domain.StartNode: "a"},
	}
	loops := &domain.Definition{
		Nodes: map[string]domain.Node{"a": {Handler: "ok"}},
		Edges: map[string]string{domain.StartNode: "a", "a": "a"},
	}

	ctx := context.Background()
	engine.Run(ctx, "1", completes, nil, 10)
	engine.Run(ctx, "2", fails, nil, 10)
	engine.Run(ctx, "3", loops, nil, 3)

	expected := `
# HELP flowengine_runs_total Total number of finished runs by outcome
# TYPE flowengine_runs_total counter
flowengine_runs_total{outcome="completed"} 1
flowengine_runs_total{outcome="exhausted"} 1
flowengine_runs_total{outcome="failed"} 1
`
	require.NoError(t, testutil.CollectAndCompare(reg, strings.NewReader(expected), "flowengine_runs_total"))

	steps := `
# HELP flowengine_steps_total Total number of visited nodes by handler and status
# TYPE flowengine_steps_total counter
flowengine_steps_total{handler="bad",status="error"} 1
flowengine_steps_total{handler="none",status="skipped"} 1
flowengine_steps_total{handler="ok",status="success"} 3
`
	require.NoError(t, testutil.CollectAndCompare(reg, strings.NewReader(steps), "flowengine_steps_total"))

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "flowengine_run_iterations"))
}

func TestRegisterPoolGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	pool := runtime.NewPool(1)
	defer pool.Shutdown()

	observability.RegisterPoolGauge(reg, func() float64 {
		return float64(pool.Metrics().Active)
	})

	expected := `
# HELP flowengine_active_handlers Handlers currently executing on the dispatcher pool
# TYPE flowengine_active_handlers gauge
flowengine_active_handlers 0
`
	assert.NoError(t, testutil.CollectAndCompare(reg, strings.NewReader(expected), "flowengine_active_handlers"))
}
