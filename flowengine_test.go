package flowengine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/flowengine"
	"github.com/aretw0/flowengine/pkg/adapters/memory"
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/registry"
	"github.com/aretw0/flowengine/pkg/tools/codereview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersBuiltinTools(t *testing.T) {
	eng := flowengine.New()
	defer eng.Close()

	_, ok := eng.Registry().Lookup(codereview.ExtractFunctions)
	assert.True(t, ok)

	bare := flowengine.New(flowengine.WithoutBuiltinTools())
	defer bare.Close()
	assert.Empty(t, bare.Registry().Names())
}

func TestEngine_Run_Conditionals(t *testing.T) {
	eng := flowengine.New(flowengine.WithoutBuiltinTools())
	defer eng.Close()

	eng.RegisterFunc("classify", func(_ context.Context, s domain.State) (any, error) {
		return map[string]any{"tier": "vip"}, nil
	})
	eng.RegisterFunc("welcome", func(_ context.Context, s domain.State) (any, error) {
		return map[string]any{"room": s["tier"]}, nil
	})

	def := domain.Definition{
		Nodes: map[string]domain.Node{
			"classify": {Handler: "classify"},
			"secret":   {Handler: "welcome"},
			"public":   {Handler: "welcome"},
		},
		Edges: map[string]string{
			domain.StartNode: "classify",
			"classify":       "public",
			"secret":         domain.EndNode,
			"public":         domain.EndNode,
		},
		ConditionalEdges: map[string]domain.ConditionGroup{
			"classify": {{Name: "vip", Field: "tier", Operator: "==", Value: "vip", Target: "secret"}},
		},
	}

	initial := domain.State{"user": "ana"}
	res := eng.Run(context.Background(), def, initial, 0)

	require.Len(t, res.Log, 2)
	assert.Equal(t, "secret", res.Log[1].Node)
	assert.Equal(t, "vip", res.FinalState["room"])
	assert.Equal(t, domain.State{"user": "ana"}, initial)
}

func TestEngine_DefaultMaxIterations(t *testing.T) {
	eng := flowengine.New(flowengine.WithoutBuiltinTools(), flowengine.WithMaxIterations(3))
	defer eng.Close()

	eng.RegisterFunc("noop", func(context.Context, domain.State) (any, error) { return nil, nil })
	def := domain.Definition{
		Nodes: map[string]domain.Node{"a": {Handler: "noop"}},
		Edges: map[string]string{domain.StartNode: "a", "a": "a"},
	}

	res := eng.Run(context.Background(), def, domain.State{}, 0)
	assert.True(t, res.Exhausted())
	assert.Len(t, res.Log, 3)
}

func TestEngine_Hooks(t *testing.T) {
	var steps, runs int
	eng := flowengine.New(
		flowengine.WithLifecycleHooks(domain.LifecycleHooks{
			OnStepEnd: func(context.Context, *domain.StepEvent) { steps++ },
		}),
		flowengine.WithLifecycleHooks(domain.LifecycleHooks{
			OnRunEnd: func(context.Context, *domain.RunEvent) { runs++ },
		}),
	)
	defer eng.Close()

	res := eng.Run(context.Background(), codereview.Workflow(), domain.State{"code": "def ok():\n    return 1\n"}, 10)
	assert.Equal(t, len(res.Log), steps)
	assert.Equal(t, 1, runs)
}

func TestEngine_StepTimeout(t *testing.T) {
	eng := flowengine.New(flowengine.WithoutBuiltinTools(), flowengine.WithStepTimeout(10*time.Millisecond))
	release := make(chan struct{})
	defer func() {
		close(release)
		eng.Close()
	}()

	eng.RegisterFunc("slow", func(context.Context, domain.State) (any, error) {
		<-release
		return nil, nil
	})
	def := domain.Definition{
		Nodes: map[string]domain.Node{"a": {Handler: "slow"}},
		Edges: map[string]string{domain.StartNode: "a"},
	}

	res := eng.Run(context.Background(), def, domain.State{}, 0)
	require.True(t, res.Failed())
	assert.Contains(t, res.Log[0].Error, "timed out")
}

func TestEngine_Validate(t *testing.T) {
	eng := flowengine.New()
	defer eng.Close()

	assert.Empty(t, eng.Validate(codereview.Workflow()))
	assert.NotEmpty(t, eng.Validate(domain.Definition{}))
}

func TestEngine_ServiceSharesRegistryAndStore(t *testing.T) {
	store := memory.NewStore()
	reg := registry.New()
	reg.RegisterFunc("boom", func(context.Context, domain.State) (any, error) {
		return nil, errors.New("boom")
	})

	eng := flowengine.New(flowengine.WithStore(store), flowengine.WithRegistry(reg))
	defer eng.Close()

	ctx := context.Background()
	g, _, err := eng.Service().CreateGraph(ctx, "failing", domain.Definition{
		Nodes: map[string]domain.Node{"a": {Handler: "boom"}},
		Edges: map[string]string{domain.StartNode: "a"},
	}, true)
	require.NoError(t, err)

	run, err := eng.Service().RunGraph(ctx, g.ID, nil, 0)
	require.NoError(t, err)
	require.Len(t, run.Log, 1)
	assert.Equal(t, "boom", run.Log[0].Error)

	stored, err := store.LoadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)

	// Builtins land in the injected registry too.
	_, ok := reg.Lookup(codereview.RefineCode)
	assert.True(t, ok)
}

func TestEngine_CloseIsIdempotent(t *testing.T) {
	eng := flowengine.New()
	assert.NoError(t, eng.Close())
	assert.NoError(t, eng.Close())
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, flowengine.Version)
}
