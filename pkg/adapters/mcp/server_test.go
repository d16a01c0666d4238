package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/flowengine/internal/runtime"
	"github.com/aretw0/flowengine/pkg/adapters/memory"
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/registry"
	"github.com/aretw0/flowengine/pkg/service"
	"github.com/aretw0/flowengine/pkg/tools/codereview"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := registry.New()
	codereview.Register(reg)
	reg.RegisterFunc("double", func(_ context.Context, s domain.State) (any, error) {
		n, _ := s["n"].(float64)
		return map[string]any{"n": n * 2}, nil
	})
	return NewServer(service.New(memory.NewStore(), runtime.NewEngine(reg)))
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	require.False(t, result.IsError, extractText(t, result))
	require.NoError(t, json.Unmarshal([]byte(extractText(t, result)), target))
}

var doubler = map[string]any{
	"nodes": map[string]any{"double": map[string]any{"function": "double"}},
	"edges": map[string]any{"START": "double", "double": "END"},
}

func TestCreateAndRunGraph(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleCreateGraph(ctx, buildRequest(ToolCreateGraph, map[string]any{
		"name":       "doubler",
		"definition": doubler,
	}))
	require.NoError(t, err)
	var created struct {
		GraphID string `json:"graph_id"`
		Name    string `json:"name"`
	}
	unmarshalResult(t, result, &created)
	assert.Equal(t, "doubler", created.Name)

	result, err = s.handleRunGraph(ctx, buildRequest(ToolRunGraph, map[string]any{
		"graph_id":      created.GraphID,
		"initial_state": map[string]any{"n": 21},
	}))
	require.NoError(t, err)
	var run domain.Run
	unmarshalResult(t, result, &run)
	assert.Equal(t, float64(42), run.FinalState["n"])
	require.Len(t, run.Log, 1)
	assert.Equal(t, domain.StatusSuccess, run.Log[0].Status)

	result, err = s.handleGetRun(ctx, buildRequest(ToolGetRun, map[string]any{"run_id": run.ID}))
	require.NoError(t, err)
	var stored domain.Run
	unmarshalResult(t, result, &stored)
	assert.Equal(t, run.ID, stored.ID)
	assert.Equal(t, created.GraphID, stored.GraphID)
}

func TestCreateGraph_Invalid(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleCreateGraph(ctx, buildRequest(ToolCreateGraph, map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleCreateGraph(ctx, buildRequest(ToolCreateGraph, map[string]any{
		"definition": map[string]any{"nodes": map[string]any{}, "edges": map[string]any{}},
		"strict":     true,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "invalid graph")
}

func TestRunGraph_Errors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleRunGraph(ctx, buildRequest(ToolRunGraph, map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "graph_id is required", extractText(t, result))

	result, err = s.handleRunGraph(ctx, buildRequest(ToolRunGraph, map[string]any{"graph_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "graph not found")

	result, err = s.handleGetRun(ctx, buildRequest(ToolGetRun, map[string]any{"run_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "run not found")
}

func TestCodeReviewAndListGraphs(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleCreateCodeReview(ctx, buildRequest(ToolCreateCodeReviewGraph, nil))
	require.NoError(t, err)
	var created struct {
		GraphID string `json:"graph_id"`
	}
	unmarshalResult(t, result, &created)

	result, err = s.handleRunGraph(ctx, buildRequest(ToolRunGraph, map[string]any{
		"graph_id":      created.GraphID,
		"initial_state": map[string]any{"code": "def add(a, b):\n    return a + b\n"},
	}))
	require.NoError(t, err)
	var run domain.Run
	unmarshalResult(t, result, &run)
	assert.Equal(t, float64(100), run.FinalState["quality_score"])

	result, err = s.handleListGraphs(ctx, buildRequest(ToolListGraphs, nil))
	require.NoError(t, err)
	var listed struct {
		Graphs []domain.Graph `json:"graphs"`
	}
	unmarshalResult(t, result, &listed)
	require.Len(t, listed.Graphs, 1)
	assert.Equal(t, codereview.WorkflowName, listed.Graphs[0].Name)
}
