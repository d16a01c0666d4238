package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/flowengine"
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterYAML = `name: counter
nodes:
  inc:
    handler: inc
edges:
  START: inc
  inc: inc
conditional_edges:
  inc:
    done:
      field: count
      operator: ">="
      value: 3
      target: END
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newCounterEngine(t *testing.T) *flowengine.Engine {
	t.Helper()
	eng := flowengine.New()
	t.Cleanup(func() { eng.Close() })
	eng.RegisterFunc("inc", func(_ context.Context, s domain.State) (any, error) {
		n, _ := s["count"].(int)
		return map[string]any{"count": n + 1}, nil
	})
	return eng
}

func TestRun_Report(t *testing.T) {
	dir := t.TempDir()
	graphPath := writeFile(t, dir, "counter.yaml", counterYAML)
	statePath := writeFile(t, dir, "state.yaml", "count: 0\nowner: ana\n")

	var out bytes.Buffer
	res, err := Run(context.Background(), newCounterEngine(t), RunOptions{
		GraphPath: graphPath,
		StatePath: statePath,
		State:     `{"owner": "bo"}`,
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, 3, res.FinalState["count"])
	assert.Equal(t, "bo", res.FinalState["owner"])
	assert.Contains(t, out.String(), "# counter")
	assert.Contains(t, out.String(), "**Outcome:** completed")
}

func TestRun_JSON(t *testing.T) {
	dir := t.TempDir()
	graphPath := writeFile(t, dir, "counter.yaml", counterYAML)

	var out bytes.Buffer
	_, err := Run(context.Background(), newCounterEngine(t), RunOptions{
		GraphPath:     graphPath,
		State:         "count: 0",
		MaxIterations: 2,
		JSON:          true,
	}, &out)
	require.NoError(t, err)

	var decoded domain.RunResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded.Log, 2)
	assert.Equal(t, domain.MaxIterationsWarning, decoded.Log[1].Warning)
}

func TestRun_CodeReviewBuiltin(t *testing.T) {
	dir := t.TempDir()
	codePath := writeFile(t, dir, "add.py", "def add(a, b):\n    return a + b\n")

	rendered := false
	var out bytes.Buffer
	res, err := Run(context.Background(), newCounterEngine(t), RunOptions{
		GraphPath: BuiltinCodeReview,
		CodePath:  codePath,
		Render: func(md string) (string, error) {
			rendered = true
			return strings.ToUpper(md), nil
		},
	}, &out)
	require.NoError(t, err)

	assert.True(t, rendered)
	assert.Equal(t, 100, res.FinalState["quality_score"])
	assert.Contains(t, out.String(), "# CODE REVIEW WORKFLOW")
}

func TestRun_Errors(t *testing.T) {
	eng := newCounterEngine(t)
	dir := t.TempDir()
	graphPath := writeFile(t, dir, "counter.yaml", counterYAML)

	_, err := Run(context.Background(), eng, RunOptions{}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = Run(context.Background(), eng, RunOptions{GraphPath: filepath.Join(dir, "missing.yaml")}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = Run(context.Background(), eng, RunOptions{GraphPath: graphPath, State: "[1, 2"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "--state")

	_, err = Run(context.Background(), eng, RunOptions{GraphPath: graphPath, CodePath: filepath.Join(dir, "nope.py")}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "code file")
}

func TestRun_InputSchema(t *testing.T) {
	dir := t.TempDir()
	graphPath := writeFile(t, dir, "counter.yaml", counterYAML+"input_schema:\n  count: int\n")
	eng := newCounterEngine(t)

	_, err := Run(context.Background(), eng, RunOptions{GraphPath: graphPath, State: "count: zero"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	res, err := Run(context.Background(), eng, RunOptions{GraphPath: graphPath, State: "count: 1"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.FinalState["count"])
}
