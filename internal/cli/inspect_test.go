package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	t.Run("Warnings pass", func(t *testing.T) {
		path := writeFile(t, dir, "warn.yaml", "nodes:\n  a: {}\nedges:\n  START: a\n")
		var out bytes.Buffer
		require.NoError(t, Validate(path, &out))
		assert.Contains(t, out.String(), "warning: a:")
	})

	t.Run("Errors fail", func(t *testing.T) {
		path := writeFile(t, dir, "bad.json", `{"nodes": {"a": {"handler": "x"}}, "edges": {}}`)
		var out bytes.Buffer
		err := Validate(path, &out)
		assert.True(t, errors.Is(err, domain.ErrInvalidGraph))
		assert.Contains(t, out.String(), "error: START:")
	})

	t.Run("Builtin has only routing warnings", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Validate(BuiltinCodeReview, &out))
		assert.NotContains(t, out.String(), "error:")
	})
}

func TestMermaid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "counter.yaml", counterYAML)

	var out bytes.Buffer
	require.NoError(t, Mermaid(path, &out))
	assert.Contains(t, out.String(), `inc -- "1. count >= 3" --> END_`)
	assert.Contains(t, out.String(), `inc -. "default" .-> inc`)
}
