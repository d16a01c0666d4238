package domain_test

import (
	"testing"

	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestState_CloneIsolation(t *testing.T) {
	original := domain.State{"count": 1}
	clone := original.Clone()
	clone["count"] = 2
	clone["extra"] = true

	assert.Equal(t, 1, original["count"])
	assert.NotContains(t, original, "extra")

	var empty domain.State
	assert.NotNil(t, empty.Clone())
}

func TestState_MergeLastWriteWins(t *testing.T) {
	s := domain.State{"a": 1, "b": "keep"}
	s.Merge(map[string]any{"a": 2, "c": []string{"x"}})

	assert.Equal(t, 2, s["a"])
	assert.Equal(t, "keep", s["b"])
	assert.Equal(t, []string{"x"}, s["c"])
}

func TestAsUpdate(t *testing.T) {
	update, ok := domain.AsUpdate(map[string]any{"k": "v"})
	assert.True(t, ok)
	assert.Equal(t, "v", update["k"])

	_, ok = domain.AsUpdate(domain.State{"k": "v"})
	assert.True(t, ok)

	_, ok = domain.AsUpdate("text")
	assert.False(t, ok)
	_, ok = domain.AsUpdate(nil)
	assert.False(t, ok)
}

func TestRunResult_Flags(t *testing.T) {
	r := &domain.RunResult{}
	assert.False(t, r.Failed())
	assert.False(t, r.Exhausted())

	r.Log = []domain.LogEntry{{Status: domain.StatusError}}
	assert.True(t, r.Failed())

	r.Log = []domain.LogEntry{{Warning: domain.MaxIterationsWarning}}
	assert.True(t, r.Exhausted())
}
