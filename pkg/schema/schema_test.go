package schema_test

import (
	"testing"

	"github.com/aretw0/flowengine/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		wantErr bool
	}{
		{"string", "string", false},
		{"int", "int", false},
		{"float", "float", false},
		{"bool", "bool", false},
		{"object", "object", false},
		{"any", "any", false},
		{"[int]", "[int]", false},
		{"[[string]]", "[[string]]", false},
		{" bool ", "bool", false},
		{"uuid", "", true},
		{"[]", "", true},
		{"[nope]", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			typ, err := schema.ParseType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, typ.Name())
		})
	}
}

func TestTypes_Validate(t *testing.T) {
	tests := []struct {
		typ   string
		value any
		ok    bool
	}{
		{"string", "x", true},
		{"string", 1, false},
		{"int", 3, true},
		{"int", float64(3), true},
		{"int", 3.5, false},
		{"int", "3", false},
		{"float", 3.5, true},
		{"float", 3, true},
		{"float", "3.5", false},
		{"bool", true, true},
		{"bool", "true", false},
		{"object", map[string]any{"a": 1}, true},
		{"object", map[string]int{}, true},
		{"object", nil, false},
		{"object", []any{}, false},
		{"any", nil, true},
		{"[string]", []any{"a", "b"}, true},
		{"[string]", []string{"a"}, true},
		{"[string]", []any{"a", 1}, false},
		{"[int]", "1,2", false},
	}
	for _, tt := range tests {
		typ, err := schema.ParseType(tt.typ)
		require.NoError(t, err)
		err = typ.Validate(tt.value)
		if tt.ok {
			assert.NoError(t, err, "%s %#v", tt.typ, tt.value)
		} else {
			assert.Error(t, err, "%s %#v", tt.typ, tt.value)
		}
	}
}

func TestSchema_Check(t *testing.T) {
	s, err := schema.Parse(map[string]string{
		"code":      "string",
		"iteration": "int?",
		"tags":      "[string]?",
	})
	require.NoError(t, err)

	assert.NoError(t, s.Check(map[string]any{"code": "x", "extra": true}))
	assert.NoError(t, s.Check(map[string]any{"code": "x", "iteration": float64(2), "tags": nil}))

	err = s.Check(map[string]any{"iteration": "two", "tags": []any{1}})
	require.Error(t, err)

	fields := schema.FieldErrors(err)
	require.Len(t, fields, 3)
	assert.Equal(t, "code", fields[0].Key)
	assert.Equal(t, "required", fields[0].Reason)
	assert.Equal(t, "iteration", fields[1].Key)
	assert.Equal(t, "tags", fields[2].Key)
	assert.Contains(t, err.Error(), "input does not match schema")
}

func TestParse_Errors(t *testing.T) {
	_, err := schema.Parse(map[string]string{"a": "uuid", "b": "[x]?", "c": "int"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input_schema a")
	assert.Contains(t, err.Error(), "input_schema b")
	assert.NotContains(t, err.Error(), "input_schema c")

	assert.Nil(t, schema.FieldErrors(err))
}

func TestEmptySchema(t *testing.T) {
	s, err := schema.Parse(nil)
	require.NoError(t, err)
	assert.NoError(t, s.Check(nil))
}
