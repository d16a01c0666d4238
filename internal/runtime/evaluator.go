package runtime

import (
	"cmp"
	"encoding/json"
	"reflect"

	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/spf13/cast"
)

// Evaluate compares state[field] against literal using one of the six relational
// operators. A missing field or an unknown operator evaluates to false.
//
// Numbers of any kind compare numerically, strings lexicographically. Other values
// only support == and != (deep equality). Across types, == is false, != is true and
// ordering operators are false.
func Evaluate(state domain.State, field, operator string, literal any) bool {
	value, ok := state[field]
	if !ok || !domain.IsOperator(operator) {
		return false
	}

	if a, ok := toNumber(value); ok {
		if b, ok := toNumber(literal); ok {
			return compareOrdered(a, b, operator)
		}
		return mismatch(operator)
	}

	if a, ok := value.(string); ok {
		if b, ok := literal.(string); ok {
			return compareOrdered(a, b, operator)
		}
		return mismatch(operator)
	}

	switch operator {
	case domain.OpEqual:
		return reflect.DeepEqual(value, literal)
	case domain.OpNotEqual:
		return !reflect.DeepEqual(value, literal)
	}
	return false
}

func compareOrdered[T cmp.Ordered](a, b T, operator string) bool {
	switch operator {
	case domain.OpGreaterEqual:
		return a >= b
	case domain.OpGreater:
		return a > b
	case domain.OpLessEqual:
		return a <= b
	case domain.OpLess:
		return a < b
	case domain.OpEqual:
		return a == b
	case domain.OpNotEqual:
		return a != b
	}
	return false
}

func mismatch(operator string) bool {
	return operator == domain.OpNotEqual
}

// toNumber accepts Go numeric kinds and json.Number. Strings and booleans are not numbers here.
func toNumber(v any) (float64, bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		f, err := cast.ToFloat64E(v)
		return f, err == nil
	}
	return 0, false
}
