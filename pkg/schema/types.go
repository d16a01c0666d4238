package schema

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Type validates a single value.
type Type interface {
	// Name returns the type string it was parsed from (e.g. "string", "[int]").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

type stringType struct{}

func (stringType) Name() string { return "string" }

func (stringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

type intType struct{}

func (intType) Name() string { return "int" }

func (intType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case float64:
		// JSON numbers decode as float64.
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return nil
		}
		return fmt.Errorf("expected int, got float %v", v)
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
}

type floatType struct{}

func (floatType) Name() string { return "float" }

func (floatType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
}

type boolType struct{}

func (boolType) Name() string { return "bool" }

func (boolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

type objectType struct{}

func (objectType) Name() string { return "object" }

func (objectType) Validate(value any) error {
	if value != nil && reflect.TypeOf(value).Kind() == reflect.Map {
		return nil
	}
	return fmt.Errorf("expected object, got %T", value)
}

type anyType struct{}

func (anyType) Name() string { return "any" }

func (anyType) Validate(any) error { return nil }

type listType struct {
	elem Type
}

func (t listType) Name() string { return "[" + t.elem.Name() + "]" }

func (t listType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected list, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// ParseType converts a type string to a Type.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']' {
		elem, err := ParseType(s[1 : len(s)-1])
		if err != nil {
			return nil, err
		}
		return listType{elem: elem}, nil
	}

	switch s {
	case "string":
		return stringType{}, nil
	case "int":
		return intType{}, nil
	case "float":
		return floatType{}, nil
	case "bool":
		return boolType{}, nil
	case "object":
		return objectType{}, nil
	case "any":
		return anyType{}, nil
	default:
		return nil, fmt.Errorf("unsupported type %q", s)
	}
}
