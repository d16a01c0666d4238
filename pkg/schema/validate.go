package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Field is one declared key.
type Field struct {
	Type     Type
	Optional bool
}

// Schema maps state keys to their declared fields.
type Schema map[string]Field

// ParseField parses a type string with an optional "?" suffix.
func ParseField(typeStr string) (Field, error) {
	typeStr = strings.TrimSpace(typeStr)
	optional := strings.HasSuffix(typeStr, "?")
	t, err := ParseType(strings.TrimSuffix(typeStr, "?"))
	if err != nil {
		return Field{}, err
	}
	return Field{Type: t, Optional: optional}, nil
}

// Parse builds a schema from key to type-string declarations. Every invalid
// declaration is reported.
func Parse(decl map[string]string) (Schema, error) {
	s := make(Schema, len(decl))
	var errs []error
	for _, key := range sortedKeys(decl) {
		f, err := ParseField(decl[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("input_schema %s: %w", key, err))
			continue
		}
		s[key] = f
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// Check validates data against the schema. Keys not declared are allowed.
func (s Schema) Check(data map[string]any) error {
	var fields []*FieldError
	for _, key := range sortedKeys(s) {
		f := s[key]
		value, ok := data[key]
		if !ok {
			if !f.Optional {
				fields = append(fields, &FieldError{Key: key, Reason: "required"})
			}
			continue
		}
		if value == nil && f.Optional {
			continue
		}
		if err := f.Type.Validate(value); err != nil {
			fields = append(fields, &FieldError{Key: key, Reason: err.Error()})
		}
	}
	if len(fields) > 0 {
		return &Error{Fields: fields}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
