package schema

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError is a single key that failed the check.
type FieldError struct {
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Reason)
}

// Error lists every failing key, ordered by key.
type Error struct {
	Fields []*FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "input does not match schema: " + strings.Join(msgs, "; ")
}

// FieldErrors returns the failing keys when err wraps an *Error.
func FieldErrors(err error) []*FieldError {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Fields
	}
	return nil
}
