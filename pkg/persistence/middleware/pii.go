package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	ports.Store
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of state keys matching
// the patterns in saved runs: the final state and any mapping a handler returned.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.Store) ports.Store {
		return &piiMiddleware{Store: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) SaveRun(ctx context.Context, run *domain.Run) error {
	// Copy so the caller's run keeps the real values.
	cloned := *run
	cloned.FinalState = domain.State(m.maskMap(run.FinalState))

	cloned.Log = make([]domain.LogEntry, len(run.Log))
	for i, e := range run.Log {
		e.Output = m.mask(e.Output)
		cloned.Log[i] = e
	}

	return m.Store.SaveRun(ctx, &cloned)
}

// mask returns a copy of v with matching keys masked at any depth, through
// nested mappings and lists. Other values are returned as is.
func (m *piiMiddleware) mask(v any) any {
	switch val := v.(type) {
	case domain.State:
		return domain.State(m.maskMap(val))
	case map[string]any:
		return m.maskMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = m.mask(item)
		}
		return out
	default:
		return v
	}
}

func (m *piiMiddleware) maskMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if m.matches(k) {
			out[k] = Mask
			continue
		}
		out[k] = m.mask(v)
	}
	return out
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) Close() error { return closeNext(m.Store) }
