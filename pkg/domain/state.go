package domain

// State is the key/value bag threaded through a run.
// Values are JSON-shaped: numbers, strings, booleans, or nested maps and slices.
type State map[string]any

// Clone returns a shallow copy of the state. A nil state clones to an empty one.
func (s State) Clone() State {
	next := make(State, len(s))
	for k, v := range s {
		next[k] = v
	}
	return next
}

// Merge applies update on top of the state (last write wins).
func (s State) Merge(update map[string]any) {
	for k, v := range update {
		s[k] = v
	}
}

// AsUpdate reports whether a handler result is a key/value mapping that should be
// merged into the state, and returns it.
func AsUpdate(result any) (map[string]any, bool) {
	switch v := result.(type) {
	case State:
		return v, true
	case map[string]any:
		return v, true
	default:
		return nil, false
	}
}
