package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/schema"
)

// Severity classifies an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single finding about a graph definition.
type Issue struct {
	Severity Severity `json:"severity"`
	Node     string   `json:"node,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Node == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Node, i.Message)
}

// Error carries the error-severity issues of a rejected definition.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		msgs = append(msgs, i.String())
	}
	return fmt.Sprintf("%s: %s", domain.ErrInvalidGraph, strings.Join(msgs, "; "))
}

func (e *Error) Unwrap() error {
	return domain.ErrInvalidGraph
}

// Validate runs static checks over def. It never executes anything; the engine
// runs invalid graphs just the same. Issues are ordered by node name.
func Validate(def *domain.Definition) []Issue {
	var issues []Issue
	add := func(sev Severity, node, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Node: node, Message: fmt.Sprintf(format, args...)})
	}

	if _, ok := def.EntryNode(); !ok {
		add(SeverityError, domain.StartNode, "no entry edge from START; the graph is a no-op")
	}

	for _, id := range sortedKeys(def.Nodes) {
		if id == domain.StartNode || id == domain.EndNode {
			add(SeverityError, id, "reserved name used as a node")
			continue
		}
		if def.Nodes[id].Handler == "" {
			add(SeverityWarning, id, "node has no handler and will be skipped")
		}
	}

	known := func(target string) bool {
		if target == domain.EndNode {
			return true
		}
		_, ok := def.Nodes[target]
		return ok
	}

	for _, src := range sortedKeys(def.Edges) {
		target := def.Edges[src]
		if target != "" && !known(target) {
			add(SeverityWarning, src, "edge target %q is not a declared node", target)
		}
	}

	for _, src := range sortedKeys(def.ConditionalEdges) {
		for i, cond := range def.ConditionalEdges[src] {
			label := cond.Name
			if label == "" {
				label = fmt.Sprintf("#%d", i)
			}
			if !domain.IsOperator(cond.Operator) {
				add(SeverityError, src, "condition %s: unsupported operator %q", label, cond.Operator)
			}
			if cond.Field == "" {
				add(SeverityError, src, "condition %s: empty field", label)
			}
			switch {
			case cond.Target == "":
				add(SeverityError, src, "condition %s: empty target", label)
			case !known(cond.Target):
				add(SeverityWarning, src, "condition %s: target %q is not a declared node", label, cond.Target)
			}
		}
	}

	for _, key := range sortedKeys(def.InputSchema) {
		if _, err := schema.ParseField(def.InputSchema[key]); err != nil {
			add(SeverityError, "", "input_schema %s: %v", key, err)
		}
	}

	reachable := reach(def)
	for _, id := range sortedKeys(def.Nodes) {
		if id == domain.StartNode || id == domain.EndNode {
			continue
		}
		if !reachable[id] {
			add(SeverityWarning, id, "node is not reachable from START")
		}
	}

	sort.SliceStable(issues, func(a, b int) bool {
		return issues[a].Node < issues[b].Node
	})
	return issues
}

// Check returns an *Error when any issue has error severity.
func Check(def *domain.Definition) error {
	var errs []Issue
	for _, i := range Validate(def) {
		if i.Severity == SeverityError {
			errs = append(errs, i)
		}
	}
	if len(errs) > 0 {
		return &Error{Issues: errs}
	}
	return nil
}

// HasErrors reports whether issues contains an error-severity issue.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// reach walks plain and conditional edges breadth-first from START.
func reach(def *domain.Definition) map[string]bool {
	visited := map[string]bool{domain.StartNode: true}
	queue := []string{domain.StartNode}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		var targets []string
		if t, ok := def.Edges[current]; ok {
			targets = append(targets, t)
		}
		for _, cond := range def.ConditionalEdges[current] {
			targets = append(targets, cond.Target)
		}

		for _, t := range targets {
			if t == "" || t == domain.EndNode || visited[t] {
				continue
			}
			visited[t] = true
			queue = append(queue, t)
		}
	}
	return visited
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
