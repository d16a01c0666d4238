package domain

import (
	"sort"
	"time"
)

// Definition is the declarative part of a graph: what the engine interprets.
type Definition struct {
	Nodes            map[string]Node           `json:"nodes" yaml:"nodes"`
	Edges            map[string]string         `json:"edges" yaml:"edges"`
	ConditionalEdges map[string]ConditionGroup `json:"conditional_edges,omitempty" yaml:"conditional_edges,omitempty"`
	// InputSchema declares the type of initial state keys, e.g. "int" or "[string]?".
	InputSchema map[string]string `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
}

// EntryNode returns the node START leads to, if any.
func (d *Definition) EntryNode() (string, bool) {
	target, ok := d.Edges[StartNode]
	if !ok || target == "" {
		return "", false
	}
	return target, true
}

// Graph is a stored definition with its identity.
type Graph struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Definition
}

// Run is the stored record of one execution of a graph.
type Run struct {
	ID         string     `json:"run_id"`
	GraphID    string     `json:"graph_id"`
	FinalState State      `json:"final_state"`
	Log        []LogEntry `json:"execution_log"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// Clone returns a copy of the definition whose maps and condition groups can be
// modified without affecting d.
func (d Definition) Clone() Definition {
	out := Definition{
		Nodes: make(map[string]Node, len(d.Nodes)),
		Edges: make(map[string]string, len(d.Edges)),
	}
	for k, v := range d.Nodes {
		out.Nodes[k] = v
	}
	for k, v := range d.Edges {
		out.Edges[k] = v
	}
	if d.InputSchema != nil {
		out.InputSchema = make(map[string]string, len(d.InputSchema))
		for k, v := range d.InputSchema {
			out.InputSchema[k] = v
		}
	}
	if d.ConditionalEdges != nil {
		out.ConditionalEdges = make(map[string]ConditionGroup, len(d.ConditionalEdges))
		for k, group := range d.ConditionalEdges {
			out.ConditionalEdges[k] = append(ConditionGroup(nil), group...)
		}
	}
	return out
}

// SortGraphs orders graphs by creation time, then ID.
func SortGraphs(graphs []*Graph) {
	sort.SliceStable(graphs, func(i, j int) bool {
		a, b := graphs[i], graphs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// SortRuns orders runs by start time, then ID.
func SortRuns(runs []*Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		a, b := runs[i], runs[j]
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.Before(b.StartedAt)
		}
		return a.ID < b.ID
	})
}
