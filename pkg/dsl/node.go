package dsl

import "github.com/aretw0/flowengine/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node and its outgoing edges.
type NodeBuilder struct {
	id       string
	declared bool
	node     domain.Node
	next     string
	branches domain.ConditionGroup
	builder  *Builder
}

// Do sets the handler invoked when the node is visited.
func (n *NodeBuilder) Do(handler string) *NodeBuilder {
	n.node.Handler = handler
	return n
}

// Describe sets the node description.
func (n *NodeBuilder) Describe(text string) *NodeBuilder {
	n.node.Description = text
	return n
}

// Go sets the unconditional edge, used when no branch matches.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.next = target
	return n
}

// Branch appends a conditional edge. Branches are evaluated in the order they
// are added; the first match wins.
func (n *NodeBuilder) Branch(name, field, operator string, value any, target string) *NodeBuilder {
	n.branches = append(n.branches, domain.Condition{
		Name:     name,
		Field:    field,
		Operator: operator,
		Value:    value,
		Target:   target,
	})
	return n
}

// Terminal routes the node to END.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.next = domain.EndNode
	return n
}

// Build returns the underlying domain.Node.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
