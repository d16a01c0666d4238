package dsl

import (
	"github.com/aretw0/flowengine/internal/validator"
	"github.com/aretw0/flowengine/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	entry   string
	nodes   map[string]*NodeBuilder
	routers map[string]*NodeBuilder
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes:   make(map[string]*NodeBuilder),
		routers: make(map[string]*NodeBuilder),
	}
}

// Start sets the entry node (the target of START).
func (b *Builder) Start(target string) *Builder {
	b.entry = target
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{id: id, declared: true, builder: b}
	b.nodes[id] = nb
	return nb
}

// Route creates a routing-only point: it has edges but is not declared as a
// node, so the engine skips it and only evaluates its conditions.
func (b *Builder) Route(id string) *NodeBuilder {
	if nb, ok := b.routers[id]; ok {
		return nb
	}
	nb := &NodeBuilder{id: id, builder: b}
	b.routers[id] = nb
	return nb
}

// Definition assembles the graph without validating it.
func (b *Builder) Definition() domain.Definition {
	def := domain.Definition{
		Nodes: make(map[string]domain.Node, len(b.nodes)),
		Edges: make(map[string]string),
	}
	if b.entry != "" {
		def.Edges[domain.StartNode] = b.entry
	}

	collect := func(nb *NodeBuilder) {
		if nb.declared {
			def.Nodes[nb.id] = nb.node
		}
		if nb.next != "" {
			def.Edges[nb.id] = nb.next
		}
		if len(nb.branches) > 0 {
			if def.ConditionalEdges == nil {
				def.ConditionalEdges = make(map[string]domain.ConditionGroup)
			}
			def.ConditionalEdges[nb.id] = append(domain.ConditionGroup(nil), nb.branches...)
		}
	}
	for _, nb := range b.nodes {
		collect(nb)
	}
	for _, nb := range b.routers {
		collect(nb)
	}
	return def
}

// Build assembles the graph and rejects it when validation finds errors.
// Warnings (such as routing-only points) do not fail the build.
func (b *Builder) Build() (domain.Definition, error) {
	def := b.Definition()
	if err := validator.Check(&def); err != nil {
		return domain.Definition{}, err
	}
	return def, nil
}
