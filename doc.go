/*
Package flowengine is a small workflow engine that executes directed graphs of
named processing steps over a shared key-value state.

A graph has two reserved pseudo-nodes: START, whose outgoing edge names the
entry node, and END, which finishes the run. Every other node names a handler
from a registry. After each node the engine routes with an ordered list of
conditions (first match wins) and falls back to the node's plain edge; a node
without any edge goes to END.

# Concept

The engine never fails a run with an error value. Everything that happened is
in the returned log: one entry per visited node with its status (success,
error or skipped), and a trailing warning when the iteration cap is reached.
A handler error stops the run; a node that cannot be invoked is skipped and
routing continues.

# Usage

	eng := flowengine.New()
	defer eng.Close()

	eng.RegisterFunc("greet", func(ctx context.Context, s domain.State) (any, error) {
		return map[string]any{"greeting": "hello " + s["name"].(string)}, nil
	})

	def := domain.Definition{
		Nodes: map[string]domain.Node{"greet": {Handler: "greet"}},
		Edges: map[string]string{domain.StartNode: "greet", "greet": domain.EndNode},
	}
	res := eng.Run(ctx, def, domain.State{"name": "ana"}, 0)

Graphs can also be stored and run by ID through Engine.Service, which records
every run in the configured store (in memory by default, Redis with
pkg/adapters/redis). The flowengine command serves the same operations over
HTTP and MCP.
*/
package flowengine
