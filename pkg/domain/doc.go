/*
Package domain contains the core domain models of the flowengine graph interpreter.

It defines the entities a run works with: the State bag threaded through every step,
the graph definition (Nodes, Edges and ordered Condition groups), the execution log and
the stored Graph and Run records. This package is kept pure and free of I/O, following
Hexagonal Architecture principles.

# Key Entities

  - State: mutable key/value bag, shallow-merged after each successful step.
  - Node: a named step, optionally bound to a handler in the tool registry.
  - Edge: unconditional source -> target routing rule.
  - ConditionGroup: ordered, first-match conditional routing rules of one source node.
  - LogEntry: one record of the execution log (success, error, skipped or warning).
  - RunResult: final state plus the ordered execution log.
*/
package domain
