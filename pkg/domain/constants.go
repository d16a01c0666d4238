package domain

// Reserved pseudo-node names. They never appear in a graph's node set.
const (
	// StartNode is the sole entry point; its successor is edges[StartNode].
	StartNode = "START"
	// EndNode is absorbing: reaching it finishes the run.
	EndNode = "END"
)

// DefaultMaxIterations bounds a run when the caller does not provide a positive cap.
const DefaultMaxIterations = 10

// MaxIterationsWarning is the message of the trailing log entry written when the cap is hit.
const MaxIterationsWarning = "Max iterations reached"
