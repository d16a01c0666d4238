package domain

import "time"

// StepStatus is the outcome of visiting a node.
type StepStatus string

const (
	StatusSuccess StepStatus = "success" // Handler returned
	StatusError   StepStatus = "error"   // Handler failed; the run stopped here
	StatusSkipped StepStatus = "skipped" // Nothing to invoke; routing continued
)

// LogEntry records one iteration of a run, or the trailing warning when the
// iteration cap is hit (Warning set, Iteration zero).
type LogEntry struct {
	Iteration int        `json:"iteration,omitempty"`
	Node      string     `json:"node,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Status    StepStatus `json:"status,omitempty"`
	Output    any        `json:"output,omitempty"`
	Error     string     `json:"error,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Warning   string     `json:"warning,omitempty"`
}

// IsWarning reports whether the entry is the synthetic max-iterations warning.
func (e LogEntry) IsWarning() bool {
	return e.Warning != ""
}

// RunResult is what the engine returns: the final state and the ordered log.
type RunResult struct {
	FinalState State      `json:"final_state"`
	Log        []LogEntry `json:"execution_log"`
}

// Failed reports whether the run stopped on a handler error.
func (r *RunResult) Failed() bool {
	if len(r.Log) == 0 {
		return false
	}
	return r.Log[len(r.Log)-1].Status == StatusError
}

// Exhausted reports whether the run hit its iteration cap.
func (r *RunResult) Exhausted() bool {
	if len(r.Log) == 0 {
		return false
	}
	return r.Log[len(r.Log)-1].IsWarning()
}
