package workflow

import (
	"strings"
	"time"
)

// Status is the terminal outcome of an orchestration run.
type Status string

const (
	StatusCompleted     Status = "completed"
	StatusCircuitBroken Status = "circuit-broken"
	StatusFailed        Status = "failed"
)

// TerminalStep is the reserved next-step value meaning "no further step".
const TerminalStep = "DONE"

// IsTerminal reports whether a next-step identifier is the terminal
// sentinel. Matching is case-insensitive like the marker parser.
func IsTerminal(stepID string) bool {
	return strings.EqualFold(stepID, TerminalStep)
}

// State names used in transition log events.
const (
	StateRunning       = "RUNNING"
	StateDone          = "DONE"
	StateCircuitBroken = "CIRCUIT_BROKEN"
	StateFailed        = "FAILED"
)

// StepExecutionResult records one step execution. It is immutable once
// constructed; the orchestrator appends exactly one per loop iteration.
type StepExecutionResult struct {
	StepID   string        `json:"step_id"`
	Response string        `json:"response"`
	NextStep string        `json:"next_step"`
	Serial   string        `json:"serial,omitempty"`
	Warranty string        `json:"warranty,omitempty"`
	TicketID string        `json:"ticket_id,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Failed   bool          `json:"failed"`
	Err      string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// OrchestrationResult is the final output of a run: the full ordered
// trace, the final context and the terminal status. Always well-formed,
// even when the run aborts early.
type OrchestrationResult struct {
	Trace        []StepExecutionResult `json:"trace"`
	FinalContext StepContext           `json:"final_context"`
	Status       Status                `json:"status"`
	TerminalStep string                `json:"terminal_step"`
	Err          string                `json:"error,omitempty"`
}

// StepIDs returns the ordered step identifiers of the trace, as consumed
// by the step-sequence validation harness.
func (r *OrchestrationResult) StepIDs() []string {
	ids := make([]string, len(r.Trace))
	for i, res := range r.Trace {
		ids[i] = res.StepID
	}
	return ids
}

// LastReason returns the reason string of the most recent step that
// produced one, or the empty string.
func (r *OrchestrationResult) LastReason() string {
	for i := len(r.Trace) - 1; i >= 0; i-- {
		if r.Trace[i].Reason != "" {
			return r.Trace[i].Reason
		}
	}
	return ""
}
