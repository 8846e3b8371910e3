package workflow

import (
	"context"
	"time"
)

// DefaultCeiling bounds the number of steps a run may execute. It guards
// against the reasoning model routing the workflow in circles.
const DefaultCeiling = 10

// StepRunner executes a single step. Satisfied by *Executor; tests
// substitute stubs.
type StepRunner interface {
	Execute(ctx context.Context, stepID string, sc StepContext) (StepExecutionResult, error)
}

// RunLogger receives one entry per state transition.
type RunLogger interface {
	LogTransition(stepID, from, to string, elapsed time.Duration)
}

type nopLogger struct{}

func (nopLogger) LogTransition(string, string, string, time.Duration) {}

// Orchestrator drives the step state machine: it executes the current
// step, applies the routing decision to produce the next context,
// appends to the trace and stops on the terminal sentinel, on an
// unrecoverable step error, or when the step ceiling trips.
type Orchestrator struct {
	exec         StepRunner
	log          RunLogger
	ceiling      int
	retryOnParse bool
}

// NewOrchestrator builds the state machine. ceiling <= 0 selects
// DefaultCeiling. retryOnParse re-executes a step once when its reply
// lacks the NEXT_STEP marker; the retry counts against the ceiling.
func NewOrchestrator(exec StepRunner, log RunLogger, ceiling int, retryOnParse bool) *Orchestrator {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Orchestrator{exec: exec, log: log, ceiling: ceiling, retryOnParse: retryOnParse}
}

// Run executes the workflow from entryStep until a terminal state. The
// returned result is always well-formed: a run that aborts early still
// carries the partial trace and the error detail. Cancelling ctx aborts
// the in-flight step and fails the run with the cancellation cause.
func (o *Orchestrator) Run(ctx context.Context, entryStep string, sc StepContext) *OrchestrationResult {
	sc = sc.clone() // detach from the caller's copy
	trace := make([]StepExecutionResult, 0, o.ceiling)
	current := entryStep
	retried := false

	finish := func(status Status, errText string) *OrchestrationResult {
		return &OrchestrationResult{
			Trace:        trace,
			FinalContext: sc,
			Status:       status,
			TerminalStep: current,
			Err:          errText,
		}
	}

	for steps := 1; ; steps++ {
		if steps > o.ceiling {
			o.log.LogTransition(current, StateRunning, StateCircuitBroken, 0)
			return finish(StatusCircuitBroken, "step ceiling exceeded")
		}
		if err := ctx.Err(); err != nil {
			o.log.LogTransition(current, StateRunning, StateFailed, 0)
			return finish(StatusFailed, "run cancelled: "+err.Error())
		}

		res, err := o.exec.Execute(ctx, current, sc)
		if err != nil {
			// The step never executed; record the failure on the run,
			// not as a trace entry.
			o.log.LogTransition(current, StateRunning, StateFailed, res.Elapsed)
			return finish(StatusFailed, err.Error())
		}

		trace = append(trace, res)

		if res.Failed {
			// Routing could not be parsed. Never guess a next step:
			// retry the same step once when configured, else fail.
			if o.retryOnParse && !retried {
				retried = true
				o.log.LogTransition(current, StateRunning, StateRunning, res.Elapsed)
				continue
			}
			o.log.LogTransition(current, StateRunning, StateFailed, res.Elapsed)
			return finish(StatusFailed, res.Err)
		}
		retried = false

		sc = sc.Apply(res)

		if IsTerminal(res.NextStep) {
			o.log.LogTransition(current, StateRunning, StateDone, res.Elapsed)
			return finish(StatusCompleted, "")
		}

		o.log.LogTransition(current, StateRunning, StateRunning, res.Elapsed)
		current = res.NextStep
	}
}
