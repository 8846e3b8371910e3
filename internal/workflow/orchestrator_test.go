package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// recordLogger captures transitions for assertions.
type recordLogger struct {
	mu          sync.Mutex
	transitions []string
}

func (l *recordLogger) LogTransition(stepID, from, to string, elapsed time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transitions = append(l.transitions, fmt.Sprintf("%s:%s->%s", stepID, from, to))
}

func newOrchestrator(t *testing.T, model llms.Model, ceiling int, retry bool, steps ...string) (*Orchestrator, *recordLogger) {
	t.Helper()
	log := &recordLogger{}
	exec := NewExecutor(model, writeInstructions(t, steps...), MarkerParser{}, nil)
	return NewOrchestrator(exec, log, ceiling, retry), log
}

func TestOrchestrator_SingleStepDone(t *testing.T) {
	model := &fakeModel{respond: func(int, string) (string, error) { return "NEXT_STEP: DONE", nil }}
	orch, log := newOrchestrator(t, model, 10, false, "01-extract-serial")

	res := orch.Run(context.Background(), "01-extract-serial", NewStepContext("mail-1", "body"))
	if res.Status != StatusCompleted {
		t.Fatalf("Status = %s, want completed", res.Status)
	}
	if len(res.Trace) != 1 {
		t.Fatalf("trace length = %d, want 1", len(res.Trace))
	}
	if res.TerminalStep != "01-extract-serial" {
		t.Errorf("TerminalStep = %q", res.TerminalStep)
	}
	if len(log.transitions) != 1 || !strings.HasSuffix(log.transitions[0], "RUNNING->DONE") {
		t.Errorf("transitions = %v", log.transitions)
	}
}

func TestOrchestrator_CircuitBreaker(t *testing.T) {
	// The model oscillates between two steps forever.
	model := &fakeModel{respond: func(call int, _ string) (string, error) {
		if call%2 == 1 {
			return "NEXT_STEP: 02-check-warranty", nil
		}
		return "NEXT_STEP: 01-extract-serial", nil
	}}
	const ceiling = 6
	orch, _ := newOrchestrator(t, model, ceiling, false, "01-extract-serial", "02-check-warranty")

	res := orch.Run(context.Background(), "01-extract-serial", NewStepContext("mail-1", "body"))
	if res.Status != StatusCircuitBroken {
		t.Fatalf("Status = %s, want circuit-broken", res.Status)
	}
	if len(res.Trace) != ceiling {
		t.Fatalf("trace length = %d, want exactly %d", len(res.Trace), ceiling)
	}
	for i, step := range res.Trace {
		want := "01-extract-serial"
		if i%2 == 1 {
			want = "02-check-warranty"
		}
		if step.StepID != want {
			t.Errorf("trace[%d] = %q, want %q", i, step.StepID, want)
		}
	}
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	model := &fakeModel{respond: func(call int, _ string) (string, error) {
		if call == 1 {
			return "NEXT_STEP: 02-check-warranty\nSERIAL: SN-12345", nil
		}
		return "NEXT_STEP: DONE\nREASON: valid warranty", nil
	}}
	orch, _ := newOrchestrator(t, model, 10, false, "01-extract-serial", "02-check-warranty")

	res := orch.Run(context.Background(), "01-extract-serial", NewStepContext("mail-1", "My gadget broke."))
	if res.Status != StatusCompleted {
		t.Fatalf("Status = %s, want completed (err: %s)", res.Status, res.Err)
	}

	ids := res.StepIDs()
	if len(ids) != 2 || ids[0] != "01-extract-serial" || ids[1] != "02-check-warranty" {
		t.Errorf("trace = %v", ids)
	}
	if res.FinalContext.Serial != "SN-12345" {
		t.Errorf("final serial = %q, want SN-12345", res.FinalContext.Serial)
	}
	if res.LastReason() != "valid warranty" {
		t.Errorf("last reason = %q", res.LastReason())
	}
}

func TestOrchestrator_ParseFailureNeverGuesses(t *testing.T) {
	model := &fakeModel{respond: func(int, string) (string, error) {
		return "no markers at all", nil
	}}
	orch, _ := newOrchestrator(t, model, 10, false, "01-extract-serial")

	res := orch.Run(context.Background(), "01-extract-serial", NewStepContext("mail-1", "body"))
	if res.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", res.Status)
	}
	if len(res.Trace) != 1 || !res.Trace[0].Failed {
		t.Errorf("parse failure must be recorded in the trace: %+v", res.Trace)
	}
	if res.Trace[0].NextStep != "" {
		t.Errorf("fabricated next step: %q", res.Trace[0].NextStep)
	}
}

func TestOrchestrator_ParseFailureRetryPolicy(t *testing.T) {
	model := &fakeModel{respond: func(call int, _ string) (string, error) {
		if call == 1 {
			return "garbled output", nil
		}
		return "NEXT_STEP: DONE", nil
	}}
	orch, _ := newOrchestrator(t, model, 10, true, "01-extract-serial")

	res := orch.Run(context.Background(), "01-extract-serial", NewStepContext("mail-1", "body"))
	if res.Status != StatusCompleted {
		t.Fatalf("Status = %s, want completed after one retry", res.Status)
	}
	if len(res.Trace) != 2 {
		t.Fatalf("trace length = %d, want 2 (failed attempt + retry)", len(res.Trace))
	}
	if !res.Trace[0].Failed || res.Trace[1].Failed {
		t.Errorf("unexpected failure flags: %+v", res.Trace)
	}
}

func TestOrchestrator_ServiceFailureKeepsPartialTrace(t *testing.T) {
	model := &fakeModel{respond: func(call int, _ string) (string, error) {
		if call == 1 {
			return "NEXT_STEP: 02-check-warranty", nil
		}
		return "", fmt.Errorf("service unavailable")
	}}
	orch, _ := newOrchestrator(t, model, 10, false, "01-extract-serial", "02-check-warranty")

	res := orch.Run(context.Background(), "01-extract-serial", NewStepContext("mail-1", "body"))
	if res.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", res.Status)
	}
	if len(res.Trace) != 1 {
		t.Fatalf("trace length = %d, want only the completed step", len(res.Trace))
	}
	if !strings.Contains(res.Err, "service unavailable") {
		t.Errorf("cause not preserved: %q", res.Err)
	}
	if res.TerminalStep != "02-check-warranty" {
		t.Errorf("TerminalStep = %q", res.TerminalStep)
	}
}

// blockingModel answers the first call immediately and parks the second
// until its context is cancelled.
type blockingModel struct {
	calls int
	mu    sync.Mutex
}

func (m *blockingModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()

	if call == 1 {
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "NEXT_STEP: 02-check-warranty"}}}, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (m *blockingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func TestOrchestrator_CancellationMidStep(t *testing.T) {
	model := &blockingModel{}
	orch, _ := newOrchestrator(t, model, 10, false, "01-extract-serial", "02-check-warranty")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := orch.Run(ctx, "01-extract-serial", NewStepContext("mail-1", "body"))
	if res.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", res.Status)
	}
	if len(res.Trace) != 1 {
		t.Fatalf("trace length = %d, want only step 1's completed result", len(res.Trace))
	}
	if !strings.Contains(res.Err, context.Canceled.Error()) {
		t.Errorf("cancellation cause missing: %q", res.Err)
	}
}

// captureRunner records the exact context values each step saw.
type captureRunner struct {
	seen []StepContext
}

func (r *captureRunner) Execute(ctx context.Context, stepID string, sc StepContext) (StepExecutionResult, error) {
	r.seen = append(r.seen, sc)
	next := TerminalStep
	if len(r.seen) == 1 {
		next = "second"
	}
	return StepExecutionResult{StepID: stepID, NextStep: next, Serial: "SN-1"}, nil
}

func TestOrchestrator_ContextReplaceSemantics(t *testing.T) {
	runner := &captureRunner{}
	orch := NewOrchestrator(runner, nil, 10, false)

	initial := NewStepContext("mail-1", "body")
	initial.Extra["subject"] = "broken gadget"

	res := orch.Run(context.Background(), "first", initial)
	if res.Status != StatusCompleted {
		t.Fatalf("Status = %s", res.Status)
	}
	if len(runner.seen) != 2 {
		t.Fatalf("steps executed = %d", len(runner.seen))
	}

	// Step 2 must have seen the serial applied after step 1, while step
	// 1's snapshot stays untouched.
	if runner.seen[0].Serial != "" || runner.seen[1].Serial != "SN-1" {
		t.Errorf("serials seen: %q, %q", runner.seen[0].Serial, runner.seen[1].Serial)
	}

	// Mutating the final context must not reach back into snapshots.
	res.FinalContext.Extra["subject"] = "tampered"
	if runner.seen[0].Extra["subject"] != "broken gadget" {
		t.Error("mutating the result context leaked into a step snapshot")
	}
}

func TestStepContext_ApplyKeepsPriorValues(t *testing.T) {
	sc := NewStepContext("mail-1", "body")
	sc.Serial = "SN-12345"
	sc.Warranty = "valid until 2030-06-01"

	// A step that produced no optional markers leaves fields untouched.
	next := sc.Apply(StepExecutionResult{StepID: "04-send-confirmation", NextStep: TerminalStep})
	if next.Serial != "SN-12345" || next.Warranty != "valid until 2030-06-01" {
		t.Errorf("fields cleared by Apply: %+v", next)
	}

	// Explicit replacement still works.
	replaced := next.Apply(StepExecutionResult{Serial: "SN-99999"})
	if replaced.Serial != "SN-99999" {
		t.Errorf("Serial = %q, want SN-99999", replaced.Serial)
	}
	if sc.Serial != "SN-12345" {
		t.Error("Apply mutated its receiver")
	}
}
