package processor

import (
	"context"
	"strings"
	"testing"

	"github.com/rohan/claimpilot/internal/mailroom"
	"github.com/rohan/claimpilot/internal/notify"
	"github.com/rohan/claimpilot/internal/workflow"
)

type stubRunner struct {
	result *workflow.OrchestrationResult
	seen   []workflow.StepContext
}

func (r *stubRunner) Run(ctx context.Context, entryStep string, sc workflow.StepContext) *workflow.OrchestrationResult {
	r.seen = append(r.seen, sc)
	out := *r.result
	out.FinalContext = sc.Apply(workflow.StepExecutionResult{TicketID: out.FinalContext.TicketID})
	return &out
}

type recordMailer struct {
	to, subject, body string
	sent              int
}

func (m *recordMailer) Send(ctx context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	m.sent++
	return nil
}

type recordNotifier struct {
	texts []string
}

func (n *recordNotifier) Notify(text string) error {
	n.texts = append(n.texts, text)
	return nil
}

type memRecorder struct {
	statuses []string
}

func (m *memRecorder) RecordRun(emailID, status string, steps int) error {
	m.statuses = append(m.statuses, status)
	return nil
}

func claimEmail() mailroom.Email {
	return mailroom.Email{
		ID:      "claim-1.txt",
		From:    "jo@example.com",
		Subject: "Broken gadget",
		Body:    "My gadget broke. Serial SN-12345.",
	}
}

func TestProcessor_CompletedRunRepliesToCustomer(t *testing.T) {
	runner := &stubRunner{result: &workflow.OrchestrationResult{
		Status: workflow.StatusCompleted,
		Trace: []workflow.StepExecutionResult{
			{StepID: "01-extract-serial", NextStep: "04-send-confirmation"},
			{StepID: "04-send-confirmation", NextStep: workflow.TerminalStep, Reason: "Your claim was accepted."},
		},
		FinalContext: workflow.StepContext{TicketID: "TCK-1"},
	}}
	mailer := &recordMailer{}
	notifier := &recordNotifier{}
	recorder := &memRecorder{}

	p := &Processor{
		Mailer:    mailer,
		Runner:    runner,
		Recorder:  recorder,
		Notifiers: []notify.Notifier{notifier},
		EntryStep: "01-extract-serial",
	}

	res := p.Process(context.Background(), claimEmail())
	if res.Status != workflow.StatusCompleted {
		t.Fatalf("Status = %s", res.Status)
	}

	if mailer.sent != 1 {
		t.Fatalf("replies sent = %d, want 1", mailer.sent)
	}
	if mailer.to != "jo@example.com" || mailer.subject != "Re: Broken gadget" {
		t.Errorf("reply addressing: to=%q subject=%q", mailer.to, mailer.subject)
	}
	if !strings.Contains(mailer.body, "Your claim was accepted.") || !strings.Contains(mailer.body, "TCK-1") {
		t.Errorf("reply body = %q", mailer.body)
	}
	if len(notifier.texts) != 0 {
		t.Errorf("no escalation expected, got %v", notifier.texts)
	}
	if len(recorder.statuses) != 1 || recorder.statuses[0] != "completed" {
		t.Errorf("recorded statuses = %v", recorder.statuses)
	}

	// The processor seeds the run context from the email.
	if len(runner.seen) != 1 || runner.seen[0].EmailID != "claim-1.txt" {
		t.Fatalf("runner contexts = %+v", runner.seen)
	}
	if runner.seen[0].Extra["from"] != "jo@example.com" {
		t.Errorf("sender missing from context: %+v", runner.seen[0].Extra)
	}
}

func TestProcessor_FailedRunEscalates(t *testing.T) {
	runner := &stubRunner{result: &workflow.OrchestrationResult{
		Status:       workflow.StatusCircuitBroken,
		TerminalStep: "02-check-warranty",
		Err:          "step ceiling exceeded",
	}}
	mailer := &recordMailer{}
	notifier := &recordNotifier{}

	p := &Processor{
		Mailer:    mailer,
		Runner:    runner,
		Notifiers: []notify.Notifier{notifier},
		EntryStep: "01-extract-serial",
	}

	p.Process(context.Background(), claimEmail())

	if mailer.sent != 0 {
		t.Errorf("no customer reply expected for a broken run, sent = %d", mailer.sent)
	}
	if len(notifier.texts) != 1 {
		t.Fatalf("escalations = %d, want 1", len(notifier.texts))
	}
	if !strings.Contains(notifier.texts[0], "circuit-broken") || !strings.Contains(notifier.texts[0], "claim-1.txt") {
		t.Errorf("escalation text = %q", notifier.texts[0])
	}
}
