package processor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rohan/claimpilot/internal/mailroom"
	"github.com/rohan/claimpilot/internal/notify"
	"github.com/rohan/claimpilot/internal/observability"
	"github.com/rohan/claimpilot/internal/workflow"
)

// Runner is the common run interface behind which the step orchestrator
// and the legacy function-calling mode sit. The mode is selected once
// per process from configuration, never inside a run.
type Runner interface {
	Run(ctx context.Context, entryStep string, sc workflow.StepContext) *workflow.OrchestrationResult
}

// RunRecorder persists finished runs for auditing.
type RunRecorder interface {
	RecordRun(emailID string, status string, steps int) error
}

// Processor is the email-processing layer: it polls the mailbox, starts
// one workflow run per claim and maps terminal states to user-facing
// outcomes (reply to the customer, escalate to an operator).
type Processor struct {
	Mailbox   mailroom.Mailbox
	Mailer    mailroom.Mailer
	Runner    Runner
	Recorder  RunRecorder
	Notifiers []notify.Notifier
	Log       *observability.Logger

	EntryStep    string
	RunTimeout   time.Duration
	PollInterval time.Duration
	Role         observability.Role
}

// Start polls the mailbox until ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	interval := p.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("Claim processor started...")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollAndProcess(ctx)
		}
	}
}

func (p *Processor) pollAndProcess(ctx context.Context) {
	emails, err := p.Mailbox.Poll(ctx)
	if err != nil {
		log.Printf("Error polling mailbox: %v", err)
		return
	}

	for _, email := range emails {
		if p.Log != nil {
			p.Log.LogMail(email.ID, "inbound", email.Subject)
		}
		p.Process(ctx, email)
	}
}

// Process runs the workflow for one claim email and applies the outcome.
// The returned result is the run's full trace, for callers (and the
// evaluation harness) that want to inspect it.
func (p *Processor) Process(ctx context.Context, email mailroom.Email) *workflow.OrchestrationResult {
	observability.SetStatus(p.Role, email.ID)
	defer observability.SetStatus(observability.RoleIdle, "")

	runCtx := ctx
	if p.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.RunTimeout)
		defer cancel()
	}

	sc := workflow.NewStepContext(email.ID, email.Body)
	sc.Extra["from"] = email.From
	sc.Extra["subject"] = email.Subject

	result := p.Runner.Run(runCtx, p.EntryStep, sc)

	if p.Log != nil {
		p.Log.LogRun(email.ID, string(result.Status), len(result.Trace))
	}
	if p.Recorder != nil {
		if err := p.Recorder.RecordRun(email.ID, string(result.Status), len(result.Trace)); err != nil {
			log.Printf("Error recording run for %s: %v", email.ID, err)
		}
	}

	switch result.Status {
	case workflow.StatusCompleted:
		p.reply(ctx, email, result)
	default:
		p.escalate(email, result)
	}

	return result
}

func (p *Processor) reply(ctx context.Context, email mailroom.Email, result *workflow.OrchestrationResult) {
	if p.Mailer == nil || email.From == "" {
		return
	}

	body := result.LastReason()
	if body == "" {
		body = "Your warranty claim has been processed. Our support team will follow up shortly."
	}
	if result.FinalContext.TicketID != "" {
		body = fmt.Sprintf("%s\n\nYour ticket reference: %s", body, result.FinalContext.TicketID)
	}

	subject := "Re: " + email.Subject
	if err := p.Mailer.Send(ctx, email.From, subject, body); err != nil {
		log.Printf("Error sending reply for %s: %v", email.ID, err)
		return
	}
	if p.Log != nil {
		p.Log.LogMail(email.ID, "outbound", subject)
	}
}

func (p *Processor) escalate(email mailroom.Email, result *workflow.OrchestrationResult) {
	text := fmt.Sprintf("⚠️ *Claim needs attention*\nEmail: %s\nStatus: %s\nLast step: %s\nSteps run: %d",
		email.ID, result.Status, result.TerminalStep, len(result.Trace))
	if result.Err != "" {
		text += "\nError: " + result.Err
	}

	for _, n := range p.Notifiers {
		if err := n.Notify(text); err != nil {
			log.Printf("Error notifying operator about %s: %v", email.ID, err)
		}
	}
}
