package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

// WarrantyChecker resolves a serial number to a human-readable warranty
// status line. Implemented by the sqlite store and the portal scraper.
type WarrantyChecker interface {
	Check(ctx context.Context, serial string) (string, error)
}

const unknownField = "(unknown)"

// stepPromptTemplate renders the claim context shown to the model
// underneath the step instruction. The instruction itself travels as the
// system message.
var stepPromptTemplate = prompts.NewPromptTemplate(
	`## Claim context
Email ID: {{.email_id}}
Serial number: {{.serial}}
Warranty status: {{.warranty}}
Ticket ID: {{.ticket}}

## Original email
{{.email}}

Reply with one decision per line using the markers NEXT_STEP (required),
SERIAL, WARRANTY, TICKET and REASON. Use "NEXT_STEP: DONE" once the claim
is fully handled.`,
	[]string{"email_id", "serial", "warranty", "ticket", "email"},
)

// Executor runs a single workflow step: it resolves the step instruction,
// renders the request, calls the reasoning model and parses the reply
// into a routing decision.
type Executor struct {
	model   llms.Model
	store   *InstructionStore
	parser  RoutingParser
	checker WarrantyChecker
}

// NewExecutor builds a step executor. checker may be nil when warranty
// resolution is handled elsewhere.
func NewExecutor(model llms.Model, store *InstructionStore, parser RoutingParser, checker WarrantyChecker) *Executor {
	if parser == nil {
		parser = MarkerParser{}
	}
	return &Executor{model: model, store: store, parser: parser, checker: checker}
}

// Execute runs one step against the current context. A non-nil error
// means the step could not execute at all (missing instruction, model
// transport failure, cancellation) and is fatal to the run. A parse
// failure is not fatal here: the result comes back with Failed set so
// the orchestrator can decide, carrying everything that was parsed.
func (e *Executor) Execute(ctx context.Context, stepID string, sc StepContext) (StepExecutionResult, error) {
	start := time.Now()
	res := StepExecutionResult{StepID: stepID}

	instruction, err := e.store.Load(stepID)
	if err != nil {
		res.Failed = true
		res.Err = err.Error()
		res.Elapsed = time.Since(start)
		return res, err
	}

	// Resolve the warranty once a serial is known; the step sees the
	// authoritative status instead of guessing.
	warrantyStatus := sc.Warranty
	if warrantyStatus == "" && sc.Serial != "" && e.checker != nil {
		status, err := e.checker.Check(ctx, sc.Serial)
		if err != nil {
			res.Failed = true
			res.Err = err.Error()
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("step %q: warranty lookup: %w", stepID, err)
		}
		warrantyStatus = status
		res.Warranty = status
	}

	rendered, err := stepPromptTemplate.Format(map[string]any{
		"email_id": orUnknown(sc.EmailID),
		"serial":   orUnknown(sc.Serial),
		"warranty": orUnknown(warrantyStatus),
		"ticket":   orUnknown(sc.TicketID),
		"email":    sc.EmailBody,
	})
	if err != nil {
		res.Failed = true
		res.Err = err.Error()
		res.Elapsed = time.Since(start)
		return res, fmt.Errorf("step %q: render prompt: %v", stepID, err)
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(instruction)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(rendered)},
		},
	}

	resp, err := e.model.GenerateContent(ctx, messages)
	if err != nil {
		res.Failed = true
		res.Err = err.Error()
		res.Elapsed = time.Since(start)
		return res, fmt.Errorf("step %q: reasoning service: %w", stepID, err)
	}
	if len(resp.Choices) == 0 {
		res.Failed = true
		res.Err = "reasoning service returned no choices"
		res.Elapsed = time.Since(start)
		return res, fmt.Errorf("step %q: reasoning service returned no choices", stepID)
	}

	res.Response = resp.Choices[0].Content

	decision, perr := e.parser.Parse(res.Response)
	res.NextStep = decision.NextStep
	res.Serial = decision.Serial
	res.TicketID = decision.TicketID
	res.Reason = decision.Reason
	if res.Warranty == "" {
		res.Warranty = decision.Warranty
	}
	if perr != nil {
		res.Failed = true
		res.Err = perr.Error()
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func orUnknown(v string) string {
	if v == "" {
		return unknownField
	}
	return v
}
