package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rohan/claimpilot/internal/governance"
	"github.com/rohan/claimpilot/internal/observability"
	"github.com/rohan/claimpilot/internal/tools"
	"github.com/rohan/claimpilot/internal/workflow"
	"github.com/tmc/langchaingo/llms"
)

// legacyPrompt is the fixed system prompt of the function-calling mode.
// Unlike the step workflow, a single conversation carries the whole
// claim and the model drives it through tool calls.
const legacyPrompt = `You are a warranty claim handler. Process the incoming warranty
claim email: extract the product serial number, check the warranty with
check_warranty, open a ticket with create_ticket when the warranty is
valid, and answer the customer with send_reply. When nothing is left to
do, reply with a short plain-text summary of the outcome.`

// ToolRunner is the legacy function-calling dispatch mode: a bounded
// reasoning loop where the model calls warranty tools directly instead
// of being routed step by step. It shares the run interface and result
// shape with the step orchestrator so callers and the evaluation
// harness treat both modes alike.
type ToolRunner struct {
	Model    llms.Model
	Registry *tools.Registry
	Policy   governance.Engine
	Log      *observability.Logger
	MaxCalls int
}

func NewToolRunner(model llms.Model, registry *tools.Registry, policy governance.Engine, logger *observability.Logger, maxCalls int) *ToolRunner {
	if maxCalls <= 0 {
		maxCalls = workflow.DefaultCeiling
	}
	return &ToolRunner{
		Model:    model,
		Registry: registry,
		Policy:   policy,
		Log:      logger,
		MaxCalls: maxCalls,
	}
}

// Run drives the claim through the function-calling loop. Each executed
// tool call becomes one trace entry keyed by the tool name; marker lines
// in tool output (SERIAL, WARRANTY, TICKET, REASON) are folded back into
// the claim context.
func (r *ToolRunner) Run(ctx context.Context, entryStep string, sc workflow.StepContext) *workflow.OrchestrationResult {
	_ = entryStep // routing is the model's job in this mode

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(legacyPrompt)},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(fmt.Sprintf(
				"Email ID: %s\nFrom: %s\n\n%s", sc.EmailID, sc.Extra["from"], sc.EmailBody))},
		},
	}

	var llmTools []llms.Tool
	for _, t := range r.Registry.Tools {
		llmTools = append(llmTools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	trace := make([]workflow.StepExecutionResult, 0, r.MaxCalls)
	parser := workflow.MarkerParser{}
	calls := 0

	finish := func(status workflow.Status, terminal, errText string) *workflow.OrchestrationResult {
		return &workflow.OrchestrationResult{
			Trace:        trace,
			FinalContext: sc,
			Status:       status,
			TerminalStep: terminal,
			Err:          errText,
		}
	}

	for {
		resp, err := r.Model.GenerateContent(ctx, messages, llms.WithTools(llmTools))
		if err != nil {
			return finish(workflow.StatusFailed, "", fmt.Sprintf("reasoning service: %v", err))
		}
		if len(resp.Choices) == 0 {
			return finish(workflow.StatusFailed, "", "reasoning service returned no choices")
		}
		choice := resp.Choices[0]

		var assistantParts []llms.ContentPart
		if choice.Content != "" {
			assistantParts = append(assistantParts, llms.TextContent{Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			assistantParts = append(assistantParts, tc)
		}
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeAI,
			Parts: assistantParts,
		})

		// No tool calls means the model considers the claim handled.
		if len(choice.ToolCalls) == 0 {
			res := workflow.StepExecutionResult{
				StepID:   "final",
				Response: choice.Content,
				NextStep: workflow.TerminalStep,
				Reason:   choice.Content,
			}
			trace = append(trace, res)
			sc = sc.Apply(res)
			return finish(workflow.StatusCompleted, "final", "")
		}

		for _, tc := range choice.ToolCalls {
			calls++
			if calls > r.MaxCalls {
				return finish(workflow.StatusCircuitBroken, tc.FunctionCall.Name, "tool-call ceiling exceeded")
			}

			start := time.Now()
			name := tc.FunctionCall.Name
			args := tc.FunctionCall.Arguments
			result, failed := r.invoke(ctx, sc.EmailID, name, args)

			stepRes := workflow.StepExecutionResult{
				StepID:   name,
				Response: result,
				Failed:   failed,
				Elapsed:  time.Since(start),
			}
			if failed {
				stepRes.Err = result
			} else {
				fields := parser.Fields(result)
				stepRes.Serial = fields.Serial
				stepRes.Warranty = fields.Warranty
				stepRes.TicketID = fields.TicketID
				stepRes.Reason = fields.Reason
				sc = sc.Apply(stepRes)
			}
			trace = append(trace, stepRes)

			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: tc.ID,
						Name:       name,
						Content:    result,
					},
				},
			})
		}
	}
}

// invoke runs one tool call behind the policy gate. Failures come back
// as text for the model to react to; they never abort the run.
func (r *ToolRunner) invoke(ctx context.Context, emailID, name, args string) (string, bool) {
	if r.Policy != nil {
		verdict, err := r.Policy.Evaluate(ctx, governance.Request{
			Tool:      name,
			Arguments: args,
			EmailID:   emailID,
		})
		if err == nil && r.Log != nil {
			r.Log.LogPolicyCheck(emailID, name, string(verdict.Effect), verdict.Reason)
		}
		if err == nil && verdict.Effect == governance.EffectDeny {
			return fmt.Sprintf("Error: %s", verdict.Reason), true
		}
	}

	tool := r.Registry.Get(name)
	if tool == nil {
		return fmt.Sprintf("Error: Tool %s not found", name), true
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), true
	}
	return result, false
}
