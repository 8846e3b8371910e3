package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rohan/claimpilot/internal/mailroom"
)

// SendReplyTool sends the customer-facing reply email.
type SendReplyTool struct {
	Mailer mailroom.Mailer
}

func NewSendReplyTool(mailer mailroom.Mailer) *SendReplyTool {
	return &SendReplyTool{Mailer: mailer}
}

func (t *SendReplyTool) Name() string {
	return "send_reply"
}

func (t *SendReplyTool) Description() string {
	return "Send a reply email to the customer about their warranty claim."
}

func (t *SendReplyTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient email address",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Reply subject line",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Plain-text reply body",
			},
		},
		"required": []string{"to", "subject", "body"},
	}
}

func (t *SendReplyTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	if err := t.Mailer.Send(ctx, args.To, args.Subject, args.Body); err != nil {
		return "", fmt.Errorf("send reply: %v", err)
	}

	return fmt.Sprintf("Reply sent to %s.", args.To), nil
}
