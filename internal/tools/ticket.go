package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// TicketStore persists support tickets.
type TicketStore interface {
	CreateTicket(id, serial, summary string) error
}

// CreateTicketTool opens a support ticket for a valid warranty claim.
type CreateTicketTool struct {
	Store TicketStore
}

func NewCreateTicketTool(store TicketStore) *CreateTicketTool {
	return &CreateTicketTool{Store: store}
}

func (t *CreateTicketTool) Name() string {
	return "create_ticket"
}

func (t *CreateTicketTool) Description() string {
	return "Open a support ticket for a warranty claim. Returns the new ticket ID."
}

func (t *CreateTicketTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"serial": map[string]any{
				"type":        "string",
				"description": "The product serial number the claim is about",
			},
			"summary": map[string]any{
				"type":        "string",
				"description": "One-line summary of the claim",
			},
		},
		"required": []string{"serial", "summary"},
	}
}

func (t *CreateTicketTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Serial  string `json:"serial"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	id := "TCK-" + uuid.NewString()
	if err := t.Store.CreateTicket(id, args.Serial, args.Summary); err != nil {
		return "", fmt.Errorf("create ticket: %v", err)
	}

	return fmt.Sprintf("TICKET: %s\nREASON: %s", id, args.Summary), nil
}
