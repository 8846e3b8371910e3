package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rohan/claimpilot/internal/workflow"
)

// CheckWarrantyTool resolves a serial number against the warranty
// registry. Output uses the same line markers the step workflow parses,
// so the runner can fold results back into the claim context.
type CheckWarrantyTool struct {
	Checker workflow.WarrantyChecker
}

func NewCheckWarrantyTool(checker workflow.WarrantyChecker) *CheckWarrantyTool {
	return &CheckWarrantyTool{Checker: checker}
}

func (t *CheckWarrantyTool) Name() string {
	return "check_warranty"
}

func (t *CheckWarrantyTool) Description() string {
	return "Look up the warranty status for a product serial number."
}

func (t *CheckWarrantyTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"serial": map[string]any{
				"type":        "string",
				"description": "The product serial number (e.g. SN-12345)",
			},
		},
		"required": []string{"serial"},
	}
}

func (t *CheckWarrantyTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Serial string `json:"serial"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if args.Serial == "" {
		return "", fmt.Errorf("serial is required")
	}

	status, err := t.Checker.Check(ctx, args.Serial)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("SERIAL: %s\nWARRANTY: %s", args.Serial, status), nil
}
