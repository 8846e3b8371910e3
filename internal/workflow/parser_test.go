package workflow

import (
	"errors"
	"testing"
)

func TestMarkerParser_Parse(t *testing.T) {
	output := `The serial number is clearly visible in the email.
NEXT_STEP: 02-check-warranty
SERIAL: SN-12345
Some commentary the model added on its own.
REASON: serial found in first paragraph`

	d, err := (MarkerParser{}).Parse(output)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d.NextStep != "02-check-warranty" {
		t.Errorf("NextStep = %q, want 02-check-warranty", d.NextStep)
	}
	if d.Serial != "SN-12345" {
		t.Errorf("Serial = %q, want SN-12345", d.Serial)
	}
	if d.Reason != "serial found in first paragraph" {
		t.Errorf("Reason = %q", d.Reason)
	}
}

func TestMarkerParser_CaseAndWhitespace(t *testing.T) {
	output := "   next_step :   done   \n\tserial:\tSN-9\n"

	d, err := (MarkerParser{}).Parse(output)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !d.Terminal() {
		t.Errorf("expected terminal decision, got NextStep=%q", d.NextStep)
	}
	if d.Serial != "SN-9" {
		t.Errorf("Serial = %q, want SN-9", d.Serial)
	}
}

func TestMarkerParser_MissingNextStep(t *testing.T) {
	d, err := (MarkerParser{}).Parse("SERIAL: SN-1\nREASON: no routing here")
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
	// Optional fields survive a failed parse so the orchestrator can log them.
	if d.Serial != "SN-1" {
		t.Errorf("Serial = %q, want SN-1", d.Serial)
	}
}

func TestMarkerParser_EmptyValueIsAbsent(t *testing.T) {
	d, err := (MarkerParser{}).Parse("NEXT_STEP: 03-create-ticket\nSERIAL:\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d.Serial != "" {
		t.Errorf("empty SERIAL marker should be treated as absent, got %q", d.Serial)
	}
}

func TestMarkerParser_FirstMarkerWins(t *testing.T) {
	d, err := (MarkerParser{}).Parse("NEXT_STEP: a\nNEXT_STEP: b")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d.NextStep != "a" {
		t.Errorf("NextStep = %q, want a", d.NextStep)
	}
}

func TestMarkerParser_Fields(t *testing.T) {
	d := (MarkerParser{}).Fields("WARRANTY: valid until 2030-01-01\nTICKET: TCK-7")
	if d.Warranty != "valid until 2030-01-01" {
		t.Errorf("Warranty = %q", d.Warranty)
	}
	if d.TicketID != "TCK-7" {
		t.Errorf("TicketID = %q", d.TicketID)
	}
	if d.NextStep != "" {
		t.Errorf("Fields must not require routing, got NextStep=%q", d.NextStep)
	}
}
