package workflow

import (
	"bufio"
	"errors"
	"strings"
)

// ErrNoRoute is returned when the model output carries no NEXT_STEP
// marker: the step executed but produced no actionable routing.
var ErrNoRoute = errors.New("no NEXT_STEP marker in model output")

// RoutingDecision is the structured form of a step's free-text reply.
type RoutingDecision struct {
	NextStep string
	Serial   string
	Warranty string
	TicketID string
	Reason   string
}

// Terminal reports whether the decision routes to the terminal sentinel.
func (d RoutingDecision) Terminal() bool {
	return IsTerminal(d.NextStep)
}

// RoutingParser extracts a routing decision from free model text. The
// matching strategy is pluggable so it can be hardened without touching
// the orchestration loop.
type RoutingParser interface {
	Parse(output string) (RoutingDecision, error)
}

// MarkerParser matches line-oriented markers of the form "NAME: value".
// Markers are case-insensitive, surrounding whitespace is tolerated, and
// unrecognized lines are ignored so extra prose from the model is
// harmless. NEXT_STEP is mandatory; SERIAL, WARRANTY, TICKET and REASON
// only take effect when present with a non-empty value.
type MarkerParser struct{}

func (MarkerParser) Parse(output string) (RoutingDecision, error) {
	d := MarkerParser{}.Fields(output)
	if d.NextStep == "" {
		return d, ErrNoRoute
	}
	return d, nil
}

// Fields extracts all known markers without requiring a route. The legacy
// dispatch path uses it to pull context fields out of tool output.
func (MarkerParser) Fields(output string) RoutingDecision {
	var d RoutingDecision
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := markerValue(line, "NEXT_STEP"); ok && d.NextStep == "" {
			d.NextStep = v
		} else if v, ok := markerValue(line, "SERIAL"); ok && d.Serial == "" {
			d.Serial = v
		} else if v, ok := markerValue(line, "WARRANTY"); ok && d.Warranty == "" {
			d.Warranty = v
		} else if v, ok := markerValue(line, "TICKET"); ok && d.TicketID == "" {
			d.TicketID = v
		} else if v, ok := markerValue(line, "REASON"); ok && d.Reason == "" {
			d.Reason = v
		}
	}
	return d
}

func markerValue(line, name string) (string, bool) {
	if len(line) < len(name) || !strings.EqualFold(line[:len(name)], name) {
		return "", false
	}
	rest := strings.TrimSpace(line[len(name):])
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	v := strings.TrimSpace(rest[1:])
	if v == "" {
		return "", false
	}
	return v, true
}
