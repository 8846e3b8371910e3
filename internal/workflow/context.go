package workflow

// StepContext carries the state of one warranty-claim run across steps.
// The orchestrator is the only writer: after each step it derives a new
// context with Apply, so every step sees an immutable snapshot and the
// trace stays reproducible. A context is owned by exactly one run.
type StepContext struct {
	EmailID   string
	EmailBody string
	Serial    string
	Warranty  string
	TicketID  string
	Extra     map[string]string
}

func NewStepContext(emailID, emailBody string) StepContext {
	return StepContext{
		EmailID:   emailID,
		EmailBody: emailBody,
		Extra:     make(map[string]string),
	}
}

// clone deep-copies the context so mutations on the successor never leak
// into snapshots already handed to executors or the trace.
func (c StepContext) clone() StepContext {
	dup := c
	dup.Extra = make(map[string]string, len(c.Extra))
	for k, v := range c.Extra {
		dup.Extra[k] = v
	}
	return dup
}

// Apply produces the successor context for a completed step. Fields the
// step did not produce keep their prior values; a step never clears a
// field by omitting its marker.
func (c StepContext) Apply(res StepExecutionResult) StepContext {
	next := c.clone()
	if res.Serial != "" {
		next.Serial = res.Serial
	}
	if res.Warranty != "" {
		next.Warranty = res.Warranty
	}
	if res.TicketID != "" {
		next.TicketID = res.TicketID
	}
	if res.Reason != "" {
		next.Extra["reason"] = res.Reason
	}
	return next
}
