package mailroom

import "context"

// Email is one inbound warranty-claim message, already reduced to plain
// text.
type Email struct {
	ID      string
	From    string
	Subject string
	Body    string
}

// Mailbox delivers inbound claim emails. Poll returns every message that
// arrived since the previous call; a message is handed out once.
type Mailbox interface {
	Poll(ctx context.Context) ([]Email, error)
}

// Mailer sends outbound replies.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
