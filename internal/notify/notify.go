package notify

// Notifier pushes operator alerts for runs that need a human (failed or
// circuit-broken workflows).
type Notifier interface {
	Notify(text string) error
}
