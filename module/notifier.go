package module

// Notifier is a concurrency primitive for informing worker routines about the
// arrival of new work unit(s). Notifiers behave like channels in that they
// can be passed by value and still allow concurrent updates of the same
// internal state.
type Notifier struct {
	// Activating an already-activated notifier is a no-op; a single pending
	// notification wakes the worker exactly once, and the worker is expected
	// to drain all available work when woken.
	notifier chan struct{} // buffered channel with capacity 1
}

// NewNotifier instantiates a Notifier.
func NewNotifier() Notifier {
	return Notifier{make(chan struct{}, 1)}
}

// Notify sends a notification.
func (n Notifier) Notify() {
	select {
	// dropping the notification if one is already pending keeps the sender
	// from blocking when no worker is currently draining the channel
	case n.notifier <- struct{}{}:
	default:
	}
}

// Channel returns a channel for receiving notifications.
func (n Notifier) Channel() <-chan struct{} {
	return n.notifier
}
