// Package notify delivers fire-and-forget email notifications. Callers hand a
// message to the queue and move on; delivery failures are logged, never
// propagated back into the operation that triggered them.
package notify

type Kind string

const (
	KindBookingStatusChanged Kind = "booking_status_changed"
	KindBookingAutoCancelled Kind = "booking_auto_cancelled"
)

// Message is one outbound notification.
type Message struct {
	Kind      Kind
	Recipient string
	Subject   string
	Body      string
}

// Notifier accepts messages for asynchronous delivery. Enqueue never blocks
// the caller and never returns an error.
type Notifier interface {
	Enqueue(msg Message)
}

// Mailer performs one synchronous delivery attempt.
type Mailer interface {
	Send(msg Message) error
}
