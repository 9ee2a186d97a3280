package notify

import (
	"context"
	"time"
)

type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindReminder     Kind = "reminder"
	KindCancellation Kind = "cancellation"
)

// Message is one notification about a reservation state change.
type Message struct {
	Kind        Kind
	To          string // email address
	Phone       string // optional, E.164 for SMS
	ServiceName string
	Date        time.Time
	StartTime   string // HH:MM
	EndTime     string // HH:MM
	Location    string
	Price       float64
}

// Dispatcher accepts messages without waiting for delivery. Dispatch reports
// whether the message was accepted for a delivery attempt.
type Dispatcher interface {
	Dispatch(msg Message) bool
}

// Sender delivers a message over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}
