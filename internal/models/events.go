package models

import "time"

// NATS subjects for registration lifecycle events.
const (
	SubjectRegistrationCreated   = "registration.created"
	SubjectRegistrationCancelled = "registration.cancelled"
	SubjectWaitlistPromoted      = "waitlist.promoted"
)

// RegistrationCreatedEvent is published after a successful admission
// decision, whether the user was registered or waitlisted.
type RegistrationCreatedEvent struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Position  *int      `json:"position,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RegistrationCancelledEvent is published after a registration is cancelled.
type RegistrationCancelledEvent struct {
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id"`
	PreviousStatus string    `json:"previous_status"`
	Timestamp      time.Time `json:"timestamp"`
}

// WaitlistPromotedEvent is published when a cancellation frees a slot and the
// head of the waitlist takes it. Consumers use it to notify the promoted user.
type WaitlistPromotedEvent struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}
