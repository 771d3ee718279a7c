package models

import (
	"time"
)

// Event statuses. Registration is only allowed against active events.
const (
	EventStatusActive    = "active"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"
)

// Registration statuses.
const (
	RegistrationStatusRegistered = "registered"
	RegistrationStatusWaitlisted = "waitlisted"
	RegistrationStatusCancelled  = "cancelled"
)

// Event represents an event in the system. CurrentRegistrations and
// CurrentWaitlist are denormalized counters maintained exclusively by the
// registration engine; Version guards every counter mutation (conditional
// write), so a stale read can never silently overwrite a concurrent update.
type Event struct {
	EventID              string    `json:"event_id" db:"event_id"`
	Title                string    `json:"title" db:"title"`
	Description          string    `json:"description" db:"description"`
	Date                 string    `json:"date" db:"date"`
	Location             string    `json:"location" db:"location"`
	Capacity             int       `json:"capacity" db:"capacity"`
	Organizer            string    `json:"organizer" db:"organizer"`
	Status               string    `json:"status" db:"status"`
	WaitlistEnabled      bool      `json:"waitlist_enabled" db:"waitlist_enabled"`
	CurrentRegistrations int       `json:"current_registrations" db:"current_registrations"`
	CurrentWaitlist      int       `json:"current_waitlist" db:"current_waitlist"`
	Version              int64     `json:"-" db:"version"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the event accepts registrations.
func (e *Event) IsActive() bool {
	return e.Status == EventStatusActive
}

// IsFull reports whether no registered slots remain.
func (e *Event) IsFull() bool {
	return e.CurrentRegistrations >= e.Capacity
}

// User represents a user in the system.
type User struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Registration is the single row per (event, user) pair. Position is set only
// while the row is waitlisted; positions for an event are dense, 1 = next in
// line. A cancelled row keeps its last position and timestamp for audit.
type Registration struct {
	EventID      string    `json:"event_id" db:"event_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Status       string    `json:"status" db:"status"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
	Position     *int      `json:"position,omitempty" db:"position"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Live reports whether the registration currently occupies a slot or a
// waitlist position.
func (r *Registration) Live() bool {
	return r.Status == RegistrationStatusRegistered || r.Status == RegistrationStatusWaitlisted
}
