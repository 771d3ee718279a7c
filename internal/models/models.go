package models

// CreateEventRequest - payload for creating an event. EventID is optional;
// a UUID is generated when it is empty.
type CreateEventRequest struct {
	EventID         string `json:"event_id,omitempty"`
	Title           string `json:"title" binding:"required,max=200"`
	Description     string `json:"description" binding:"required,max=1000"`
	Date            string `json:"date" binding:"required"`
	Location        string `json:"location" binding:"required,max=200"`
	Capacity        int    `json:"capacity" binding:"required,gt=0,lte=100000"`
	Organizer       string `json:"organizer" binding:"required,max=100"`
	Status          string `json:"status,omitempty" binding:"omitempty,oneof=active completed cancelled"`
	WaitlistEnabled bool   `json:"waitlist_enabled"`
}

// UpdateEventRequest - partial update for an event. Nil fields are left
// unchanged. Counters and version are never settable from outside.
type UpdateEventRequest struct {
	Title           *string `json:"title,omitempty" binding:"omitempty,max=200"`
	Description     *string `json:"description,omitempty" binding:"omitempty,max=1000"`
	Date            *string `json:"date,omitempty"`
	Location        *string `json:"location,omitempty" binding:"omitempty,max=200"`
	Capacity        *int    `json:"capacity,omitempty" binding:"omitempty,gt=0,lte=100000"`
	Organizer       *string `json:"organizer,omitempty" binding:"omitempty,max=100"`
	Status          *string `json:"status,omitempty" binding:"omitempty,oneof=active completed cancelled"`
	WaitlistEnabled *bool   `json:"waitlist_enabled,omitempty"`
}

// CreateUserRequest - payload for creating a user. UserID is optional; a UUID
// is generated when it is empty.
type CreateUserRequest struct {
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name" binding:"required,max=200"`
}

// UpdateUserRequest - partial update for a user.
type UpdateUserRequest struct {
	Name *string `json:"name,omitempty" binding:"omitempty,max=200"`
}

// RegisterRequest - payload for registering a user for an event.
type RegisterRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// RegisterResponse - outcome of an admission decision. Position is present
// only when the user was waitlisted.
type RegisterResponse struct {
	EventID      string `json:"event_id"`
	UserID       string `json:"user_id"`
	Status       string `json:"status"`
	Position     *int   `json:"position,omitempty"`
	RegisteredAt string `json:"registered_at"`
	Message      string `json:"message"`
}

// CancelResponse - outcome of a cancellation. PromotedUserID is present when
// the freed slot promoted the head of the waitlist.
type CancelResponse struct {
	EventID        string  `json:"event_id"`
	UserID         string  `json:"user_id"`
	PreviousStatus string  `json:"previous_status"`
	PromotedUserID *string `json:"promoted_user_id,omitempty"`
}

// RegistrationCounts summarises an event's occupancy.
type RegistrationCounts struct {
	Registered int `json:"registered"`
	Waitlisted int `json:"waitlisted"`
	Capacity   int `json:"capacity"`
}

// EventRegistrationsResponse - the partitioned registration lists for an
// event. Waitlisted is ordered by position ascending.
type EventRegistrationsResponse struct {
	EventID    string             `json:"event_id"`
	Registered []Registration     `json:"registered"`
	Waitlisted []Registration     `json:"waitlisted"`
	Counts     RegistrationCounts `json:"counts"`
}

// UserRegistrationItem pairs a registration with its event for user-facing
// listings.
type UserRegistrationItem struct {
	Registration
	Event *Event `json:"event,omitempty"`
}

// UserRegistrationsResponse - all live registrations for a user.
type UserRegistrationsResponse struct {
	UserID        string                 `json:"user_id"`
	Registrations []UserRegistrationItem `json:"registrations"`
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
