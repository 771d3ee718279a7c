package engine

import (
	"context"

	"rsvp/internal/models"
)

// Store is the entity-store contract the engine runs against. Lookups return
// (nil, nil) when the record is absent. Apply commits one admission or
// cancellation decision atomically, guarded by the event version observed
// when the decision was made; it fails with apperrors.ErrVersionConflict when
// the event changed underneath, and wraps transient failures with
// apperrors.ErrUnavailable.
type Store interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetRegistration(ctx context.Context, eventID, userID string) (*models.Registration, error)
	ListEventRegistrations(ctx context.Context, eventID string) ([]models.Registration, error)
	ListUserRegistrations(ctx context.Context, userID string) ([]models.Registration, error)
	Apply(ctx context.Context, mut *Mutation) error
}

// Mutation is one atomic state transition for a single event: the new counter
// values plus every registration row the decision touches. Rows are applied
// in slice order; the engine orders them so that waitlist positions only ever
// move into slots freed earlier in the same mutation.
type Mutation struct {
	EventID         string
	ExpectedVersion int64

	Registrations int
	Waitlist      int

	Rows []models.Registration
}
