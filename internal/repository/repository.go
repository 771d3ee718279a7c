// Package repository contains the Postgres data access layer. Lookups return
// (nil, nil) for absent rows; callers decide whether absence is an error.
package repository

import (
	"fmt"

	"rsvp/internal/apperrors"
	"rsvp/internal/database"
)

// Repositories aggregates all repository instances.
type Repositories struct {
	Events        *EventRepository
	Users         *UserRepository
	Registrations *RegistrationRepository
}

// NewRepositories creates all repositories with the given database connection.
func NewRepositories(db *database.DB) *Repositories {
	events := NewEventRepository(db)
	users := NewUserRepository(db)
	return &Repositories{
		Events:        events,
		Users:         users,
		Registrations: NewRegistrationRepository(db, events, users),
	}
}

// wrapStoreErr tags transient connectivity failures as ErrUnavailable so the
// engine's retry loop can tell them apart from hard failures.
func wrapStoreErr(op string, err error) error {
	if database.IsRetryableError(err) {
		return fmt.Errorf("%s: %w: %v", op, apperrors.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
