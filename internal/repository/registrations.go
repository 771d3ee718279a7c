package repository

import (
	"context"
	"database/sql"
	"fmt"

	"rsvp/internal/apperrors"
	"rsvp/internal/database"
	"rsvp/internal/engine"
	"rsvp/internal/models"
)

// RegistrationRepository is the Postgres implementation of the engine's
// Store. Reads run outside any transaction; Apply commits one engine decision
// as a single transaction guarded by the event version.
type RegistrationRepository struct {
	db     *database.DB
	events *EventRepository
	users  *UserRepository
}

// NewRegistrationRepository creates a new registration repository.
func NewRegistrationRepository(db *database.DB, events *EventRepository, users *UserRepository) *RegistrationRepository {
	return &RegistrationRepository{db: db, events: events, users: users}
}

const registrationColumns = `event_id, user_id, status, registered_at, position, updated_at`

func scanRegistration(row interface{ Scan(...any) error }) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(&reg.EventID, &reg.UserID, &reg.Status,
		&reg.RegisteredAt, &reg.Position, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// GetEvent implements engine.Store.
func (r *RegistrationRepository) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return r.events.GetByID(ctx, eventID)
}

// GetUser implements engine.Store.
func (r *RegistrationRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return r.users.GetByID(ctx, userID)
}

// GetRegistration returns the (event, user) row or (nil, nil) when absent.
func (r *RegistrationRepository) GetRegistration(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + `
		FROM registrations WHERE event_id = $1 AND user_id = $2`

	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, eventID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("get registration", err)
	}
	return reg, nil
}

// ListEventRegistrations returns every row for the event, cancelled included.
func (r *RegistrationRepository) ListEventRegistrations(ctx context.Context, eventID string) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + `
		FROM registrations WHERE event_id = $1
		ORDER BY registered_at, user_id`
	return r.listRegistrations(ctx, query, eventID)
}

// ListUserRegistrations returns every row for the user, cancelled included.
func (r *RegistrationRepository) ListUserRegistrations(ctx context.Context, userID string) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + `
		FROM registrations WHERE user_id = $1
		ORDER BY registered_at, event_id`
	return r.listRegistrations(ctx, query, userID)
}

func (r *RegistrationRepository) listRegistrations(ctx context.Context, query string, arg any) ([]models.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, wrapStoreErr("list registrations", err)
	}
	defer rows.Close()

	var regs []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, wrapStoreErr("scan registration", err)
		}
		regs = append(regs, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list registrations", err)
	}
	return regs, nil
}

// Apply commits one engine decision atomically. The conditional counter
// update doubles as the concurrency guard: zero rows affected means the event
// version moved since the engine read it, and the whole transaction rolls
// back with ErrVersionConflict.
//
// Registration rows are written in slice order. The engine emits position
// changes ascending, so each row moves into a slot the same transaction
// already freed and the partial unique index on (event_id, position) never
// sees a transient collision.
func (r *RegistrationRepository) Apply(ctx context.Context, mut *engine.Mutation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreErr("begin", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE events
		SET current_registrations = $1,
		    current_waitlist = $2,
		    version = version + 1,
		    updated_at = NOW()
		WHERE event_id = $3 AND version = $4`,
		mut.Registrations, mut.Waitlist, mut.EventID, mut.ExpectedVersion)
	if err != nil {
		return wrapStoreErr("update event counters", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapStoreErr("update event counters", err)
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", mut.EventID, apperrors.ErrVersionConflict)
	}

	for _, row := range mut.Rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO registrations (event_id, user_id, status, registered_at, position)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (event_id, user_id) DO UPDATE
			SET status = EXCLUDED.status,
			    registered_at = EXCLUDED.registered_at,
			    position = EXCLUDED.position,
			    updated_at = NOW()`,
			row.EventID, row.UserID, row.Status, row.RegisteredAt, row.Position)
		if err != nil {
			return wrapStoreErr("write registration", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapStoreErr("commit", err)
	}
	return nil
}
