package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rsvp/internal/database"
	"rsvp/internal/models"
)

// EventRepository handles event data access.
type EventRepository struct {
	db *database.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `event_id, title, description, date, location, capacity, organizer,
	status, waitlist_enabled, current_registrations, current_waitlist, version,
	created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	var ev models.Event
	err := row.Scan(
		&ev.EventID, &ev.Title, &ev.Description, &ev.Date, &ev.Location,
		&ev.Capacity, &ev.Organizer, &ev.Status, &ev.WaitlistEnabled,
		&ev.CurrentRegistrations, &ev.CurrentWaitlist, &ev.Version,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Create inserts a new event row.
func (r *EventRepository) Create(ctx context.Context, ev *models.Event) (*models.Event, error) {
	query := `
		INSERT INTO events (event_id, title, description, date, location,
			capacity, organizer, status, waitlist_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + eventColumns

	created, err := scanEvent(r.db.QueryRowContext(ctx, query,
		ev.EventID, ev.Title, ev.Description, ev.Date, ev.Location,
		ev.Capacity, ev.Organizer, ev.Status, ev.WaitlistEnabled))
	if err != nil {
		return nil, wrapStoreErr("create event", err)
	}
	return created, nil
}

// GetByID returns the event or (nil, nil) when absent.
func (r *EventRepository) GetByID(ctx context.Context, eventID string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE event_id = $1`

	ev, err := scanEvent(r.db.QueryRowContext(ctx, query, eventID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("get event", err)
	}
	return ev, nil
}

// Update applies the non-nil fields of req to the event and returns the
// updated row, or (nil, nil) when the event does not exist. Capacity changes
// do not touch the counters; occupancy above a lowered capacity drains
// naturally through cancellations. The version is bumped so any in-flight
// engine decision that read status, capacity or waitlist_enabled before this
// update fails its conditional write and re-reads.
func (r *EventRepository) Update(ctx context.Context, eventID string, req *models.UpdateEventRequest) (*models.Event, error) {
	sets := []string{"updated_at = NOW()", "version = version + 1"}
	args := []any{eventID}

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.Title != nil {
		addSet("title", *req.Title)
	}
	if req.Description != nil {
		addSet("description", *req.Description)
	}
	if req.Date != nil {
		addSet("date", *req.Date)
	}
	if req.Location != nil {
		addSet("location", *req.Location)
	}
	if req.Capacity != nil {
		addSet("capacity", *req.Capacity)
	}
	if req.Organizer != nil {
		addSet("organizer", *req.Organizer)
	}
	if req.Status != nil {
		addSet("status", *req.Status)
	}
	if req.WaitlistEnabled != nil {
		addSet("waitlist_enabled", *req.WaitlistEnabled)
	}

	query := fmt.Sprintf(`UPDATE events SET %s WHERE event_id = $1 RETURNING %s`,
		strings.Join(sets, ", "), eventColumns)

	ev, err := scanEvent(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("update event", err)
	}
	return ev, nil
}

// Delete removes the event; registrations follow via ON DELETE CASCADE.
// Returns false when no such event exists.
func (r *EventRepository) Delete(ctx context.Context, eventID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE event_id = $1`, eventID)
	if err != nil {
		return false, wrapStoreErr("delete event", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapStoreErr("delete event", err)
	}
	return n > 0, nil
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Query    string
	Status   string
	Date     string
	Page     int
	PageSize int
}

// List returns events matching the filter, newest first. Query matches
// title, description and location with ILIKE; the full-text path lives in the
// search package and falls back to this one.
func (r *EventRepository) List(ctx context.Context, filter ListFilter) ([]models.Event, error) {
	var conditions []string
	var args []any

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		p := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d OR location ILIKE $%d)", p, p, p))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Date != "" {
		args = append(args, filter.Date)
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, event_id"

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.PageSize)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, (page-1)*filter.PageSize)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreErr("list events", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, wrapStoreErr("scan event", err)
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list events", err)
	}
	return events, nil
}
