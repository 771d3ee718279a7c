// Package engine implements the registration engine: the admission,
// cancellation, and waitlist-sequencing logic for events with bounded
// capacity. All mutations go through optimistic conditional writes on the
// event row; on a version conflict the whole read-decide-write loop is
// re-run, never just the write.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"rsvp/internal/apperrors"
	"rsvp/internal/logger"
	"rsvp/internal/metrics"
	"rsvp/internal/models"
)

// Engine decides, per registration request, whether a user is admitted,
// waitlisted, or rejected, and keeps waitlist positions dense across
// cancellations and promotions.
type Engine struct {
	store       Store
	maxAttempts int
	backoff     time.Duration
}

// Options tunes the optimistic retry loop.
type Options struct {
	MaxAttempts int
	Backoff     time.Duration
}

// New constructs an Engine over the given store.
func New(store Store, opts Options) *Engine {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 50 * time.Millisecond
	}
	return &Engine{
		store:       store,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
	}
}

// RegisterResult is the outcome of an admission decision.
type RegisterResult struct {
	EventID      string
	UserID       string
	Status       string
	Position     *int
	RegisteredAt time.Time
}

// CancelResult is the outcome of a cancellation.
type CancelResult struct {
	EventID        string
	UserID         string
	PreviousStatus string
	PromotedUserID *string
}

// EventRegistrations is the partitioned view of an event's registrations.
// Waitlisted is ordered by position ascending.
type EventRegistrations struct {
	EventID    string
	Registered []models.Registration
	Waitlisted []models.Registration
}

// Register runs the admission decision for (eventID, userID): admit while
// capacity remains, else waitlist when enabled, else reject. Exactly one of
// the three outcomes happens even under concurrent requests for the same
// event.
func (e *Engine) Register(ctx context.Context, eventID, userID string) (*RegisterResult, error) {
	var result *RegisterResult
	err := e.withRetry(ctx, "register", func(ctx context.Context) error {
		r, err := e.registerOnce(ctx, eventID, userID)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) registerOnce(ctx context.Context, eventID, userID string) (*RegisterResult, error) {
	event, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}
	if !event.IsActive() {
		return nil, apperrors.ErrEventNotActive
	}

	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}

	existing, err := e.store.GetRegistration(ctx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if existing != nil && existing.Live() {
		return nil, apperrors.ErrAlreadyRegistered
	}

	now := time.Now().UTC()
	row := models.Registration{
		EventID:      eventID,
		UserID:       userID,
		RegisteredAt: now,
	}
	mut := &Mutation{
		EventID:         eventID,
		ExpectedVersion: event.Version,
		Registrations:   event.CurrentRegistrations,
		Waitlist:        event.CurrentWaitlist,
	}

	switch {
	case event.CurrentRegistrations < event.Capacity:
		row.Status = models.RegistrationStatusRegistered
		mut.Registrations++
	case event.WaitlistEnabled:
		position := event.CurrentWaitlist + 1
		row.Status = models.RegistrationStatusWaitlisted
		row.Position = &position
		mut.Waitlist++
	default:
		return nil, apperrors.ErrCapacityExceeded
	}

	mut.Rows = append(mut.Rows, row)
	if err := e.store.Apply(ctx, mut); err != nil {
		return nil, err
	}

	return &RegisterResult{
		EventID:      eventID,
		UserID:       userID,
		Status:       row.Status,
		Position:     row.Position,
		RegisteredAt: now,
	}, nil
}

// Cancel marks the (eventID, userID) registration cancelled. Cancelling a
// registered row promotes the head of the waitlist (if any); cancelling a
// waitlisted row only closes the gap. Either way the surviving waitlist ends
// up densely numbered 1..k in its original order, in one atomic mutation.
func (e *Engine) Cancel(ctx context.Context, eventID, userID string) (*CancelResult, error) {
	var result *CancelResult
	err := e.withRetry(ctx, "cancel", func(ctx context.Context) error {
		r, err := e.cancelOnce(ctx, eventID, userID)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) cancelOnce(ctx context.Context, eventID, userID string) (*CancelResult, error) {
	event, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}

	regs, err := e.store.ListEventRegistrations(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	// The decision below must run on rows that belong to the version the
	// conditional write will be keyed on. The rows were read after the
	// event, so re-read the version: if it moved in between, the snapshot
	// is torn and the loop runs again.
	check, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if check == nil {
		return nil, apperrors.ErrEventNotFound
	}
	if check.Version != event.Version {
		return nil, fmt.Errorf("event %s changed during read: %w", eventID, apperrors.ErrVersionConflict)
	}

	var reg *models.Registration
	for i := range regs {
		if regs[i].UserID == userID && regs[i].Live() {
			reg = &regs[i]
			break
		}
	}
	if reg == nil {
		return nil, apperrors.ErrRegistrationNotFound
	}

	registered, waitlist, err := partition(eventID, regs)
	if err != nil {
		return nil, err
	}
	if len(registered) != event.CurrentRegistrations || len(waitlist) != event.CurrentWaitlist {
		logger.WithEvent(eventID).Error("Counter drift detected",
			"counter_registered", event.CurrentRegistrations,
			"counter_waitlist", event.CurrentWaitlist,
			"rows_registered", len(registered),
			"rows_waitlisted", len(waitlist))
		return nil, apperrors.ErrInvariantViolation
	}

	result := &CancelResult{
		EventID:        eventID,
		UserID:         userID,
		PreviousStatus: reg.Status,
	}

	// Cancelled rows keep their last position and timestamp for audit.
	cancelled := *reg
	cancelled.Status = models.RegistrationStatusCancelled

	mut := &Mutation{
		EventID:         eventID,
		ExpectedVersion: event.Version,
		Registrations:   event.CurrentRegistrations,
		Waitlist:        event.CurrentWaitlist,
		Rows:            []models.Registration{cancelled},
	}

	switch reg.Status {
	case models.RegistrationStatusRegistered:
		mut.Registrations--
		if len(waitlist) > 0 {
			promoted := waitlist[0]
			promoted.Status = models.RegistrationStatusRegistered
			promoted.Position = nil
			mut.Rows = append(mut.Rows, promoted)
			mut.Registrations++
			mut.Waitlist--
			result.PromotedUserID = &promoted.UserID
			waitlist = waitlist[1:]
		}
	case models.RegistrationStatusWaitlisted:
		mut.Waitlist--
		waitlist = remove(waitlist, userID)
	}

	// Renumber survivors to the dense sequence 1..k, preserving their
	// original order. Rows are emitted position-ascending so each update
	// moves into a slot freed earlier in the same transaction.
	for i := range waitlist {
		position := i + 1
		if waitlist[i].Position == nil || *waitlist[i].Position != position {
			renumbered := waitlist[i]
			renumbered.Position = &position
			mut.Rows = append(mut.Rows, renumbered)
		}
	}

	if err := e.store.Apply(ctx, mut); err != nil {
		return nil, err
	}
	return result, nil
}

// Registrations returns the partitioned registration lists for an event,
// with the waitlist ordered by position.
func (e *Engine) Registrations(ctx context.Context, eventID string) (*EventRegistrations, error) {
	event, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}

	regs, err := e.store.ListEventRegistrations(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	registered, waitlist, err := partition(eventID, regs)
	if err != nil {
		return nil, err
	}

	return &EventRegistrations{
		EventID:    eventID,
		Registered: registered,
		Waitlisted: waitlist,
	}, nil
}

// UserRegistrations returns the user's live registrations, oldest first.
func (e *Engine) UserRegistrations(ctx context.Context, userID string) ([]models.Registration, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}

	regs, err := e.store.ListUserRegistrations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user registrations: %w", err)
	}

	live := make([]models.Registration, 0, len(regs))
	for _, r := range regs {
		if r.Live() {
			live = append(live, r)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].RegisteredAt.Before(live[j].RegisteredAt)
	})
	return live, nil
}

// withRetry re-runs the full read-decide-write loop on version conflicts and
// transient store failures, up to the configured attempt budget.
func (e *Engine) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err

		if attempt < e.maxAttempts {
			metrics.EngineRetries.WithLabelValues(op).Inc()
			logger.Get().Warn("Retrying engine operation",
				"op", op, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * e.backoff):
			}
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w (%w)",
		op, e.maxAttempts, apperrors.ErrRetryExhausted, lastErr)
}

func retryable(err error) bool {
	return errors.Is(err, apperrors.ErrVersionConflict) ||
		errors.Is(err, apperrors.ErrUnavailable)
}

// partition splits an event's rows into registered and waitlisted sets and
// verifies the dense-position invariant: waitlist positions must be exactly
// {1..k} with no gaps or duplicates.
func partition(eventID string, regs []models.Registration) (registered, waitlist []models.Registration, err error) {
	for _, r := range regs {
		switch r.Status {
		case models.RegistrationStatusRegistered:
			registered = append(registered, r)
		case models.RegistrationStatusWaitlisted:
			waitlist = append(waitlist, r)
		}
	}

	sort.Slice(registered, func(i, j int) bool {
		if !registered[i].RegisteredAt.Equal(registered[j].RegisteredAt) {
			return registered[i].RegisteredAt.Before(registered[j].RegisteredAt)
		}
		return registered[i].UserID < registered[j].UserID
	})
	sort.Slice(waitlist, func(i, j int) bool {
		return pos(waitlist[i]) < pos(waitlist[j])
	})

	for i, r := range waitlist {
		if r.Position == nil || *r.Position != i+1 {
			logger.WithEvent(eventID).Error("Waitlist position sequence corrupt",
				"user_id", r.UserID, "index", i, "position", pos(r))
			return nil, nil, apperrors.ErrInvariantViolation
		}
	}
	return registered, waitlist, nil
}

func pos(r models.Registration) int {
	if r.Position == nil {
		return 0
	}
	return *r.Position
}

func remove(waitlist []models.Registration, userID string) []models.Registration {
	out := waitlist[:0:0]
	for _, r := range waitlist {
		if r.UserID != userID {
			out = append(out, r)
		}
	}
	return out
}
