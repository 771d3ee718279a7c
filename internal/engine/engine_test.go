package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rsvp/internal/apperrors"
	"rsvp/internal/models"
)

// memStore is an in-memory Store with the same conditional-write semantics as
// the SQL implementation: Apply succeeds only when the event version still
// matches, then bumps it.
type memStore struct {
	mu            sync.Mutex
	events        map[string]models.Event
	users         map[string]models.User
	registrations map[string]models.Registration

	// forceConflicts makes the next N Apply calls fail with a version
	// conflict, to exercise the retry loop.
	forceConflicts int
	applyCalls     int
}

func newMemStore() *memStore {
	return &memStore{
		events:        make(map[string]models.Event),
		users:         make(map[string]models.User),
		registrations: make(map[string]models.Registration),
	}
}

func regKey(eventID, userID string) string {
	return eventID + "|" + userID
}

func (s *memStore) addEvent(ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.EventID] = ev
}

func (s *memStore) addUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = models.User{UserID: id, Name: "User " + id}
}

func (s *memStore) GetEvent(_ context.Context, eventID string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok {
		return nil, nil
	}
	copied := ev
	return &copied, nil
}

func (s *memStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	copied := u
	return &copied, nil
}

func (s *memStore) GetRegistration(_ context.Context, eventID, userID string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[regKey(eventID, userID)]
	if !ok {
		return nil, nil
	}
	copied := r
	return &copied, nil
}

func (s *memStore) ListEventRegistrations(_ context.Context, eventID string) ([]models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Registration
	for _, r := range s.registrations {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) ListUserRegistrations(_ context.Context, userID string) ([]models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Registration
	for _, r := range s.registrations {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Apply(_ context.Context, mut *Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyCalls++
	if s.forceConflicts > 0 {
		s.forceConflicts--
		return apperrors.ErrVersionConflict
	}

	ev, ok := s.events[mut.EventID]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	if ev.Version != mut.ExpectedVersion {
		return apperrors.ErrVersionConflict
	}

	ev.Version++
	ev.CurrentRegistrations = mut.Registrations
	ev.CurrentWaitlist = mut.Waitlist
	ev.UpdatedAt = time.Now().UTC()
	s.events[mut.EventID] = ev

	for _, row := range mut.Rows {
		row.UpdatedAt = time.Now().UTC()
		s.registrations[regKey(row.EventID, row.UserID)] = row
	}
	return nil
}

// adminUpdate mutates the event outside the engine, the way the repository's
// Update does: any field change bumps the version.
func (s *memStore) adminUpdate(eventID string, fn func(*models.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.events[eventID]
	fn(&ev)
	ev.Version++
	s.events[eventID] = ev
}

// interceptStore delegates to an inner Store and fires a one-shot hook after
// the first GetEvent, letting tests commit a competing mutation between the
// engine's reads.
type interceptStore struct {
	Store
	mu            sync.Mutex
	afterGetEvent func()
}

func (s *interceptStore) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	ev, err := s.Store.GetEvent(ctx, eventID)
	s.mu.Lock()
	hook := s.afterGetEvent
	s.afterGetEvent = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return ev, err
}

func newTestEngine(store Store) *Engine {
	return New(store, Options{MaxAttempts: 5, Backoff: time.Millisecond})
}

func activeEvent(id string, capacity int, waitlist bool) models.Event {
	return models.Event{
		EventID:         id,
		Title:           "Event " + id,
		Capacity:        capacity,
		Status:          models.EventStatusActive,
		WaitlistEnabled: waitlist,
	}
}

func TestRegisterFillsCapacityThenWaitlists(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 2, true))
	for _, u := range []string{"alice", "bob", "carol", "dave"} {
		store.addUser(u)
	}
	eng := newTestEngine(store)
	ctx := context.Background()

	a, err := eng.Register(ctx, "ev1", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusRegistered, a.Status)
	assert.Nil(t, a.Position)

	b, err := eng.Register(ctx, "ev1", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusRegistered, b.Status)

	c, err := eng.Register(ctx, "ev1", "carol")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusWaitlisted, c.Status)
	require.NotNil(t, c.Position)
	assert.Equal(t, 1, *c.Position)

	d, err := eng.Register(ctx, "ev1", "dave")
	require.NoError(t, err)
	require.NotNil(t, d.Position)
	assert.Equal(t, 2, *d.Position)

	ev, _ := store.GetEvent(ctx, "ev1")
	assert.Equal(t, 2, ev.CurrentRegistrations)
	assert.Equal(t, 2, ev.CurrentWaitlist)
}

func TestRegisterCapacityExceededWithoutWaitlist(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 1, false))
	store.addUser("alice")
	store.addUser("bob")
	eng := newTestEngine(store)
	ctx := context.Background()

	_, err := eng.Register(ctx, "ev1", "alice")
	require.NoError(t, err)

	_, err = eng.Register(ctx, "ev1", "bob")
	assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)

	// The rejected attempt must leave no row behind.
	reg, _ := store.GetRegistration(ctx, "ev1", "bob")
	assert.Nil(t, reg)
	ev, _ := store.GetEvent(ctx, "ev1")
	assert.Equal(t, 1, ev.CurrentRegistrations)
	assert.Equal(t, 0, ev.CurrentWaitlist)
}

func TestRegisterDuplicateRejected(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 5, true))
	store.addUser("alice")
	eng := newTestEngine(store)
	ctx := context.Background()

	_, err := eng.Register(ctx, "ev1", "alice")
	require.NoError(t, err)

	_, err = eng.Register(ctx, "ev1", "alice")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)
}

func TestRegisterAgainAfterCancel(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 5, true))
	store.addUser("alice")
	eng := newTestEngine(store)
	ctx := context.Background()

	_, err := eng.Register(ctx, "ev1", "alice")
	require.NoError(t, err)

	_, err = eng.Cancel(ctx, "ev1", "alice")
	require.NoError(t, err)

	res, err := eng.Register(ctx, "ev1", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusRegistered, res.Status)
}

func TestRegisterValidation(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 1, true))
	completed := activeEvent("ev2", 1, true)
	completed.Status = models.EventStatusCompleted
	store.addEvent(completed)
	store.addUser("alice")
	eng := newTestEngine(store)
	ctx := context.Background()

	_, err := eng.Register(ctx, "missing", "alice")
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)

	_, err = eng.Register(ctx, "ev1", "missing")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = eng.Register(ctx, "ev2", "alice")
	assert.ErrorIs(t, err, apperrors.ErrEventNotActive)
}

func TestCancelRegisteredPromotesHead(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 2, true))
	for _, u := range []string{"alice", "bob", "carol", "dave"} {
		store.addUser(u)
	}
	eng := newTestEngine(store)
	ctx := context.Background()

	// alice, bob registered; carol pos 1, dave pos 2.
	for _, u := range []string{"alice", "bob", "carol", "dave"} {
		_, err := eng.Register(ctx, "ev1", u)
		require.NoError(t, err)
	}

	res, err := eng.Cancel(ctx, "ev1", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusRegistered, res.PreviousStatus)
	require.NotNil(t, res.PromotedUserID)
	assert.Equal(t, "carol", *res.PromotedUserID)

	carol, _ := store.GetRegistration(ctx, "ev1", "carol")
	assert.Equal(t, models.RegistrationStatusRegistered, carol.Status)
	assert.Nil(t, carol.Position)

	dave, _ := store.GetRegistration(ctx, "ev1", "dave")
	assert.Equal(t, models.RegistrationStatusWaitlisted, dave.Status)
	require.NotNil(t, dave.Position)
	assert.Equal(t, 1, *dave.Position)

	ev, _ := store.GetEvent(ctx, "ev1")
	assert.Equal(t, 2, ev.CurrentRegistrations)
	assert.Equal(t, 1, ev.CurrentWaitlist)
}

func TestCancelRegisteredEmptyWaitlist(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 2, true))
	store.addUser("alice")
	eng := newTestEngine(store)
	ctx := context.Background()

	_, err := eng.Register(ctx, "ev1", "alice")
	require.NoError(t, err)

	res, err := eng.Cancel(ctx, "ev1", "alice")
	require.NoError(t, err)
	assert.Nil(t, res.PromotedUserID)

	ev, _ := store.GetEvent(ctx, "ev1")
	assert.Equal(t, 0, ev.CurrentRegistrations)
}

func TestCancelWaitlistedClosesGap(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 1, true))
	for _, u := range []string{"alice", "bob", "carol", "dave"} {
		store.addUser(u)
	}
	eng := newTestEngine(store)
	ctx := context.Background()

	// alice registered; bob 1, carol 2, dave 3.
	for _, u := range []string{"alice", "bob", "carol", "dave"} {
		_, err := eng.Register(ctx, "ev1", u)
		require.NoError(t, err)
	}

	res, err := eng.Cancel(ctx, "ev1", "carol")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusWaitlisted, res.PreviousStatus)
	assert.Nil(t, res.PromotedUserID)

	bob, _ := store.GetRegistration(ctx, "ev1", "bob")
	require.NotNil(t, bob.Position)
	assert.Equal(t, 1, *bob.Position)

	dave, _ := store.GetRegistration(ctx, "ev1", "dave")
	require.NotNil(t, dave.Position)
	assert.Equal(t, 2, *dave.Position)

	ev, _ := store.GetEvent(ctx, "ev1")
	assert.Equal(t, 2, ev.CurrentWaitlist)
}

func TestCancelUnknownRegistration(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 2, true))
	store.addUser("alice")
	eng := newTestEngine(store)
	ctx := context.Background()

	_, err := eng.Cancel(ctx, "ev1", "alice")
	assert.ErrorIs(t, err, apperrors.ErrRegistrationNotFound)

	// Cancelling twice: the second call sees only the cancelled row.
	_, err = eng.Register(ctx, "ev1", "alice")
	require.NoError(t, err)
	_, err = eng.Cancel(ctx, "ev1", "alice")
	require.NoError(t, err)
	_, err = eng.Cancel(ctx, "ev1", "alice")
	assert.ErrorIs(t, err, apperrors.ErrRegistrationNotFound)
}

func TestCancelRacingCancelOfSameRegistration(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 2, true))
	for _, u := range []string{"alice", "bob", "carol", "dave"} {
		store.addUser(u)
	}
	setup := newTestEngine(store)
	ctx := context.Background()

	// alice, bob registered; carol pos 1, dave pos 2.
	for _, u := range []string{"alice", "bob", "carol", "dave"} {
		_, err := setup.Register(ctx, "ev1", u)
		require.NoError(t, err)
	}

	// A rival cancel of the same registration runs to completion between
	// the victim's first event read and its row read.
	wrapped := &interceptStore{Store: store}
	victim := newTestEngine(wrapped)
	rival := newTestEngine(store)
	wrapped.afterGetEvent = func() {
		_, err := rival.Cancel(ctx, "ev1", "alice")
		require.NoError(t, err)
	}

	_, err := victim.Cancel(ctx, "ev1", "alice")
	assert.ErrorIs(t, err, apperrors.ErrRegistrationNotFound)

	// Exactly one promotion happened: carol took the slot, dave moved up.
	view, err := setup.Registrations(ctx, "ev1")
	require.NoError(t, err)
	ev, _ := store.GetEvent(ctx, "ev1")
	assert.LessOrEqual(t, len(view.Registered), ev.Capacity)
	require.Len(t, view.Registered, 2)
	require.Len(t, view.Waitlisted, 1)
	assert.Equal(t, "dave", view.Waitlisted[0].UserID)
	assert.Equal(t, 1, *view.Waitlisted[0].Position)
	assert.Equal(t, 2, ev.CurrentRegistrations)
	assert.Equal(t, 1, ev.CurrentWaitlist)
}

func TestCancelRetriesWhenEventChangesMidRead(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 2, true))
	for _, u := range []string{"alice", "bob", "carol", "dave"} {
		store.addUser(u)
	}
	setup := newTestEngine(store)
	ctx := context.Background()

	for _, u := range []string{"alice", "bob", "carol", "dave"} {
		_, err := setup.Register(ctx, "ev1", u)
		require.NoError(t, err)
	}

	// A rival cancels a different registration mid-read: the victim's
	// snapshot is torn, the loop re-runs, and the cancel still lands.
	wrapped := &interceptStore{Store: store}
	victim := newTestEngine(wrapped)
	rival := newTestEngine(store)
	wrapped.afterGetEvent = func() {
		_, err := rival.Cancel(ctx, "ev1", "bob")
		require.NoError(t, err)
	}

	res, err := victim.Cancel(ctx, "ev1", "alice")
	require.NoError(t, err)
	require.NotNil(t, res.PromotedUserID)
	assert.Equal(t, "dave", *res.PromotedUserID)

	view, err := setup.Registrations(ctx, "ev1")
	require.NoError(t, err)
	require.Len(t, view.Registered, 2)
	assert.Empty(t, view.Waitlisted)
	ev, _ := store.GetEvent(ctx, "ev1")
	assert.Equal(t, 2, ev.CurrentRegistrations)
	assert.Equal(t, 0, ev.CurrentWaitlist)
}

func TestRegisterSeesConcurrentStatusChange(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 2, true))
	store.addUser("alice")

	// An admin cancels the event between the engine's read and its write.
	// The update bumps the version, so the stale decision conflicts and
	// the retry sees the new status.
	wrapped := &interceptStore{Store: store}
	eng := newTestEngine(wrapped)
	wrapped.afterGetEvent = func() {
		store.adminUpdate("ev1", func(ev *models.Event) {
			ev.Status = models.EventStatusCancelled
		})
	}

	_, err := eng.Register(context.Background(), "ev1", "alice")
	assert.ErrorIs(t, err, apperrors.ErrEventNotActive)

	reg, _ := store.GetRegistration(context.Background(), "ev1", "alice")
	assert.Nil(t, reg)
}

func TestRegisterRetriesVersionConflict(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 2, true))
	store.addUser("alice")
	store.forceConflicts = 2
	eng := newTestEngine(store)

	res, err := eng.Register(context.Background(), "ev1", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusRegistered, res.Status)
	assert.Equal(t, 3, store.applyCalls)
}

func TestRegisterRetryExhausted(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 2, true))
	store.addUser("alice")
	store.forceConflicts = 100
	eng := newTestEngine(store)

	_, err := eng.Register(context.Background(), "ev1", "alice")
	assert.ErrorIs(t, err, apperrors.ErrRetryExhausted)
	assert.Equal(t, 5, store.applyCalls)
}

func TestConcurrentLastSlot(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 1, false))
	const workers = 8
	for i := 0; i < workers; i++ {
		store.addUser(fmt.Sprintf("user-%d", i))
	}
	eng := New(store, Options{MaxAttempts: workers + 2, Backoff: time.Millisecond})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = eng.Register(ctx, "ev1", fmt.Sprintf("user-%d", i))
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range results {
		if err == nil {
			admitted++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
		}
	}
	assert.Equal(t, 1, admitted)

	ev, _ := store.GetEvent(ctx, "ev1")
	assert.Equal(t, 1, ev.CurrentRegistrations)
	assert.Equal(t, 0, ev.CurrentWaitlist)
}

func TestConcurrentRegistrationsKeepPositionsDense(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 3, true))
	const workers = 12
	for i := 0; i < workers; i++ {
		store.addUser(fmt.Sprintf("user-%d", i))
	}
	eng := New(store, Options{MaxAttempts: workers * 2, Backoff: time.Millisecond})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := eng.Register(ctx, "ev1", fmt.Sprintf("user-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	view, err := eng.Registrations(ctx, "ev1")
	require.NoError(t, err)
	assert.Len(t, view.Registered, 3)
	assert.Len(t, view.Waitlisted, workers-3)
	for i, r := range view.Waitlisted {
		require.NotNil(t, r.Position)
		assert.Equal(t, i+1, *r.Position)
	}

	ev, _ := store.GetEvent(ctx, "ev1")
	assert.Equal(t, 3, ev.CurrentRegistrations)
	assert.Equal(t, workers-3, ev.CurrentWaitlist)
}

func TestRegistrationsPartitionsAndOrders(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 1, true))
	for _, u := range []string{"alice", "bob", "carol"} {
		store.addUser(u)
	}
	eng := newTestEngine(store)
	ctx := context.Background()

	for _, u := range []string{"alice", "bob", "carol"} {
		_, err := eng.Register(ctx, "ev1", u)
		require.NoError(t, err)
	}
	_, err := eng.Cancel(ctx, "ev1", "bob")
	require.NoError(t, err)

	view, err := eng.Registrations(ctx, "ev1")
	require.NoError(t, err)
	require.Len(t, view.Registered, 1)
	assert.Equal(t, "alice", view.Registered[0].UserID)
	require.Len(t, view.Waitlisted, 1)
	assert.Equal(t, "carol", view.Waitlisted[0].UserID)
	assert.Equal(t, 1, *view.Waitlisted[0].Position)
}

func TestRegistrationsDetectsCorruptPositions(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 1, true))
	store.addUser("alice")
	three := 3
	store.registrations[regKey("ev1", "alice")] = models.Registration{
		EventID:  "ev1",
		UserID:   "alice",
		Status:   models.RegistrationStatusWaitlisted,
		Position: &three,
	}
	eng := newTestEngine(store)

	_, err := eng.Registrations(context.Background(), "ev1")
	assert.ErrorIs(t, err, apperrors.ErrInvariantViolation)
}

func TestCancelDetectsCounterDrift(t *testing.T) {
	store := newMemStore()
	ev := activeEvent("ev1", 2, true)
	ev.CurrentRegistrations = 5
	store.addEvent(ev)
	store.addUser("alice")
	store.registrations[regKey("ev1", "alice")] = models.Registration{
		EventID: "ev1",
		UserID:  "alice",
		Status:  models.RegistrationStatusRegistered,
	}
	eng := newTestEngine(store)

	_, err := eng.Cancel(context.Background(), "ev1", "alice")
	assert.ErrorIs(t, err, apperrors.ErrInvariantViolation)
}

func TestUserRegistrationsLiveOnly(t *testing.T) {
	store := newMemStore()
	store.addEvent(activeEvent("ev1", 5, true))
	store.addEvent(activeEvent("ev2", 5, true))
	store.addEvent(activeEvent("ev3", 5, true))
	store.addUser("alice")
	eng := newTestEngine(store)
	ctx := context.Background()

	for _, ev := range []string{"ev1", "ev2", "ev3"} {
		_, err := eng.Register(ctx, ev, "alice")
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	_, err := eng.Cancel(ctx, "ev2", "alice")
	require.NoError(t, err)

	regs, err := eng.UserRegistrations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, "ev1", regs[0].EventID)
	assert.Equal(t, "ev3", regs[1].EventID)

	_, err = eng.UserRegistrations(ctx, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
