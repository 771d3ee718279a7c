package integration

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rsvp/internal/models"
)

func TestRegistrationLifecycle(t *testing.T) {
	c := NewClient(t)

	ev := c.CreateEvent(2, true)
	users := make([]*models.User, 4)
	for i := range users {
		users[i] = c.CreateUser(fmt.Sprintf("Lifecycle user %d", i+1))
	}

	// Fill capacity, then the waitlist.
	for i, u := range users {
		reg := c.Register(ev.EventID, u.UserID)
		if i < 2 {
			assert.Equal(t, "registered", reg.Status)
			assert.Nil(t, reg.Position)
		} else {
			assert.Equal(t, "waitlisted", reg.Status)
			require.NotNil(t, reg.Position)
			assert.Equal(t, i-1, *reg.Position)
		}
	}

	// Duplicate registration conflicts.
	status := c.Do("POST", "/api/events/"+ev.EventID+"/registrations",
		models.RegisterRequest{UserID: users[0].UserID}, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Cancelling a registered user promotes the waitlist head and shifts
	// the remaining entry to position 1.
	res := c.Cancel(ev.EventID, users[0].UserID)
	assert.Equal(t, "registered", res.PreviousStatus)
	require.NotNil(t, res.PromotedUserID)
	assert.Equal(t, users[2].UserID, *res.PromotedUserID)

	view := c.Registrations(ev.EventID)
	assert.Equal(t, 2, view.Counts.Registered)
	assert.Equal(t, 1, view.Counts.Waitlisted)
	require.Len(t, view.Waitlisted, 1)
	assert.Equal(t, users[3].UserID, view.Waitlisted[0].UserID)
	assert.Equal(t, 1, *view.Waitlisted[0].Position)
}

func TestCapacityExceededWithoutWaitlist(t *testing.T) {
	c := NewClient(t)

	ev := c.CreateEvent(1, false)
	first := c.CreateUser("Capacity first")
	second := c.CreateUser("Capacity second")

	c.Register(ev.EventID, first.UserID)

	status := c.Do("POST", "/api/events/"+ev.EventID+"/registrations",
		models.RegisterRequest{UserID: second.UserID}, nil)
	assert.Equal(t, http.StatusConflict, status)

	view := c.Registrations(ev.EventID)
	assert.Equal(t, 1, view.Counts.Registered)
	assert.Equal(t, 0, view.Counts.Waitlisted)
}

func TestConcurrentRegistrations(t *testing.T) {
	c := NewClient(t)

	const capacity = 3
	const total = 10
	ev := c.CreateEvent(capacity, true)

	users := make([]*models.User, total)
	for i := range users {
		users[i] = c.CreateUser(fmt.Sprintf("Concurrent user %d", i+1))
	}

	var wg sync.WaitGroup
	statuses := make([]int, total)
	for i, u := range users {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			statuses[i] = c.Do("POST", "/api/events/"+ev.EventID+"/registrations",
				models.RegisterRequest{UserID: userID}, nil)
		}(i, u.UserID)
	}
	wg.Wait()

	for i, status := range statuses {
		assert.Equal(t, http.StatusCreated, status, "user %d", i+1)
	}

	view := c.Registrations(ev.EventID)
	assert.Len(t, view.Registered, capacity)
	assert.Len(t, view.Waitlisted, total-capacity)
	for i, r := range view.Waitlisted {
		require.NotNil(t, r.Position)
		assert.Equal(t, i+1, *r.Position)
	}
	assert.Equal(t, capacity, view.Counts.Registered)
	assert.Equal(t, total-capacity, view.Counts.Waitlisted)
}

func TestUserDeletionCancelsRegistrations(t *testing.T) {
	c := NewClient(t)

	ev := c.CreateEvent(1, true)
	holder := c.CreateUser("Deletion holder")
	waiter := c.CreateUser("Deletion waiter")

	c.Register(ev.EventID, holder.UserID)
	reg := c.Register(ev.EventID, waiter.UserID)
	assert.Equal(t, "waitlisted", reg.Status)

	// Deleting the slot holder frees the slot for the waitlisted user.
	status := c.Do("DELETE", "/api/users/"+holder.UserID, nil, nil)
	require.Equal(t, http.StatusNoContent, status)

	view := c.Registrations(ev.EventID)
	require.Len(t, view.Registered, 1)
	assert.Equal(t, waiter.UserID, view.Registered[0].UserID)
	assert.Empty(t, view.Waitlisted)
}

func TestRegisterAgainstMissingRecords(t *testing.T) {
	c := NewClient(t)

	user := c.CreateUser("Missing records user")
	ev := c.CreateEvent(1, true)

	status := c.Do("POST", "/api/events/no-such-event/registrations",
		models.RegisterRequest{UserID: user.UserID}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = c.Do("POST", "/api/events/"+ev.EventID+"/registrations",
		models.RegisterRequest{UserID: "no-such-user"}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = c.Do("DELETE", "/api/events/"+ev.EventID+"/registrations/"+user.UserID, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
