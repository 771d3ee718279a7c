// Package integration holds end-to-end tests that run against a live API
// instance. They are skipped unless API_BASE_URL is set, e.g.:
//
//	API_BASE_URL=http://localhost:8081 go test ./tests/integration/
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"rsvp/internal/models"
)

// Client is a thin HTTP client over the API for tests.
type Client struct {
	baseURL string
	http    *http.Client
	t       *testing.T
}

// NewClient returns a client for the instance named by API_BASE_URL, or skips
// the test when the variable is unset.
func NewClient(t *testing.T) *Client {
	t.Helper()
	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		t.Skip("API_BASE_URL not set, skipping integration test")
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		t:       t,
	}
}

// Do performs a request and decodes the JSON response into out when out is
// non-nil. It returns the status code.
func (c *Client) Do(method, path string, body, out any) int {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		c.t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// CreateEvent creates an event and registers cleanup.
func (c *Client) CreateEvent(capacity int, waitlist bool) *models.Event {
	c.t.Helper()
	var ev models.Event
	status := c.Do("POST", "/api/events", models.CreateEventRequest{
		Title:           fmt.Sprintf("integration event %d", time.Now().UnixNano()),
		Description:     "created by integration tests",
		Date:            "2030-06-15",
		Location:        "Test hall",
		Capacity:        capacity,
		Organizer:       "integration",
		WaitlistEnabled: waitlist,
	}, &ev)
	if status != http.StatusCreated {
		c.t.Fatalf("create event: status %d", status)
	}
	c.t.Cleanup(func() {
		c.Do("DELETE", "/api/events/"+ev.EventID, nil, nil)
	})
	return &ev
}

// CreateUser creates a user and registers cleanup.
func (c *Client) CreateUser(name string) *models.User {
	c.t.Helper()
	var u models.User
	status := c.Do("POST", "/api/users", models.CreateUserRequest{Name: name}, &u)
	if status != http.StatusCreated {
		c.t.Fatalf("create user: status %d", status)
	}
	c.t.Cleanup(func() {
		c.Do("DELETE", "/api/users/"+u.UserID, nil, nil)
	})
	return &u
}

// Register registers a user for an event, failing the test on a non-201.
func (c *Client) Register(eventID, userID string) *models.RegisterResponse {
	c.t.Helper()
	var reg models.RegisterResponse
	status := c.Do("POST", "/api/events/"+eventID+"/registrations",
		models.RegisterRequest{UserID: userID}, &reg)
	if status != http.StatusCreated {
		c.t.Fatalf("register %s for %s: status %d", userID, eventID, status)
	}
	return &reg
}

// Cancel cancels a registration, failing the test on a non-200.
func (c *Client) Cancel(eventID, userID string) *models.CancelResponse {
	c.t.Helper()
	var res models.CancelResponse
	status := c.Do("DELETE", "/api/events/"+eventID+"/registrations/"+userID, nil, &res)
	if status != http.StatusOK {
		c.t.Fatalf("cancel %s for %s: status %d", userID, eventID, status)
	}
	return &res
}

// Registrations fetches the partitioned registration view for an event.
func (c *Client) Registrations(eventID string) *models.EventRegistrationsResponse {
	c.t.Helper()
	var view models.EventRegistrationsResponse
	status := c.Do("GET", "/api/events/"+eventID+"/registrations", nil, &view)
	if status != http.StatusOK {
		c.t.Fatalf("registrations for %s: status %d", eventID, status)
	}
	return &view
}
