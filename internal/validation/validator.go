// Package validation probes a running API instance end to end: it drives a
// small capacity-and-waitlist scenario through the HTTP surface and checks
// the responses. Run it with `api validate` against a disposable database.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"rsvp/internal/models"
)

// ScenarioValidator drives registration scenarios against a live server.
type ScenarioValidator struct {
	baseURL string
	client  *http.Client
}

// NewScenarioValidator creates a new validator.
func NewScenarioValidator(baseURL string) *ScenarioValidator {
	return &ScenarioValidator{baseURL: baseURL, client: http.DefaultClient}
}

// RunValidation runs the full scenario against API_BASE_URL and exits
// non-zero on failure.
func RunValidation() {
	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8081"
	}

	v := NewScenarioValidator(baseURL)
	if err := v.ValidateAll(); err != nil {
		log.Fatalf("Validation failed: %v", err)
	}
	log.Println("All scenarios passed")
}

// ValidateAll runs every scenario.
func (v *ScenarioValidator) ValidateAll() error {
	log.Println("Validating registration flow against", v.baseURL)

	if err := v.validateWaitlistScenario(); err != nil {
		return fmt.Errorf("waitlist scenario failed: %w", err)
	}
	if err := v.validateCapacityRejection(); err != nil {
		return fmt.Errorf("capacity rejection scenario failed: %w", err)
	}
	return nil
}

// validateWaitlistScenario: capacity 2 with waitlist. Four users register,
// the first registered user cancels, the waitlist head takes the slot and the
// remaining entry moves to position 1.
func (v *ScenarioValidator) validateWaitlistScenario() error {
	eventID, err := v.createEvent("Validation waitlist event", 2, true)
	if err != nil {
		return err
	}
	defer v.cleanup("/api/events/" + eventID)

	users := make([]string, 4)
	for i := range users {
		users[i], err = v.createUser(fmt.Sprintf("Validation user %d", i+1))
		if err != nil {
			return err
		}
		defer v.cleanup("/api/users/" + users[i])
	}

	wantStatuses := []string{"registered", "registered", "waitlisted", "waitlisted"}
	wantPositions := []int{0, 0, 1, 2}
	for i, userID := range users {
		reg, err := v.register(eventID, userID)
		if err != nil {
			return err
		}
		if reg.Status != wantStatuses[i] {
			return fmt.Errorf("user %d: expected status %s, got %s", i+1, wantStatuses[i], reg.Status)
		}
		if wantPositions[i] > 0 {
			if reg.Position == nil || *reg.Position != wantPositions[i] {
				return fmt.Errorf("user %d: expected position %d, got %v", i+1, wantPositions[i], reg.Position)
			}
		}
	}

	cancel, err := v.cancel(eventID, users[0])
	if err != nil {
		return err
	}
	if cancel.PromotedUserID == nil || *cancel.PromotedUserID != users[2] {
		return fmt.Errorf("expected user 3 to be promoted, got %v", cancel.PromotedUserID)
	}

	view, err := v.eventRegistrations(eventID)
	if err != nil {
		return err
	}
	if view.Counts.Registered != 2 || view.Counts.Waitlisted != 1 {
		return fmt.Errorf("expected counts 2/1, got %d/%d", view.Counts.Registered, view.Counts.Waitlisted)
	}
	if len(view.Waitlisted) != 1 || view.Waitlisted[0].UserID != users[3] || *view.Waitlisted[0].Position != 1 {
		return fmt.Errorf("expected user 4 alone at position 1, got %+v", view.Waitlisted)
	}

	log.Println("Waitlist scenario passed")
	return nil
}

// validateCapacityRejection: capacity 1 without waitlist rejects the second
// registration with 409.
func (v *ScenarioValidator) validateCapacityRejection() error {
	eventID, err := v.createEvent("Validation full event", 1, false)
	if err != nil {
		return err
	}
	defer v.cleanup("/api/events/" + eventID)

	first, err := v.createUser("Validation first")
	if err != nil {
		return err
	}
	defer v.cleanup("/api/users/" + first)
	second, err := v.createUser("Validation second")
	if err != nil {
		return err
	}
	defer v.cleanup("/api/users/" + second)

	if _, err := v.register(eventID, first); err != nil {
		return err
	}

	resp, err := v.makeRequest("POST", "/api/events/"+eventID+"/registrations",
		models.RegisterRequest{UserID: second})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("expected 409 for full event, got %d", resp.StatusCode)
	}

	log.Println("Capacity rejection scenario passed")
	return nil
}

func (v *ScenarioValidator) createEvent(title string, capacity int, waitlist bool) (string, error) {
	resp, err := v.makeRequest("POST", "/api/events", models.CreateEventRequest{
		Title:           title,
		Description:     "created by the validation probe",
		Date:            "2030-01-01",
		Location:        "Validation hall",
		Capacity:        capacity,
		Organizer:       "validator",
		WaitlistEnabled: waitlist,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("POST /api/events: expected 201, got %d", resp.StatusCode)
	}

	var ev models.Event
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return "", fmt.Errorf("decode event: %w", err)
	}
	return ev.EventID, nil
}

func (v *ScenarioValidator) createUser(name string) (string, error) {
	resp, err := v.makeRequest("POST", "/api/users", models.CreateUserRequest{Name: name})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("POST /api/users: expected 201, got %d", resp.StatusCode)
	}

	var u models.User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return "", fmt.Errorf("decode user: %w", err)
	}
	return u.UserID, nil
}

func (v *ScenarioValidator) register(eventID, userID string) (*models.RegisterResponse, error) {
	resp, err := v.makeRequest("POST", "/api/events/"+eventID+"/registrations",
		models.RegisterRequest{UserID: userID})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("register: expected 201, got %d", resp.StatusCode)
	}

	var reg models.RegisterResponse
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		return nil, fmt.Errorf("decode registration: %w", err)
	}
	return &reg, nil
}

func (v *ScenarioValidator) cancel(eventID, userID string) (*models.CancelResponse, error) {
	resp, err := v.makeRequest("DELETE", "/api/events/"+eventID+"/registrations/"+userID, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cancel: expected 200, got %d", resp.StatusCode)
	}

	var c models.CancelResponse
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode cancellation: %w", err)
	}
	return &c, nil
}

func (v *ScenarioValidator) eventRegistrations(eventID string) (*models.EventRegistrationsResponse, error) {
	resp, err := v.makeRequest("GET", "/api/events/"+eventID+"/registrations", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registrations: expected 200, got %d", resp.StatusCode)
	}

	var view models.EventRegistrationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("decode registrations: %w", err)
	}
	return &view, nil
}

func (v *ScenarioValidator) cleanup(path string) {
	resp, err := v.makeRequest("DELETE", path, nil)
	if err != nil {
		log.Printf("cleanup %s failed: %v", path, err)
		return
	}
	resp.Body.Close()
}

func (v *ScenarioValidator) makeRequest(method, path string, body any) (*http.Response, error) {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, v.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return v.client.Do(req)
}
