// loadgen hammers a running API with concurrent registrations for a single
// event and then verifies the end state: exactly capacity users registered,
// the rest waitlisted with dense positions, counters matching the rows.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"rsvp/internal/models"
)

var (
	baseURL     = flag.String("base-url", "http://localhost:8081", "API base URL")
	users       = flag.Int("users", 200, "number of users to register")
	capacity    = flag.Int("capacity", 50, "event capacity")
	concurrency = flag.Int("concurrency", 32, "concurrent registration workers")
)

func main() {
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}

	eventID, err := createEvent(client)
	if err != nil {
		log.Fatalf("create event: %v", err)
	}
	log.Printf("created event %s (capacity=%d, users=%d)", eventID, *capacity, *users)

	userIDs := make([]string, *users)
	for i := range userIDs {
		userIDs[i], err = createUser(client, fmt.Sprintf("loadgen-user-%d", i))
		if err != nil {
			log.Fatalf("create user %d: %v", i, err)
		}
	}

	start := time.Now()
	var wg sync.WaitGroup
	sem := make(chan struct{}, *concurrency)
	var mu sync.Mutex
	statusCounts := map[string]int{}

	for _, userID := range userIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()

			status, err := register(client, eventID, userID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				statusCounts["error"]++
				return
			}
			statusCounts[status]++
		}(userID)
	}
	wg.Wait()
	elapsed := time.Since(start)

	log.Printf("registered %d users in %s (%.0f req/s), outcomes: %v",
		*users, elapsed, float64(*users)/elapsed.Seconds(), statusCounts)

	if err := verify(client, eventID); err != nil {
		log.Fatalf("VERIFICATION FAILED: %v", err)
	}
	log.Println("verification passed")
}

func verify(client *http.Client, eventID string) error {
	resp, err := client.Get(*baseURL + "/api/events/" + eventID + "/registrations")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registrations: status %d", resp.StatusCode)
	}

	var view models.EventRegistrationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return err
	}

	wantRegistered := *capacity
	if *users < *capacity {
		wantRegistered = *users
	}
	if len(view.Registered) != wantRegistered {
		return fmt.Errorf("expected %d registered, got %d", wantRegistered, len(view.Registered))
	}
	if len(view.Waitlisted) != *users-wantRegistered {
		return fmt.Errorf("expected %d waitlisted, got %d", *users-wantRegistered, len(view.Waitlisted))
	}
	for i, r := range view.Waitlisted {
		if r.Position == nil || *r.Position != i+1 {
			return fmt.Errorf("waitlist entry %d has position %v, want %d", i, r.Position, i+1)
		}
	}
	if view.Counts.Registered != len(view.Registered) || view.Counts.Waitlisted != len(view.Waitlisted) {
		return fmt.Errorf("counters %d/%d disagree with rows %d/%d",
			view.Counts.Registered, view.Counts.Waitlisted,
			len(view.Registered), len(view.Waitlisted))
	}
	return nil
}

func createEvent(client *http.Client) (string, error) {
	body, _ := json.Marshal(models.CreateEventRequest{
		Title:           fmt.Sprintf("loadgen event %d", time.Now().Unix()),
		Description:     "generated load test event",
		Date:            "2030-01-01",
		Location:        "loadgen",
		Capacity:        *capacity,
		Organizer:       "loadgen",
		WaitlistEnabled: true,
	})
	resp, err := client.Post(*baseURL+"/api/events", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var ev models.Event
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return "", err
	}
	return ev.EventID, nil
}

func createUser(client *http.Client, name string) (string, error) {
	body, _ := json.Marshal(models.CreateUserRequest{Name: name})
	resp, err := client.Post(*baseURL+"/api/users", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var u models.User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return "", err
	}
	return u.UserID, nil
}

func register(client *http.Client, eventID, userID string) (string, error) {
	body, _ := json.Marshal(models.RegisterRequest{UserID: userID})
	resp, err := client.Post(*baseURL+"/api/events/"+eventID+"/registrations",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var reg models.RegisterResponse
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		return "", err
	}
	return reg.Status, nil
}
