package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/stan.go"

	"rsvp/internal/models"
	"rsvp/internal/repository"
)

type Handlers struct {
	repos *repository.Repositories
}

func NewHandlers(repos *repository.Repositories) *Handlers {
	return &Handlers{repos: repos}
}

func (h *Handlers) HandleRegistrationCreated(m *stan.Msg) {
	var event models.RegistrationCreatedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal registration created event", "error", err)
		return
	}

	ev, user := h.lookup(event.EventID, event.UserID)
	if ev == nil || user == nil {
		m.Ack()
		return
	}

	if event.Status == models.RegistrationStatusWaitlisted && event.Position != nil {
		slog.Info("Notification: added to waitlist",
			"user", user.Name, "event", ev.Title, "position", *event.Position)
	} else {
		slog.Info("Notification: registration confirmed",
			"user", user.Name, "event", ev.Title, "date", ev.Date)
	}

	m.Ack()
}

func (h *Handlers) HandleRegistrationCancelled(m *stan.Msg) {
	var event models.RegistrationCancelledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal registration cancelled event", "error", err)
		return
	}

	ev, user := h.lookup(event.EventID, event.UserID)
	if ev != nil && user != nil {
		slog.Info("Notification: registration cancelled",
			"user", user.Name, "event", ev.Title, "previous_status", event.PreviousStatus)
	}

	m.Ack()
}

func (h *Handlers) HandleWaitlistPromoted(m *stan.Msg) {
	var event models.WaitlistPromotedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal waitlist promoted event", "error", err)
		return
	}

	ev, user := h.lookup(event.EventID, event.UserID)
	if ev != nil && user != nil {
		slog.Info("Notification: promoted from waitlist",
			"user", user.Name, "event", ev.Title, "date", ev.Date)
	}

	m.Ack()
}

// lookup fetches the event and user for notification enrichment. Either may
// be nil when the record was deleted after the message was published.
func (h *Handlers) lookup(eventID, userID string) (*models.Event, *models.User) {
	ctx := context.Background()

	ev, err := h.repos.Events.GetByID(ctx, eventID)
	if err != nil {
		slog.Error("Failed to get event", "event_id", eventID, "error", err)
	}
	user, err := h.repos.Users.GetByID(ctx, userID)
	if err != nil {
		slog.Error("Failed to get user", "user_id", userID, "error", err)
	}
	return ev, user
}
