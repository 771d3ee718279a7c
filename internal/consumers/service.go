// Package consumers runs the NATS Streaming subscribers that react to
// registration lifecycle events. They prepare notifications for attendees;
// actual delivery (email, SMS) is left to downstream systems.
package consumers

import (
	"context"
	"log/slog"

	"rsvp/internal/config"
	"rsvp/internal/database"
	"rsvp/internal/messaging"
	"rsvp/internal/models"
	"rsvp/internal/repository"
)

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)
	handlers := NewHandlers(repos)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: handlers,
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	if _, err := cs.nats.SubscribeQueue(models.SubjectRegistrationCreated, "consumers", cs.handlers.HandleRegistrationCreated); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.SubjectRegistrationCancelled, "consumers", cs.handlers.HandleRegistrationCancelled); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.SubjectWaitlistPromoted, "consumers", cs.handlers.HandleWaitlistPromoted); err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
