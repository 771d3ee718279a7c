package service

import (
	"context"
	"errors"
	"time"

	"rsvp/internal/apperrors"
	"rsvp/internal/engine"
	"rsvp/internal/logger"
	"rsvp/internal/messaging"
	"rsvp/internal/metrics"
	"rsvp/internal/models"
)

// RegistrationService fronts the registration engine and publishes lifecycle
// events for the consumers. Publishing is best-effort: the state change has
// already committed when it happens.
type RegistrationService struct {
	engine *engine.Engine
	nats   *messaging.NATSClient
}

// NewRegistrationService creates a new registration service. nats may be nil.
func NewRegistrationService(eng *engine.Engine, nats *messaging.NATSClient) *RegistrationService {
	return &RegistrationService{engine: eng, nats: nats}
}

// Register runs the admission decision and reports the outcome.
func (s *RegistrationService) Register(ctx context.Context, eventID, userID string) (*engine.RegisterResult, error) {
	result, err := s.engine.Register(ctx, eventID, userID)
	if err != nil {
		metrics.RegistrationOutcomes.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}
	metrics.RegistrationOutcomes.WithLabelValues(result.Status).Inc()

	s.publish(models.SubjectRegistrationCreated, models.RegistrationCreatedEvent{
		EventID:   result.EventID,
		UserID:    result.UserID,
		Status:    result.Status,
		Position:  result.Position,
		Timestamp: time.Now().UTC(),
	})

	logger.WithEvent(eventID).Info("Registration created",
		"user_id", userID, "status", result.Status)
	return result, nil
}

// Cancel cancels the registration and reports any promotion.
func (s *RegistrationService) Cancel(ctx context.Context, eventID, userID string) (*engine.CancelResult, error) {
	result, err := s.engine.Cancel(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	s.publish(models.SubjectRegistrationCancelled, models.RegistrationCancelledEvent{
		EventID:        result.EventID,
		UserID:         result.UserID,
		PreviousStatus: result.PreviousStatus,
		Timestamp:      time.Now().UTC(),
	})

	if result.PromotedUserID != nil {
		metrics.WaitlistPromotions.Inc()
		s.publish(models.SubjectWaitlistPromoted, models.WaitlistPromotedEvent{
			EventID:   result.EventID,
			UserID:    *result.PromotedUserID,
			Timestamp: time.Now().UTC(),
		})
		logger.WithEvent(eventID).Info("Waitlist promotion",
			"cancelled_user_id", userID, "promoted_user_id", *result.PromotedUserID)
	}

	logger.WithEvent(eventID).Info("Registration cancelled",
		"user_id", userID, "previous_status", result.PreviousStatus)
	return result, nil
}

// EventRegistrations returns the partitioned registration view for an event.
func (s *RegistrationService) EventRegistrations(ctx context.Context, eventID string) (*engine.EventRegistrations, error) {
	return s.engine.Registrations(ctx, eventID)
}

// UserRegistrations returns the user's live registrations, oldest first.
func (s *RegistrationService) UserRegistrations(ctx context.Context, userID string) ([]models.Registration, error) {
	return s.engine.UserRegistrations(ctx, userID)
}

func (s *RegistrationService) publish(subject string, payload any) {
	if s.nats == nil {
		return
	}
	if err := s.nats.Publish(subject, payload); err != nil {
		logger.Get().Warn("Failed to publish message", "subject", subject, "error", err)
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, apperrors.ErrAlreadyRegistered):
		return "conflict"
	case errors.Is(err, apperrors.ErrRetryExhausted):
		return "retry_exhausted"
	default:
		return "error"
	}
}
