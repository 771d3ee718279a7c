package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"rsvp/internal/apperrors"
	"rsvp/internal/cache"
	"rsvp/internal/logger"
	"rsvp/internal/metrics"
	"rsvp/internal/models"
	"rsvp/internal/repository"
	"rsvp/internal/search"
)

// EventService handles event CRUD, list caching, and search index upkeep.
// Postgres is the source of truth; Elasticsearch and Valkey are best-effort
// and their failures only degrade search relevance and latency.
type EventService struct {
	repo   *repository.EventRepository
	valkey *cache.ValkeyClient
	es     *search.ElasticsearchClient
}

// NewEventService creates a new event service. valkey and es may be nil.
func NewEventService(repo *repository.EventRepository, valkey *cache.ValkeyClient, es *search.ElasticsearchClient) *EventService {
	return &EventService{repo: repo, valkey: valkey, es: es}
}

// Create stores a new event. A UUID event_id is generated when the request
// does not carry one.
func (s *EventService) Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	status := req.Status
	if status == "" {
		status = models.EventStatusActive
	}

	ev := &models.Event{
		EventID:         req.EventID,
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		Location:        req.Location,
		Capacity:        req.Capacity,
		Organizer:       req.Organizer,
		Status:          status,
		WaitlistEnabled: req.WaitlistEnabled,
	}
	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}

	created, err := s.repo.Create(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.indexEvent(ctx, created)
	s.invalidateListCache(ctx)
	logger.WithEvent(created.EventID).Info("Event created",
		"capacity", created.Capacity, "waitlist_enabled", created.WaitlistEnabled)
	return created, nil
}

// Get returns the event or ErrEventNotFound.
func (s *EventService) Get(ctx context.Context, eventID string) (*models.Event, error) {
	ev, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if ev == nil {
		return nil, apperrors.ErrEventNotFound
	}
	return ev, nil
}

// Update applies a partial update and refreshes the search index.
func (s *EventService) Update(ctx context.Context, eventID string, req *models.UpdateEventRequest) (*models.Event, error) {
	updated, err := s.repo.Update(ctx, eventID, req)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if updated == nil {
		return nil, apperrors.ErrEventNotFound
	}

	s.indexEvent(ctx, updated)
	s.invalidateListCache(ctx)
	logger.WithEvent(eventID).Info("Event updated")
	return updated, nil
}

// Delete removes the event and its registrations, plus its search document.
func (s *EventService) Delete(ctx context.Context, eventID string) error {
	deleted, err := s.repo.Delete(ctx, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if !deleted {
		return apperrors.ErrEventNotFound
	}

	if s.es != nil {
		if err := s.es.DeleteEvent(ctx, eventID); err != nil {
			logger.WithEvent(eventID).Warn("Failed to delete event from search index", "error", err)
		}
	}
	s.invalidateListCache(ctx)
	logger.WithEvent(eventID).Info("Event deleted")
	return nil
}

// List returns events matching the filter as serialized JSON. Free-text
// queries go to Elasticsearch when available; everything else, and any search
// failure, falls back to Postgres. Results are cached per filter.
func (s *EventService) List(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	filterKey := fmt.Sprintf("q=%s|s=%s|d=%s|p=%d|n=%d",
		filter.Query, filter.Status, filter.Date, filter.Page, filter.PageSize)

	if s.valkey != nil {
		if data, err := s.valkey.GetEventsList(ctx, filterKey); err != nil {
			logger.Get().Warn("Event list cache lookup failed", "error", err)
		} else if data != nil {
			metrics.CacheHits.Inc()
			return data, nil
		}
		metrics.CacheMisses.Inc()
	}

	events, err := s.listUncached(ctx, filter)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}

	data, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("marshal events: %w", err)
	}

	if s.valkey != nil {
		if err := s.valkey.SetEventsList(ctx, filterKey, data); err != nil {
			logger.Get().Warn("Event list cache store failed", "error", err)
		}
	}
	return data, nil
}

func (s *EventService) listUncached(ctx context.Context, filter repository.ListFilter) ([]models.Event, error) {
	if s.es != nil && filter.Query != "" {
		events, err := s.es.Search(ctx, filter.Query, filter.Date, filter.Status, filter.Page, filter.PageSize)
		if err == nil {
			return events, nil
		}
		logger.Get().Warn("Search failed, falling back to database", "error", err)
	}

	events, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *EventService) indexEvent(ctx context.Context, ev *models.Event) {
	if s.es == nil {
		return
	}
	if err := s.es.IndexEvent(ctx, ev); err != nil {
		logger.WithEvent(ev.EventID).Warn("Failed to index event", "error", err)
	}
}

func (s *EventService) invalidateListCache(ctx context.Context) {
	if s.valkey == nil {
		return
	}
	if err := s.valkey.InvalidateEvents(ctx); err != nil {
		logger.Get().Warn("Failed to invalidate event list cache", "error", err)
	}
}
