// Package service contains the business logic between the HTTP handlers and
// the storage layers. The registration engine owns admission and waitlist
// semantics; services add id generation, cache and search upkeep, and event
// publishing around it.
package service

import (
	"rsvp/internal/cache"
	"rsvp/internal/engine"
	"rsvp/internal/messaging"
	"rsvp/internal/repository"
	"rsvp/internal/search"
)

// Services aggregates all service instances.
type Services struct {
	Events        *EventService
	Users         *UserService
	Registrations *RegistrationService
}

// NewServices wires the services. valkey and es may be nil; the dependent
// features degrade to the database paths.
func NewServices(
	repos *repository.Repositories,
	eng *engine.Engine,
	nats *messaging.NATSClient,
	valkey *cache.ValkeyClient,
	es *search.ElasticsearchClient,
) *Services {
	registrations := NewRegistrationService(eng, nats)
	return &Services{
		Events:        NewEventService(repos.Events, valkey, es),
		Users:         NewUserService(repos.Users, registrations),
		Registrations: registrations,
	}
}
