// Package metrics exposes the service's Prometheus collectors. Everything is
// registered on the default registry and served by promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks request latency per route and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rsvp_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// RegistrationOutcomes counts admission decisions by outcome
	// (registered, waitlisted, capacity_exceeded, conflict, error).
	RegistrationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsvp_registration_outcomes_total",
		Help: "Registration attempts by outcome.",
	}, []string{"outcome"})

	// WaitlistPromotions counts head-of-waitlist promotions triggered by
	// cancellations of registered attendees.
	WaitlistPromotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rsvp_waitlist_promotions_total",
		Help: "Waitlist entries promoted to registered.",
	})

	// EngineRetries counts optimistic-concurrency retries per engine
	// operation. A rising rate means heavy contention on single events.
	EngineRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsvp_engine_retries_total",
		Help: "Engine read-decide-write loops re-run after a version conflict or transient store failure.",
	}, []string{"op"})

	// CacheHits and CacheMisses track the events list cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rsvp_cache_hits_total",
		Help: "Event list cache hits.",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rsvp_cache_misses_total",
		Help: "Event list cache misses.",
	})
)
