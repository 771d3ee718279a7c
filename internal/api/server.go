// Package api wires the HTTP server: storage, messaging, cache and search
// clients, the registration engine, services and routes.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rsvp/internal/cache"
	"rsvp/internal/config"
	"rsvp/internal/database"
	"rsvp/internal/engine"
	"rsvp/internal/handlers"
	"rsvp/internal/logger"
	"rsvp/internal/messaging"
	"rsvp/internal/middleware"
	"rsvp/internal/repository"
	"rsvp/internal/search"
	"rsvp/internal/service"
)

// Server is the HTTP API server.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	es       *search.ElasticsearchClient
	services *service.Services
	repos    *repository.Repositories
}

// NewServer builds the server and connects every backing service. Postgres
// is required; NATS, Valkey and Elasticsearch degrade to nil with a warning.
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Get().Warn("NATS unavailable, lifecycle events disabled", "error", err)
		natsClient = nil
	}

	valkeyClient, err := cache.NewValkeyClient(cfg.Valkey)
	if err != nil {
		logger.Get().Warn("Valkey unavailable, event list caching disabled", "error", err)
		valkeyClient = nil
	}

	var esClient *search.ElasticsearchClient
	if cfg.Elasticsearch.Enabled {
		esClient, err = search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			logger.Get().Warn("Elasticsearch unavailable, full-text search disabled", "error", err)
			esClient = nil
		}
	}

	repos := repository.NewRepositories(db)
	eng := engine.New(repos.Registrations, engine.Options{
		MaxAttempts: cfg.Engine.MaxAttempts,
		Backoff:     cfg.Engine.RetryBackoff,
	})
	services := service.NewServices(repos, eng, natsClient, valkeyClient, esClient)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkeyClient,
		es:       esClient,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	{
		events := api.Group("/events")
		{
			events.POST("", h.CreateEvent)
			events.GET("", h.ListEvents)
			events.GET("/:id", h.GetEvent)
			events.PUT("/:id", h.UpdateEvent)
			events.DELETE("/:id", h.DeleteEvent)

			events.POST("/:id/registrations", h.Register)
			events.GET("/:id/registrations", h.GetEventRegistrations)
			events.DELETE("/:id/registrations/:userId", h.CancelRegistration)
		}

		users := api.Group("/users")
		{
			users.POST("", h.CreateUser)
			users.GET("", h.ListUsers)
			users.GET("/:id", h.GetUser)
			users.PUT("/:id", h.UpdateUser)
			users.DELETE("/:id", h.DeleteUser)
			users.GET("/:id/registrations", h.GetUserRegistrations)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	body := gin.H{
		"status":   "ok",
		"service":  "rsvp-api",
		"database": dbHealth,
	}
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}

	if s.valkey != nil {
		if err := s.valkey.HealthCheck(c.Request.Context()); err != nil {
			body["cache"] = "unhealthy"
		} else {
			body["cache"] = "healthy"
		}
	}
	if s.es != nil {
		if err := s.es.HealthCheck(c.Request.Context()); err != nil {
			body["search"] = "unhealthy"
		} else {
			body["search"] = "healthy"
		}
	}

	c.JSON(status, body)
}

// GetRouter returns the router; cmd/api wraps it in an http.Server for
// graceful shutdown, tests drive it directly.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes all connections.
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}
	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			logger.Get().Error("Error closing Valkey connection", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}
	return nil
}
