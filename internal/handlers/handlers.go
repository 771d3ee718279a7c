// Package handlers contains the gin HTTP handlers. They bind and validate
// requests, call the services, and translate sentinel errors into status
// codes; no registration logic lives here.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rsvp/internal/apperrors"
	"rsvp/internal/models"
	"rsvp/internal/service"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	services *service.Services
}

// NewHandlers creates handlers with the given services.
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// respondError maps a service error to an HTTP status: absent records are
// 404, state conflicts are 409, exhausted retries and a down store are 503,
// everything else is 500.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound),
		errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrRegistrationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrAlreadyRegistered),
		errors.Is(err, apperrors.ErrCapacityExceeded),
		errors.Is(err, apperrors.ErrEventNotActive):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrRetryExhausted),
		errors.Is(err, apperrors.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		c.Error(err)
		c.JSON(status, models.ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(status, models.ErrorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
}
