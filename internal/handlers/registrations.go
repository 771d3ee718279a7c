package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rsvp/internal/models"
)

// Register handles POST /api/events/:id/registrations.
func (h *Handlers) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.services.Registrations.Register(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	message := "registered for event"
	if result.Position != nil {
		message = fmt.Sprintf("event is full, added to waitlist at position %d", *result.Position)
	}

	c.JSON(http.StatusCreated, models.RegisterResponse{
		EventID:      result.EventID,
		UserID:       result.UserID,
		Status:       result.Status,
		Position:     result.Position,
		RegisteredAt: result.RegisteredAt.Format(time.RFC3339),
		Message:      message,
	})
}

// CancelRegistration handles DELETE /api/events/:id/registrations/:userId.
func (h *Handlers) CancelRegistration(c *gin.Context) {
	result, err := h.services.Registrations.Cancel(c.Request.Context(), c.Param("id"), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CancelResponse{
		EventID:        result.EventID,
		UserID:         result.UserID,
		PreviousStatus: result.PreviousStatus,
		PromotedUserID: result.PromotedUserID,
	})
}

// GetEventRegistrations handles GET /api/events/:id/registrations.
func (h *Handlers) GetEventRegistrations(c *gin.Context) {
	eventID := c.Param("id")
	ctx := c.Request.Context()

	view, err := h.services.Registrations.EventRegistrations(ctx, eventID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ev, err := h.services.Events.Get(ctx, eventID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	registered := view.Registered
	if registered == nil {
		registered = []models.Registration{}
	}
	waitlisted := view.Waitlisted
	if waitlisted == nil {
		waitlisted = []models.Registration{}
	}

	c.JSON(http.StatusOK, models.EventRegistrationsResponse{
		EventID:    eventID,
		Registered: registered,
		Waitlisted: waitlisted,
		Counts: models.RegistrationCounts{
			Registered: len(registered),
			Waitlisted: len(waitlisted),
			Capacity:   ev.Capacity,
		},
	})
}
