package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rsvp/internal/models"
)

// CreateUser handles POST /api/users.
func (h *Handlers) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	u, err := h.services.Users.Create(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// GetUser handles GET /api/users/:id.
func (h *Handlers) GetUser(c *gin.Context) {
	u, err := h.services.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateUser handles PUT /api/users/:id.
func (h *Handlers) UpdateUser(c *gin.Context) {
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	u, err := h.services.Users.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// DeleteUser handles DELETE /api/users/:id. Live registrations are cancelled
// first, so waitlisted users behind the deleted one still get promoted.
func (h *Handlers) DeleteUser(c *gin.Context) {
	if err := h.services.Users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListUsers handles GET /api/users.
func (h *Handlers) ListUsers(c *gin.Context) {
	limit := queryInt(c, "pageSize", 100)
	page := queryInt(c, "page", 1)

	users, err := h.services.Users.List(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}

// GetUserRegistrations handles GET /api/users/:id/registrations, returning
// the user's live registrations enriched with their events.
func (h *Handlers) GetUserRegistrations(c *gin.Context) {
	userID := c.Param("id")
	ctx := c.Request.Context()

	regs, err := h.services.Registrations.UserRegistrations(ctx, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]models.UserRegistrationItem, 0, len(regs))
	for _, reg := range regs {
		item := models.UserRegistrationItem{Registration: reg}
		if ev, err := h.services.Events.Get(ctx, reg.EventID); err == nil {
			item.Event = ev
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, models.UserRegistrationsResponse{
		UserID:        userID,
		Registrations: items,
	})
}
