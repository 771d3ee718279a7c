package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"rsvp/internal/models"
)

// testRouter registers the routes with handlers that have no services wired.
// Only request validation paths are exercised, which reject before any
// service call.
func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(nil)

	router := gin.New()
	router.POST("/api/events", h.CreateEvent)
	router.PUT("/api/events/:id", h.UpdateEvent)
	router.POST("/api/users", h.CreateUser)
	router.POST("/api/events/:id/registrations", h.Register)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	assert.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateEventValidation(t *testing.T) {
	router := testRouter()

	tests := []struct {
		name string
		body models.CreateEventRequest
	}{
		{
			name: "missing title",
			body: models.CreateEventRequest{
				Description: "d", Date: "2030-01-01", Location: "l",
				Capacity: 10, Organizer: "o",
			},
		},
		{
			name: "zero capacity",
			body: models.CreateEventRequest{
				Title: "t", Description: "d", Date: "2030-01-01", Location: "l",
				Capacity: 0, Organizer: "o",
			},
		},
		{
			name: "negative capacity",
			body: models.CreateEventRequest{
				Title: "t", Description: "d", Date: "2030-01-01", Location: "l",
				Capacity: -5, Organizer: "o",
			},
		},
		{
			name: "invalid status",
			body: models.CreateEventRequest{
				Title: "t", Description: "d", Date: "2030-01-01", Location: "l",
				Capacity: 10, Organizer: "o", Status: "archived",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, "POST", "/api/events", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var errResp models.ErrorResponse
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestCreateEventMalformedJSON(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest("POST", "/api/events", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateEventValidation(t *testing.T) {
	router := testRouter()

	zero := 0
	w := doJSON(t, router, "PUT", "/api/events/ev1", models.UpdateEventRequest{Capacity: &zero})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad := "archived"
	w = doJSON(t, router, "PUT", "/api/events/ev1", models.UpdateEventRequest{Status: &bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateUserValidation(t *testing.T) {
	router := testRouter()

	w := doJSON(t, router, "POST", "/api/users", models.CreateUserRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	router := testRouter()

	w := doJSON(t, router, "POST", "/api/events/ev1/registrations", models.RegisterRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
