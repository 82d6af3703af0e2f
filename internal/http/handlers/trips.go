package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"bustravel/internal/domain/models"
	"bustravel/internal/http/middleware"
	"bustravel/internal/services"
	"bustravel/internal/utils"

	"github.com/gin-gonic/gin"
)

// POST /api/trips
func (h *Handlers) CreateTrip(c *gin.Context) {
	var req services.CreateTripInput
	if !BindJSONOrError(c, &req) {
		return
	}
	trip, err := h.Catalog.Create(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trip)
}

// GET /api/trips?from=&to=&date=YYYY-MM-DD&limit=
func (h *Handlers) SearchTrips(c *gin.Context) {
	q := models.TripSearch{
		RouteFrom: c.Query("from"),
		RouteTo:   c.Query("to"),
	}
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		d, err := utils.ParseDate(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid_field", "date must be YYYY-MM-DD", gin.H{"field": "date"})
			return
		}
		q.Date = d
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "invalid_field", "limit must be a positive number", gin.H{"field": "limit"})
			return
		}
		q.Limit = n
	}
	trips, err := h.Catalog.Search(c.Request.Context(), q)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

// GET /api/trips/:id
func (h *Handlers) GetTrip(c *gin.Context) {
	trip, err := h.Catalog.Get(c.Request.Context(), pathID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// GET /api/trips/:id/seats
func (h *Handlers) GetTripSeats(c *gin.Context) {
	sm, err := h.Catalog.SeatMap(c.Request.Context(), pathID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sm)
}

type assignDriverRequest struct {
	DriverID string `json:"driverId" binding:"required"`
}

// PATCH /api/trips/:id/driver
func (h *Handlers) AssignDriver(c *gin.Context) {
	var req assignDriverRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	trip, err := h.Trips.AssignDriver(c.Request.Context(), middleware.PrincipalFrom(c), pathID(c), req.DriverID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// PATCH /api/trips/:id/start
func (h *Handlers) StartTrip(c *gin.Context) {
	trip, err := h.Trips.Start(c.Request.Context(), middleware.PrincipalFrom(c), pathID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// PATCH /api/trips/:id/complete
func (h *Handlers) CompleteTrip(c *gin.Context) {
	trip, err := h.Trips.Complete(c.Request.Context(), middleware.PrincipalFrom(c), pathID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// PATCH /api/trips/:id/cancel
func (h *Handlers) CancelTrip(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 && !BindJSONOrError(c, &req) {
		return
	}
	trip, err := h.Trips.CancelTrip(c.Request.Context(), middleware.PrincipalFrom(c), pathID(c), req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}
