package handlers

import (
	"net/http"
	"time"

	"bustravel/internal/domain/models"
	"bustravel/internal/http/middleware"
	"bustravel/internal/services"

	"github.com/gin-gonic/gin"
)

type createHoldRequest struct {
	TripID      string   `json:"tripId" binding:"required"`
	SeatNumbers []string `json:"seatNumbers" binding:"required"`
	TTLSeconds  int      `json:"ttlSeconds"`
}

type holdResponse struct {
	HoldID      string            `json:"holdId"`
	TripID      string            `json:"tripId"`
	OwnerToken  string            `json:"ownerToken,omitempty"`
	SeatNumbers []string          `json:"seatNumbers"`
	Status      models.HoldStatus `json:"status"`
	ExpiresAt   time.Time         `json:"expiresAt"`
	BookingID   string            `json:"bookingId,omitempty"`
}

func toHoldResponse(h models.Hold, token string) holdResponse {
	return holdResponse{
		HoldID:      h.ID,
		TripID:      h.TripID,
		OwnerToken:  token,
		SeatNumbers: h.SeatNumbers,
		Status:      h.Status,
		ExpiresAt:   h.ExpiresAt,
		BookingID:   h.BookingID,
	}
}

// POST /api/holds
func (h *Handlers) CreateHold(c *gin.Context) {
	var req createHoldRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	hold, token, err := h.Holds.CreateHold(c.Request.Context(), middleware.PrincipalFrom(c), services.CreateHoldInput{
		TripID:      req.TripID,
		SeatNumbers: req.SeatNumbers,
		TTL:         time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toHoldResponse(hold, token))
}

// GET /api/holds/:id
func (h *Handlers) GetHold(c *gin.Context) {
	hold, err := h.Holds.Get(c.Request.Context(), middleware.PrincipalFrom(c), pathID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toHoldResponse(hold, ""))
}

type extendHoldRequest struct {
	OwnerToken string `json:"ownerToken" binding:"required"`
	TTLSeconds int    `json:"ttlSeconds"`
}

// POST /api/holds/:id/extend
func (h *Handlers) ExtendHold(c *gin.Context) {
	var req extendHoldRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	hold, err := h.Holds.Extend(c.Request.Context(), middleware.PrincipalFrom(c), pathID(c), req.OwnerToken, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toHoldResponse(hold, ""))
}

// DELETE /api/holds/:id, owner token in X-Hold-Token.
func (h *Handlers) CancelHold(c *gin.Context) {
	if err := h.Holds.Cancel(c.Request.Context(), middleware.PrincipalFrom(c), pathID(c), c.GetHeader("X-Hold-Token")); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
