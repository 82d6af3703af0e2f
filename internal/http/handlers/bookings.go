package handlers

import (
	"net/http"

	"bustravel/internal/http/middleware"
	"bustravel/internal/services"

	"github.com/gin-gonic/gin"
)

// POST /api/bookings/confirm
func (h *Handlers) ConfirmBooking(c *gin.Context) {
	var req services.ConfirmInput
	if !BindJSONOrError(c, &req) {
		return
	}
	b, err := h.Bookings.Confirm(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GET /api/bookings/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	b, _, err := h.Bookings.Get(c.Request.Context(), middleware.PrincipalFrom(c), pathID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// POST /api/bookings/:id/cancel; the body is optional.
func (h *Handlers) CancelBooking(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 && !BindJSONOrError(c, &req) {
		return
	}
	b, err := h.Bookings.Cancel(c.Request.Context(), middleware.PrincipalFrom(c), pathID(c), req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
