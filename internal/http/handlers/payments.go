package handlers

import (
	"net/http"
	"strings"

	"bustravel/internal/domain/models"

	"github.com/gin-gonic/gin"
)

type paymentWebhookRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

// POST /api/payments/webhook. Redelivered signals answer 200 with the current state.
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	var req paymentWebhookRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	var (
		b   models.Booking
		err error
	)
	switch strings.ToLower(strings.TrimSpace(req.Status)) {
	case "confirmed", "paid", "success":
		b, err = h.Bookings.OnPaymentConfirmed(c.Request.Context(), strings.TrimSpace(req.BookingID))
	case "failed", "expired", "denied":
		b, err = h.Bookings.OnPaymentFailed(c.Request.Context(), strings.TrimSpace(req.BookingID))
	default:
		respondError(c, http.StatusBadRequest, "invalid_field", "unknown payment status", gin.H{"field": "status"})
		return
	}
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bookingId":     b.ID,
		"status":        b.Status,
		"paymentStatus": b.PaymentStatus,
	})
}
