package handlers

import (
	"errors"
	"net/http"

	"bustravel/internal/domain"
	"bustravel/internal/http/middleware"
	"bustravel/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	logger := utils.LoggerFromContext(c.Request.Context())

	var (
		conflict   domain.ConflictError
		validation domain.ValidationError
		transition domain.InvalidTransitionError
		notCancel  domain.NotCancellableError
	)
	switch {
	case domain.IsHoldExpired(err):
		respondError(c, http.StatusGone, domain.CodeHoldExpired, err.Error(), nil)
	case errors.As(err, &conflict):
		var details any
		if len(conflict.Seats) > 0 {
			details = gin.H{"seatNumbers": conflict.Seats}
		}
		respondError(c, http.StatusConflict, orDefault(conflict.Code, "conflict"), err.Error(), details)
	case domain.IsAuthorization(err):
		respondError(c, http.StatusForbidden, "not_authorized", "not authorized", nil)
	case errors.As(err, &transition):
		respondError(c, http.StatusConflict, "invalid_transition", err.Error(), gin.H{"current": transition.Current})
	case errors.As(err, &validation):
		var details any
		if validation.Field != "" {
			details = gin.H{"field": validation.Field}
		}
		respondError(c, http.StatusBadRequest, validation.Code, err.Error(), details)
	case errors.As(err, &notCancel):
		respondError(c, http.StatusBadRequest, "not_cancellable", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsInternal(err):
		logger.WithError(err).Error("infrastructure failure")
		respondError(c, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable", nil)
	default:
		logger.WithError(err).Error("request failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
