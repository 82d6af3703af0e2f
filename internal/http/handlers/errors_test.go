package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bustravel/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"hold expired", domain.HoldExpired(), http.StatusGone, domain.CodeHoldExpired},
		{"seat taken", domain.SeatUnavailable([]string{"A1"}), http.StatusConflict, domain.CodeSeatUnavailable},
		{"not authorized", domain.AuthorizationError{}, http.StatusForbidden, "not_authorized"},
		{"bad state", domain.InvalidTransitionError{Entity: "trip", Current: "ARRIVED", Action: "start"}, http.StatusConflict, "invalid_transition"},
		{"validation", domain.ValidationError{Field: "passengers", Code: domain.CodePassengerCountMismatch}, http.StatusBadRequest, domain.CodePassengerCountMismatch},
		{"not cancellable", domain.NotCancellableError{Reason: "trip is departed"}, http.StatusBadRequest, "not_cancellable"},
		{"missing", domain.NotFoundError{Resource: "booking"}, http.StatusNotFound, "not_found"},
		{"store down", fmt.Errorf("confirm: %w", domain.InternalError{Msg: "could not begin transaction", Err: errors.New("dial tcp: refused")}), http.StatusServiceUnavailable, "unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			RespondDomainError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotContains(t, body.Error, "dial tcp")
		})
	}
}
