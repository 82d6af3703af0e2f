package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	intconfig "bustravel/internal/config"
	"bustravel/internal/domain"
	"bustravel/internal/domain/models"
	h "bustravel/internal/http/handlers"
	"bustravel/internal/holdindex"
	"bustravel/internal/repositories/memory"
	"bustravel/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret"
	hookSecret  = "hook-secret"
	testCompany = "co-1"
)

type testServer struct {
	engine  *gin.Engine
	catalog *services.TripCatalog
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	ledger := services.NewSeatLedger(store)
	holds := &services.HoldManager{
		Store:  store,
		Ledger: ledger,
		Index:  holdindex.NewHeap(),
		Config: services.DefaultHoldConfig(),
	}
	bookings := &services.BookingWorkflow{
		Store:  store,
		Ledger: ledger,
		Holds:  holds,
		Config: services.BookingConfig{CancelLeadTime: 2 * time.Hour},
	}
	holds.Expirer = bookings
	catalog := &services.TripCatalog{Store: store, Ledger: ledger}

	hs := &h.Handlers{
		Store:    store,
		Holds:    holds,
		Bookings: bookings,
		Trips:    &services.TripLifecycle{Store: store, Holds: holds, Bookings: bookings},
		Catalog:  catalog,
		Revenue:  services.RevenueAggregator{Store: store},
		Docs:     services.TicketDocs{Bookings: bookings},
	}
	env := intconfig.Env{
		JWTSecret:            testSecret,
		PaymentWebhookSecret: hookSecret,
		CORSAllowedOrigins:   []string{"http://localhost:3000"},
	}
	return &testServer{engine: NewRouter(env, hs), catalog: catalog}
}

func (s *testServer) newTrip(t *testing.T) models.Trip {
	t.Helper()
	op := domain.Principal{ID: "op-1", Roles: []domain.Role{domain.RoleOperator}, CompanyID: testCompany}
	trip, err := s.catalog.Create(context.Background(), op, services.CreateTripInput{
		RouteFrom:   "Jakarta",
		RouteTo:     "Bandung",
		DepartureAt: time.Now().Add(48 * time.Hour),
		Fare:        150000,
		VehicleID:   "BUS-01",
		DriverID:    "drv-1",
		SeatCount:   8,
	})
	require.NoError(t, err)
	return trip
}

func token(t *testing.T, subject, companyID string, roles ...string) string {
	t.Helper()
	claims := struct {
		Roles     []string `json:"roles"`
		CompanyID string   `json:"company_id,omitempty"`
		jwt.RegisteredClaims
	}{
		Roles:     roles,
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type holdBody struct {
	HoldID     string   `json:"holdId"`
	OwnerToken string   `json:"ownerToken"`
	Seats      []string `json:"seatNumbers"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/trips", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/trips", "not-a-jwt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/nope", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHoldConfirmFlow(t *testing.T) {
	s := newTestServer(t)
	trip := s.newTrip(t)
	alice := token(t, "rider-1", "", "rider")
	bob := token(t, "rider-2", "", "rider")

	w := s.do(t, http.MethodPost, "/api/holds", alice, gin.H{"tripId": trip.ID, "seatNumbers": []string{"A1", "A2"}}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	hold := decode[holdBody](t, w)
	assert.NotEmpty(t, hold.OwnerToken)
	assert.ElementsMatch(t, []string{"A1", "A2"}, hold.Seats)

	w = s.do(t, http.MethodPost, "/api/holds", bob, gin.H{"tripId": trip.ID, "seatNumbers": []string{"A2", "A3"}}, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	conflict := decode[h.ErrorResponse](t, w)
	assert.Equal(t, domain.CodeSeatUnavailable, conflict.Code)

	w = s.do(t, http.MethodPost, "/api/bookings/confirm", alice, gin.H{
		"holdId":     hold.HoldID,
		"ownerToken": hold.OwnerToken,
		"passengers": []gin.H{
			{"name": "Budi", "phone": "0812345678", "seatNumber": "A1"},
			{"name": "Sari", "phone": "0812345679", "seatNumber": "A2"},
		},
		"contactInfo": gin.H{"name": "Budi", "phone": "0812345678", "email": "budi@example.com"},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booking := decode[models.Booking](t, w)
	assert.Equal(t, models.BookingConfirmed, booking.Status)
	assert.EqualValues(t, 300000, booking.TotalAmount)

	w = s.do(t, http.MethodGet, "/api/bookings/"+booking.ID, bob, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/bookings/"+booking.ID+"/e-ticket", alice, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = s.do(t, http.MethodGet, "/api/trips/"+trip.ID+"/seats", bob, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BOOKED")
}

func TestConfirmReleasedHoldIsGone(t *testing.T) {
	s := newTestServer(t)
	trip := s.newTrip(t)
	alice := token(t, "rider-1", "", "rider")

	w := s.do(t, http.MethodPost, "/api/holds", alice, gin.H{"tripId": trip.ID, "seatNumbers": []string{"B1"}}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	hold := decode[holdBody](t, w)

	w = s.do(t, http.MethodDelete, "/api/holds/"+hold.HoldID, alice, nil, map[string]string{"X-Hold-Token": hold.OwnerToken})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodPost, "/api/bookings/confirm", alice, gin.H{
		"holdId":      hold.HoldID,
		"ownerToken":  hold.OwnerToken,
		"passengers":  []gin.H{{"name": "Budi", "phone": "0812345678", "seatNumber": "B1"}},
		"contactInfo": gin.H{"name": "Budi", "phone": "0812345678"},
	}, nil)
	assert.Equal(t, http.StatusGone, w.Code, w.Body.String())
}

func TestBadHoldRequest(t *testing.T) {
	s := newTestServer(t)
	trip := s.newTrip(t)
	alice := token(t, "rider-1", "", "rider")

	w := s.do(t, http.MethodPost, "/api/holds", alice, gin.H{"tripId": trip.ID, "seatNumbers": []string{}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/holds", alice, gin.H{"tripId": "missing", "seatNumbers": []string{"A1"}}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTripTransitionsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	trip := s.newTrip(t)

	w := s.do(t, http.MethodPatch, "/api/trips/"+trip.ID+"/start", token(t, "drv-2", "", "driver"), nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, "/api/trips/"+trip.ID+"/complete", token(t, "drv-1", "", "driver"), nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPatch, "/api/trips/"+trip.ID+"/start", token(t, "drv-1", "", "driver"), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPaymentWebhook(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/payments/webhook", "", gin.H{"bookingId": "b-1", "status": "paid"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/payments/webhook", "", gin.H{"bookingId": "b-1", "status": "maybe"},
		map[string]string{"X-Webhook-Secret": hookSecret})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/payments/webhook", "", gin.H{"bookingId": "b-1", "status": "paid"},
		map[string]string{"X-Webhook-Secret": hookSecret})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDriverRevenueAccess(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/drivers/drv-1/revenue/monthly", token(t, "drv-1", "", "driver"), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/drivers/drv-1/revenue/monthly", token(t, "rider-1", "", "rider"), nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/drivers/drv-1/revenue/monthly?year=abc", token(t, "drv-1", "", "driver"), nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouteRoleGuards(t *testing.T) {
	s := newTestServer(t)
	trip := s.newTrip(t)
	rider := token(t, "rider-1", "", "rider")

	w := s.do(t, http.MethodPost, "/api/trips", rider, gin.H{"routeFrom": "A", "routeTo": "B"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, "/api/trips/"+trip.ID+"/cancel", rider, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, "/api/trips/"+trip.ID+"/cancel", token(t, "op-1", testCompany, "operator"), gin.H{"reason": "road closed"}, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRouterWithoutCORSOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	var engine *gin.Engine
	require.NotPanics(t, func() {
		engine = NewRouter(intconfig.Env{JWTSecret: testSecret}, &h.Handlers{Store: store})
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
