package services

import (
	"context"
	"testing"
	"time"

	"bustravel/internal/domain"
	"bustravel/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatLayout(t *testing.T) {
	got, err := seatLayout(nil, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "A3", "A4", "B1", "B2"}, got)

	got, err = seatLayout([]string{"1a", " 1B", "2A"}, 40)
	require.NoError(t, err)
	assert.Equal(t, []string{"1A", "1B", "2A"}, got)

	_, err = seatLayout([]string{"1A", "1a"}, 0)
	assert.True(t, domain.IsValidation(err))
	_, err = seatLayout(nil, 0)
	assert.True(t, domain.IsValidation(err))

	assert.Equal(t, "A", rowLabel(0))
	assert.Equal(t, "Z", rowLabel(25))
	assert.Equal(t, "AA", rowLabel(26))
}

func TestCreateTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := CreateTripInput{
		RouteFrom:   " Jakarta ",
		RouteTo:     "Bandung",
		DepartureAt: f.clock.Now().Add(24 * time.Hour),
		Fare:        120000,
		VehicleID:   "BUS-02",
		SeatNumbers: []string{"1A", "1B", "2A", "2B"},
	}

	_, err := f.catalog.Create(ctx, rider, in)
	assert.True(t, domain.IsAuthorization(err))
	_, err = f.catalog.Create(ctx, domain.Principal{ID: "op-x", Roles: []domain.Role{domain.RoleOperator}}, in)
	assert.True(t, domain.IsAuthorization(err), "operator without company")

	trip, err := f.catalog.Create(ctx, operator, in)
	require.NoError(t, err)
	assert.Equal(t, "co-1", trip.CompanyID)
	assert.Equal(t, "Jakarta", trip.RouteFrom)
	assert.Equal(t, 4, trip.SeatCount)
	assert.Equal(t, models.TripScheduled, trip.Status)
	assert.Empty(t, trip.DriverID)

	sm, err := f.catalog.SeatMap(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, sm.Free)
	assert.Equal(t, "1A", sm.Seats[0].SeatNumber)

	bad := in
	bad.DepartureAt = f.clock.Now().Add(-time.Minute)
	_, err = f.catalog.Create(ctx, operator, bad)
	assert.True(t, domain.IsValidation(err))

	bad = in
	bad.RouteTo = "Jakarta"
	_, err = f.catalog.Create(ctx, operator, bad)
	assert.True(t, domain.IsValidation(err))

	bad = in
	bad.Fare = 0
	_, err = f.catalog.Create(ctx, operator, bad)
	assert.True(t, domain.IsValidation(err))
}

func TestSearchTrips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.newTrip(t, 4)
	f.clock.Advance(24 * time.Hour)
	second := f.newTrip(t, 4)

	got, err := f.catalog.Search(ctx, models.TripSearch{RouteFrom: "jakarta", RouteTo: "Bandung"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)

	got, err = f.catalog.Search(ctx, models.TripSearch{RouteFrom: "Jakarta", Date: second.DepartureAt})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, second.ID, got[0].ID)

	got, err = f.catalog.Search(ctx, models.TripSearch{RouteFrom: "Surabaya"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.catalog.Search(ctx, models.TripSearch{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = f.catalog.Get(ctx, "missing")
	assert.True(t, domain.IsNotFound(err))
}
