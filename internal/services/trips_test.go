package services

import (
	"context"
	"testing"

	"bustravel/internal/domain"
	"bustravel/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Driver runs SCHEDULED -> DEPARTED -> ARRIVED; every other move is rejected
// with the current state.
func TestTripLifecycleIsMonotonic(t *testing.T) {
	f := newFixture(t)
	trip := f.newTrip(t, 8)
	ctx := context.Background()

	_, err := f.trips.Complete(ctx, driver, trip.ID)
	var tErr domain.InvalidTransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, string(models.TripScheduled), tErr.Current)

	got, err := f.trips.Start(ctx, driver, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripDeparted, got.Status)

	_, err = f.trips.Start(ctx, driver, trip.ID)
	assert.True(t, domain.IsInvalidTransition(err))
	_, err = f.trips.CancelTrip(ctx, operator, trip.ID, "")
	assert.True(t, domain.IsInvalidTransition(err))

	got, err = f.trips.Complete(ctx, driver, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripArrived, got.Status)

	for _, move := range []func() (models.Trip, error){
		func() (models.Trip, error) { return f.trips.Start(ctx, driver, trip.ID) },
		func() (models.Trip, error) { return f.trips.Complete(ctx, driver, trip.ID) },
		func() (models.Trip, error) { return f.trips.CancelTrip(ctx, operator, trip.ID, "") },
		func() (models.Trip, error) { return f.trips.AssignDriver(ctx, operator, trip.ID, driver2.ID) },
	} {
		_, err := move()
		require.ErrorAs(t, err, &tErr)
		assert.Equal(t, string(models.TripArrived), tErr.Current)
	}
	assert.Equal(t, 2, f.events.count("TripStatusChanged"))
}

// A driver who is not assigned cannot start the trip and learns nothing
// about its state.
func TestWrongDriverIsRejected(t *testing.T) {
	f := newFixture(t)
	trip := f.newTrip(t, 8)
	ctx := context.Background()

	_, err := f.trips.Start(ctx, driver2, trip.ID)
	assert.True(t, domain.IsAuthorization(err))
	_, err = f.trips.Start(ctx, rider, trip.ID)
	assert.True(t, domain.IsAuthorization(err))

	got, err := f.catalog.Get(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripScheduled, got.Status)

	_, err = f.trips.Complete(ctx, driver2, trip.ID)
	assert.True(t, domain.IsAuthorization(err), "authorization is checked before state")
}

func TestAssignDriver(t *testing.T) {
	f := newFixture(t)
	trip := f.newTrip(t, 8)
	ctx := context.Background()

	_, err := f.trips.AssignDriver(ctx, otherOp, trip.ID, driver2.ID)
	assert.True(t, domain.IsAuthorization(err))
	_, err = f.trips.AssignDriver(ctx, operator, trip.ID, " ")
	assert.True(t, domain.IsValidation(err))

	got, err := f.trips.AssignDriver(ctx, operator, trip.ID, driver2.ID)
	require.NoError(t, err)
	assert.Equal(t, driver2.ID, got.DriverID)

	_, err = f.trips.Start(ctx, driver, trip.ID)
	assert.True(t, domain.IsAuthorization(err))
	_, err = f.trips.Start(ctx, driver2, trip.ID)
	require.NoError(t, err)
}

func TestStartReleasesOutstandingHolds(t *testing.T) {
	f := newFixture(t)
	trip := f.newTrip(t, 8)
	ctx := context.Background()

	h, token := f.hold(t, rider, trip.ID, "A1")
	f.book(t, rider2, trip.ID, "A2")

	_, err := f.trips.Start(ctx, driver, trip.ID)
	require.NoError(t, err)

	states := seatStates(t, f, trip.ID)
	assert.Equal(t, models.SeatFree, states["A1"])
	assert.Equal(t, models.SeatBooked, states["A2"])

	_, err = f.bookings.Confirm(ctx, rider, ConfirmInput{HoldID: h.ID, OwnerToken: token, Passengers: passengers("A1"), Contact: contact})
	assert.True(t, domain.IsHoldExpired(err))

	n, err := f.index.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCompleteTripCompletesBookings(t *testing.T) {
	f := newFixture(t)
	trip := f.newTrip(t, 8)
	ctx := context.Background()

	confirmed := f.book(t, rider, trip.ID, "A1")
	cancelled := f.book(t, rider2, trip.ID, "A2")
	_, err := f.bookings.Cancel(ctx, rider2, cancelled.ID, "")
	require.NoError(t, err)

	_, err = f.trips.Start(ctx, driver, trip.ID)
	require.NoError(t, err)
	_, err = f.trips.Complete(ctx, driver, trip.ID)
	require.NoError(t, err)

	got, _, err := f.bookings.Get(ctx, rider, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, got.Status)
	assert.Equal(t, models.SeatBooked, seatStates(t, f, trip.ID)["A1"])

	got, _, err = f.bookings.Get(ctx, rider2, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, got.Status)
	assert.Equal(t, 1, f.events.count("BookingCompleted"))
}

func TestCancelTripCascades(t *testing.T) {
	f := newFixture(t)
	trip := f.newTrip(t, 8)
	ctx := context.Background()

	f.hold(t, rider, trip.ID, "A1")
	paid := f.book(t, rider2, trip.ID, "A2", "A3")
	_, err := f.bookings.OnPaymentConfirmed(ctx, paid.ID)
	require.NoError(t, err)

	_, err = f.trips.CancelTrip(ctx, driver, trip.ID, "")
	assert.True(t, domain.IsAuthorization(err))

	got, err := f.trips.CancelTrip(ctx, operator, trip.ID, "bus broke down")
	require.NoError(t, err)
	assert.Equal(t, models.TripCancelled, got.Status)

	b, _, err := f.bookings.Get(ctx, rider2, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, b.Status)
	assert.Equal(t, models.PaymentRefunded, b.PaymentStatus)
	assert.Equal(t, "bus broke down", b.CancelReason)

	sm, err := f.ledger.SeatsOf(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, sm.Free)
	assert.Equal(t, models.TripCancelled, sm.Status)
	assert.Equal(t, 1, f.events.count("BookingRefundRequested"))
}
