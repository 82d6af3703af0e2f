package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bustravel/internal/domain"
	"bustravel/internal/domain/models"
	"bustravel/internal/events"
	"bustravel/internal/metrics"
	"bustravel/internal/repositories"
	"bustravel/internal/utils"
)

// tripTransitions lists the only legal trip status changes.
var tripTransitions = map[models.TripStatus][]models.TripStatus{
	models.TripScheduled: {models.TripDeparted, models.TripCancelled},
	models.TripDeparted:  {models.TripArrived},
}

func canMoveTrip(from, to models.TripStatus) bool {
	for _, s := range tripTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TripLifecycle drives SCHEDULED -> DEPARTED -> ARRIVED and SCHEDULED -> CANCELLED.
// Authorization is checked before the state, so a wrong driver learns nothing
// about the trip.
type TripLifecycle struct {
	Store    repositories.Store
	Holds    *HoldManager
	Bookings *BookingWorkflow
	Events   events.Publisher
	Now      func() time.Time
}

func (l *TripLifecycle) now() time.Time { return clock(l.Now).now() }

// AssignDriver sets the trip's driver. Operators of the trip's company only,
// while the trip is SCHEDULED.
func (l *TripLifecycle) AssignDriver(ctx context.Context, p domain.Principal, tripID, driverID string) (models.Trip, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return models.Trip{}, domain.ValidationError{Field: "driverId", Code: domain.CodeInvalidField, Msg: "required"}
	}
	var trip models.Trip
	err := l.Store.WithTrip(ctx, tripID, func(tx repositories.TripTx) error {
		var err error
		trip, err = tx.Trip(ctx)
		if err != nil {
			return err
		}
		if err := domain.RequireOperatorOf(p, trip.CompanyID); err != nil {
			return err
		}
		if trip.Status != models.TripScheduled {
			return domain.InvalidTransitionError{Entity: "trip", Current: string(trip.Status), Action: "assign driver to"}
		}
		trip.DriverID = driverID
		trip.UpdatedAt = l.now()
		return tx.SaveTrip(ctx, trip)
	})
	if err != nil {
		return models.Trip{}, err
	}
	utils.LogEventCtx(ctx, "trips", "assign_driver", fmt.Sprintf("trip_id=%s driver_id=%s", trip.ID, driverID))
	return trip, nil
}

// Start moves the trip to DEPARTED and releases every outstanding hold.
func (l *TripLifecycle) Start(ctx context.Context, p domain.Principal, tripID string) (models.Trip, error) {
	var released []models.Hold
	trip, err := l.transition(ctx, p, tripID, models.TripDeparted, "", requireAssignedDriver, func(tx repositories.TripTx) error {
		var err error
		released, err = l.Holds.ReleaseTripHolds(ctx, tx)
		return err
	})
	if err != nil {
		return models.Trip{}, err
	}
	l.Holds.forget(ctx, released, ReleaseTripStarted)
	return trip, nil
}

// Complete moves the trip to ARRIVED and completes its CONFIRMED bookings in
// the same transaction.
func (l *TripLifecycle) Complete(ctx context.Context, p domain.Principal, tripID string) (models.Trip, error) {
	var completed []models.Booking
	trip, err := l.transition(ctx, p, tripID, models.TripArrived, "", requireAssignedDriver, func(tx repositories.TripTx) error {
		var err error
		completed, err = l.Bookings.CompleteTrip(ctx, tx)
		return err
	})
	if err != nil {
		return models.Trip{}, err
	}
	evts := make([]any, 0, len(completed))
	for _, b := range completed {
		evts = append(evts, &events.BookingCompleted{
			Header:    events.NewEventHeaderWithIdempotencyKey(b.ID + ":completed"),
			BookingID: b.ID,
			TripID:    b.TripID,
		})
	}
	publish(ctx, l.Events, evts...)
	return trip, nil
}

// CancelTrip cancels a SCHEDULED trip. Its bookings are cancelled and refunded
// and its holds released.
func (l *TripLifecycle) CancelTrip(ctx context.Context, p domain.Principal, tripID, reason string) (models.Trip, error) {
	reason = utils.NormalizeSpace(reason)
	if reason == "" {
		reason = "trip cancelled by operator"
	}
	var (
		released  []models.Hold
		cancelled []models.Booking
	)
	trip, err := l.transition(ctx, p, tripID, models.TripCancelled, reason, requireCompanyOperator, func(tx repositories.TripTx) error {
		var err error
		if released, err = l.Holds.ReleaseTripHolds(ctx, tx); err != nil {
			return err
		}
		cancelled, err = l.Bookings.CancelTripBookings(ctx, tx, reason)
		return err
	})
	if err != nil {
		return models.Trip{}, err
	}
	l.Holds.forget(ctx, released, ReleaseTripCancelled)
	for _, b := range cancelled {
		publish(ctx, l.Events, cancellationEvents(b)...)
	}
	return trip, nil
}

func requireAssignedDriver(p domain.Principal, trip models.Trip) error {
	if err := domain.RequireRole(p, domain.RoleDriver); err != nil {
		return err
	}
	if trip.DriverID == "" || trip.DriverID != p.ID {
		return domain.AuthorizationError{}
	}
	return nil
}

func requireCompanyOperator(p domain.Principal, trip models.Trip) error {
	return domain.RequireOperatorOf(p, trip.CompanyID)
}

// transition runs authorize, the state check, cascade and the trip update in one
// trip transaction, then announces the change.
func (l *TripLifecycle) transition(
	ctx context.Context,
	p domain.Principal,
	tripID string,
	to models.TripStatus,
	reason string,
	authorize func(domain.Principal, models.Trip) error,
	cascade func(tx repositories.TripTx) error,
) (models.Trip, error) {
	var (
		trip models.Trip
		from models.TripStatus
	)
	err := l.Store.WithTrip(ctx, tripID, func(tx repositories.TripTx) error {
		var err error
		trip, err = tx.Trip(ctx)
		if err != nil {
			return err
		}
		if err := authorize(p, trip); err != nil {
			return err
		}
		from = trip.Status
		if !canMoveTrip(from, to) {
			return domain.InvalidTransitionError{Entity: "trip", Current: string(from), Action: "move to " + string(to)}
		}
		if err := cascade(tx); err != nil {
			return err
		}
		trip.Status = to
		trip.UpdatedAt = l.now()
		return tx.SaveTrip(ctx, trip)
	})
	if err != nil {
		return models.Trip{}, err
	}

	metrics.TripTransitions.WithLabelValues(string(to)).Inc()
	utils.LogEventCtx(ctx, "trips", "transition", fmt.Sprintf("trip_id=%s from=%s to=%s", trip.ID, from, to))
	publish(ctx, l.Events, &events.TripStatusChanged{
		Header:  events.NewEventHeaderWithIdempotencyKey(trip.ID + ":" + string(to)),
		TripID:  trip.ID,
		From:    from,
		To:      to,
		ActorID: p.ID,
		Reason:  reason,
	})
	return trip, nil
}
