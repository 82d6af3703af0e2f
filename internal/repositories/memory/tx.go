package memory

import (
	"context"
	"errors"
	"sort"

	"bustravel/internal/domain"
	"bustravel/internal/domain/models"
)

var errReadOnly = errors.New("memory: write in read-only view")

type memTx struct {
	state    *tripState
	readOnly bool
	holds    map[string]struct{}
	bookings map[string]struct{}
}

func (tx *memTx) Trip(context.Context) (models.Trip, error) {
	return tx.state.trip, nil
}

func (tx *memTx) Seats(context.Context) ([]models.Seat, error) {
	out := make([]models.Seat, len(tx.state.seats))
	copy(out, tx.state.seats)
	return out, nil
}

func (tx *memTx) Hold(_ context.Context, holdID string) (models.Hold, error) {
	h, ok := tx.state.holds[holdID]
	if !ok {
		return models.Hold{}, domain.NotFoundError{Resource: "hold"}
	}
	return cloneHold(h), nil
}

func (tx *memTx) ActiveHolds(context.Context) ([]models.Hold, error) {
	out := []models.Hold{}
	for _, h := range tx.state.holds {
		if h.Status == models.HoldActive {
			out = append(out, cloneHold(h))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (tx *memTx) Booking(_ context.Context, bookingID string) (models.Booking, error) {
	b, ok := tx.state.bookings[bookingID]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return cloneBooking(b), nil
}

func (tx *memTx) Bookings(context.Context) ([]models.Booking, error) {
	out := make([]models.Booking, 0, len(tx.state.bookings))
	for _, b := range tx.state.bookings {
		out = append(out, cloneBooking(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookingTime.Equal(out[j].BookingTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].BookingTime.Before(out[j].BookingTime)
	})
	return out, nil
}

func (tx *memTx) SaveTrip(_ context.Context, trip models.Trip) error {
	if tx.readOnly {
		return errReadOnly
	}
	if trip.ID != tx.state.trip.ID {
		return domain.InternalError{Msg: "trip id mismatch"}
	}
	tx.state.trip = trip
	return nil
}

func (tx *memTx) SaveSeats(_ context.Context, seats []models.Seat) error {
	if tx.readOnly {
		return errReadOnly
	}
	idx := make(map[string]int, len(tx.state.seats))
	for i, s := range tx.state.seats {
		idx[s.SeatNumber] = i
	}
	for _, s := range seats {
		i, ok := idx[s.SeatNumber]
		if !ok {
			return domain.NotFoundError{Resource: "seat " + s.SeatNumber}
		}
		s.TripID = tx.state.trip.ID
		s.Position = tx.state.seats[i].Position
		tx.state.seats[i] = s
	}
	return nil
}

func (tx *memTx) SaveHold(_ context.Context, hold models.Hold) error {
	if tx.readOnly {
		return errReadOnly
	}
	hold.TripID = tx.state.trip.ID
	tx.state.holds[hold.ID] = cloneHold(hold)
	tx.holds[hold.ID] = struct{}{}
	return nil
}

func (tx *memTx) SaveBooking(_ context.Context, booking models.Booking) error {
	if tx.readOnly {
		return errReadOnly
	}
	booking.TripID = tx.state.trip.ID
	tx.state.bookings[booking.ID] = cloneBooking(booking)
	tx.bookings[booking.ID] = struct{}{}
	return nil
}
