package services

import (
	"context"
	"time"

	"bustravel/internal/domain"
	"bustravel/internal/domain/models"
	"bustravel/internal/repositories"
	"bustravel/internal/utils"

	"github.com/samber/lo"
)

// SeatLedger is the only code that writes seat rows. The *Hold/*Booking
// methods run inside a trip transaction opened by the caller so holds,
// bookings and trips can change atomically with their seats.
type SeatLedger struct {
	Store repositories.Store
	Now   func() time.Time
}

func NewSeatLedger(store repositories.Store) *SeatLedger {
	return &SeatLedger{Store: store}
}

// HoldSeats moves every requested seat from FREE to HELD(holdID), or none.
// Unknown seat numbers are reported as unavailable.
func (l *SeatLedger) HoldSeats(ctx context.Context, tx repositories.TripTx, seatNumbers []string, holdID string, until time.Time) error {
	seats, err := tx.Seats(ctx)
	if err != nil {
		return err
	}
	byNumber := lo.KeyBy(seats, func(s models.Seat) string { return s.SeatNumber })

	unavailable := []string{}
	for _, n := range seatNumbers {
		s, ok := byNumber[n]
		if !ok || s.State != models.SeatFree {
			unavailable = append(unavailable, n)
		}
	}
	if len(unavailable) > 0 {
		return domain.SeatUnavailable(unavailable)
	}

	changed := make([]models.Seat, 0, len(seatNumbers))
	for _, n := range seatNumbers {
		s := byNumber[n]
		heldUntil := until
		s.State = models.SeatHeld
		s.HoldID = holdID
		s.HeldUntil = &heldUntil
		s.BookingID = ""
		changed = append(changed, s)
	}
	return tx.SaveSeats(ctx, changed)
}

// ReleaseHold frees the seats held by holdID. Releasing twice is a no-op.
func (l *SeatLedger) ReleaseHold(ctx context.Context, tx repositories.TripTx, holdID string) ([]string, error) {
	return l.freeWhere(ctx, tx, func(s models.Seat) bool {
		return s.State == models.SeatHeld && s.HoldID == holdID
	})
}

// ReleaseBooking frees the seats booked by bookingID.
func (l *SeatLedger) ReleaseBooking(ctx context.Context, tx repositories.TripTx, bookingID string) ([]string, error) {
	return l.freeWhere(ctx, tx, func(s models.Seat) bool {
		return s.State == models.SeatBooked && s.BookingID == bookingID
	})
}

// CommitHold converts HELD(holdID) seats into BOOKED(bookingID). It fails with
// HoldExpired when no seat is held by holdID any more or the hold's time ran out.
func (l *SeatLedger) CommitHold(ctx context.Context, tx repositories.TripTx, holdID, bookingID string, now time.Time) ([]string, error) {
	held, err := l.heldBy(ctx, tx, holdID)
	if err != nil {
		return nil, err
	}
	if len(held) == 0 {
		return nil, domain.HoldExpired()
	}
	for _, s := range held {
		if s.HeldUntil == nil || !s.HeldUntil.After(now) {
			return nil, domain.HoldExpired()
		}
	}
	numbers := make([]string, 0, len(held))
	for i := range held {
		held[i].State = models.SeatBooked
		held[i].HoldID = ""
		held[i].HeldUntil = nil
		held[i].BookingID = bookingID
		numbers = append(numbers, held[i].SeatNumber)
	}
	if err := tx.SaveSeats(ctx, held); err != nil {
		return nil, err
	}
	return numbers, nil
}

// ExtendHold moves heldUntil of the hold's seats.
func (l *SeatLedger) ExtendHold(ctx context.Context, tx repositories.TripTx, holdID string, until time.Time) error {
	held, err := l.heldBy(ctx, tx, holdID)
	if err != nil {
		return err
	}
	if len(held) == 0 {
		return domain.HoldExpired()
	}
	for i := range held {
		heldUntil := until
		held[i].HeldUntil = &heldUntil
	}
	return tx.SaveSeats(ctx, held)
}

// TryHold holds seats outside of a hold record, in its own transaction.
func (l *SeatLedger) TryHold(ctx context.Context, tripID string, seatNumbers []string, holdID string, ttl time.Duration) error {
	seatNumbers = utils.NormalizeSeatNumbers(seatNumbers)
	if err := checkSeatRequest(seatNumbers, 0); err != nil {
		return err
	}
	if ttl <= 0 {
		return domain.ValidationError{Field: "ttl", Code: domain.CodeInvalidField, Msg: "must be positive"}
	}
	until := clock(l.Now).now().Add(ttl)
	return l.Store.WithTrip(ctx, tripID, func(tx repositories.TripTx) error {
		return l.HoldSeats(ctx, tx, seatNumbers, holdID, until)
	})
}

// Release frees the seats of holdID on tripID.
func (l *SeatLedger) Release(ctx context.Context, tripID, holdID string) error {
	return l.Store.WithTrip(ctx, tripID, func(tx repositories.TripTx) error {
		_, err := l.ReleaseHold(ctx, tx, holdID)
		return err
	})
}

// Commit books the seats of holdID on tripID for bookingID.
func (l *SeatLedger) Commit(ctx context.Context, tripID, holdID, bookingID string) error {
	now := clock(l.Now).now()
	return l.Store.WithTrip(ctx, tripID, func(tx repositories.TripTx) error {
		_, err := l.CommitHold(ctx, tx, holdID, bookingID, now)
		return err
	})
}

// SeatsOf returns a consistent snapshot of the trip's seat map.
func (l *SeatLedger) SeatsOf(ctx context.Context, tripID string) (models.SeatMap, error) {
	var out models.SeatMap
	err := l.Store.ViewTrip(ctx, tripID, func(r repositories.TripReader) error {
		trip, err := r.Trip(ctx)
		if err != nil {
			return err
		}
		seats, err := r.Seats(ctx)
		if err != nil {
			return err
		}
		out = models.SeatMap{TripID: trip.ID, Status: trip.Status, Seats: seats}
		for _, s := range seats {
			switch s.State {
			case models.SeatFree:
				out.Free++
			case models.SeatHeld:
				out.Held++
			case models.SeatBooked:
				out.Booked++
			}
		}
		return nil
	})
	return out, err
}

func (l *SeatLedger) heldBy(ctx context.Context, tx repositories.TripTx, holdID string) ([]models.Seat, error) {
	seats, err := tx.Seats(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(seats, func(s models.Seat, _ int) bool {
		return s.State == models.SeatHeld && s.HoldID == holdID
	}), nil
}

func (l *SeatLedger) freeWhere(ctx context.Context, tx repositories.TripTx, match func(models.Seat) bool) ([]string, error) {
	seats, err := tx.Seats(ctx)
	if err != nil {
		return nil, err
	}
	changed := []models.Seat{}
	for _, s := range seats {
		if match(s) {
			s.Free()
			changed = append(changed, s)
		}
	}
	if len(changed) == 0 {
		return []string{}, nil
	}
	if err := tx.SaveSeats(ctx, changed); err != nil {
		return nil, err
	}
	return lo.Map(changed, func(s models.Seat, _ int) string { return s.SeatNumber }), nil
}

// checkSeatRequest rejects empty, oversized and duplicate seat lists.
func checkSeatRequest(seatNumbers []string, max int) error {
	if len(seatNumbers) == 0 {
		return domain.ValidationError{Field: "seatNumbers", Code: domain.CodeInvalidField, Msg: "at least one seat is required"}
	}
	if max > 0 && len(seatNumbers) > max {
		return domain.ValidationError{Field: "seatNumbers", Code: domain.CodeInvalidField, Msg: "too many seats in one hold"}
	}
	if dup := utils.DuplicateSeats(seatNumbers); len(dup) > 0 {
		return domain.ValidationError{Field: "seatNumbers", Code: domain.CodeInvalidField, Msg: "duplicate seat " + dup[0]}
	}
	return nil
}
