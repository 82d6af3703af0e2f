// Package memory is an in-process Store used by tests and single-node runs
// (STORE=memory). Each trip has its own lock; a transaction works on a copy
// of the trip's rows and swaps it in on success.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bustravel/internal/domain"
	"bustravel/internal/domain/models"
	"bustravel/internal/repositories"
)

type Store struct {
	mu       sync.RWMutex
	trips    map[string]*tripEntry
	holds    map[string]string // hold id -> trip id
	bookings map[string]string // booking id -> trip id
}

type tripEntry struct {
	mu    sync.RWMutex
	state tripState
}

type tripState struct {
	trip     models.Trip
	seats    []models.Seat
	holds    map[string]models.Hold
	bookings map[string]models.Booking
}

var _ repositories.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		trips:    map[string]*tripEntry{},
		holds:    map[string]string{},
		bookings: map[string]string{},
	}
}

func (s *Store) CreateTrip(_ context.Context, trip models.Trip, seats []models.Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trips[trip.ID]; ok {
		return domain.ConflictError{Resource: "trip", Msg: "trip already exists"}
	}
	st := tripState{
		trip:     trip,
		seats:    make([]models.Seat, len(seats)),
		holds:    map[string]models.Hold{},
		bookings: map[string]models.Booking{},
	}
	copy(st.seats, seats)
	s.trips[trip.ID] = &tripEntry{state: st}
	return nil
}

func (s *Store) SearchTrips(_ context.Context, q models.TripSearch) ([]models.Trip, error) {
	out := []models.Trip{}
	for _, e := range s.entries() {
		e.mu.RLock()
		t := e.state.trip
		e.mu.RUnlock()

		if q.RouteFrom != "" && !strings.EqualFold(t.RouteFrom, q.RouteFrom) {
			continue
		}
		if q.RouteTo != "" && !strings.EqualFold(t.RouteTo, q.RouteTo) {
			continue
		}
		if !q.Date.IsZero() {
			y1, m1, d1 := t.DepartureAt.In(time.Local).Date()
			y2, m2, d2 := q.Date.In(time.Local).Date()
			if y1 != y2 || m1 != m2 || d1 != d2 {
				continue
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DepartureAt.Equal(out[j].DepartureAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DepartureAt.Before(out[j].DepartureAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) WithTrip(ctx context.Context, tripID string, fn func(tx repositories.TripTx) error) error {
	e, err := s.entry(tripID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.state.clone()
	tx := &memTx{state: &work, holds: map[string]struct{}{}, bookings: map[string]struct{}{}}
	if err := fn(tx); err != nil {
		return err
	}
	e.state = work

	if len(tx.holds) > 0 || len(tx.bookings) > 0 {
		s.mu.Lock()
		for id := range tx.holds {
			s.holds[id] = tripID
		}
		for id := range tx.bookings {
			s.bookings[id] = tripID
		}
		s.mu.Unlock()
	}
	return nil
}

func (s *Store) ViewTrip(ctx context.Context, tripID string, fn func(r repositories.TripReader) error) error {
	e, err := s.entry(tripID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	return fn(&memTx{state: &e.state, readOnly: true})
}

func (s *Store) LocateHold(_ context.Context, holdID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tripID, ok := s.holds[holdID]
	if !ok {
		return "", domain.NotFoundError{Resource: "hold"}
	}
	return tripID, nil
}

func (s *Store) LocateBooking(_ context.Context, bookingID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tripID, ok := s.bookings[bookingID]
	if !ok {
		return "", domain.NotFoundError{Resource: "booking"}
	}
	return tripID, nil
}

func (s *Store) ListActiveHolds(_ context.Context) ([]models.Hold, error) {
	out := []models.Hold{}
	for _, e := range s.entries() {
		e.mu.RLock()
		for _, h := range e.state.holds {
			if h.Status == models.HoldActive {
				out = append(out, cloneHold(h))
			}
		}
		e.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (s *Store) PurgeHolds(_ context.Context, before time.Time) (int64, error) {
	var purged []string
	for _, e := range s.entries() {
		e.mu.Lock()
		for id, h := range e.state.holds {
			if h.Status != models.HoldActive && h.UpdatedAt.Before(before) {
				delete(e.state.holds, id)
				purged = append(purged, id)
			}
		}
		e.mu.Unlock()
	}

	s.mu.Lock()
	for _, id := range purged {
		delete(s.holds, id)
	}
	s.mu.Unlock()
	return int64(len(purged)), nil
}

func (s *Store) UnpaidBookings(_ context.Context, bookedBefore time.Time, limit int) ([]models.Booking, error) {
	out := []models.Booking{}
	for _, e := range s.entries() {
		e.mu.RLock()
		for _, b := range e.state.bookings {
			if b.Status != models.BookingConfirmed {
				continue
			}
			if b.PaymentStatus != models.PaymentPending && b.PaymentStatus != models.PaymentFailed {
				continue
			}
			if b.BookingTime.Before(bookedBefore) {
				out = append(out, cloneBooking(b))
			}
		}
		e.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingTime.Before(out[j].BookingTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DriverRevenueBookings(_ context.Context, driverID string, year int) ([]models.Booking, error) {
	out := []models.Booking{}
	for _, e := range s.entries() {
		e.mu.RLock()
		t := e.state.trip
		if t.DriverID == driverID && t.Status == models.TripArrived {
			for _, b := range e.state.bookings {
				if b.PaymentStatus != models.PaymentPaid {
					continue
				}
				if b.Status != models.BookingConfirmed && b.Status != models.BookingCompleted {
					continue
				}
				if year > 0 && b.BookingTime.In(time.Local).Year() != year {
					continue
				}
				out = append(out, cloneBooking(b))
			}
		}
		e.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookingTime.Equal(out[j].BookingTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].BookingTime.Before(out[j].BookingTime)
	})
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) entry(tripID string) (*tripEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.trips[tripID]
	if !ok {
		return nil, domain.NotFoundError{Resource: "trip"}
	}
	return e, nil
}

func (s *Store) entries() []*tripEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*tripEntry, 0, len(s.trips))
	for _, e := range s.trips {
		out = append(out, e)
	}
	return out
}

func (st tripState) clone() tripState {
	out := tripState{
		trip:     st.trip,
		seats:    make([]models.Seat, len(st.seats)),
		holds:    make(map[string]models.Hold, len(st.holds)),
		bookings: make(map[string]models.Booking, len(st.bookings)),
	}
	copy(out.seats, st.seats)
	for id, h := range st.holds {
		out.holds[id] = h
	}
	for id, b := range st.bookings {
		out.bookings[id] = b
	}
	return out
}

func cloneHold(h models.Hold) models.Hold {
	h.SeatNumbers = append([]string(nil), h.SeatNumbers...)
	return h
}

func cloneBooking(b models.Booking) models.Booking {
	b.SeatNumbers = append([]string(nil), b.SeatNumbers...)
	b.Passengers = append([]models.Passenger(nil), b.Passengers...)
	return b
}
