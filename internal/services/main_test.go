package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"bustravel/internal/domain"
	"bustravel/internal/domain/models"
	"bustravel/internal/events"
	"bustravel/internal/holdindex"
	"bustravel/internal/repositories/memory"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []any
}

func (r *recordingPublisher) Publish(_ context.Context, event any) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

// names returns the names of recorded events, in publish order.
func (r *recordingPublisher) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, events.Name(e))
	}
	return out
}

func (r *recordingPublisher) count(name string) int {
	n := 0
	for _, got := range r.names() {
		if got == name {
			n++
		}
	}
	return n
}

var (
	rider    = domain.Principal{ID: "rider-1", Roles: []domain.Role{domain.RoleRider}}
	rider2   = domain.Principal{ID: "rider-2", Roles: []domain.Role{domain.RoleRider}}
	operator = domain.Principal{ID: "op-1", Roles: []domain.Role{domain.RoleOperator}, CompanyID: "co-1"}
	otherOp  = domain.Principal{ID: "op-9", Roles: []domain.Role{domain.RoleOperator}, CompanyID: "co-9"}
	driver   = domain.Principal{ID: "drv-1", Roles: []domain.Role{domain.RoleDriver}}
	driver2  = domain.Principal{ID: "drv-2", Roles: []domain.Role{domain.RoleDriver}}
)

type fixture struct {
	clock    *fakeClock
	store    *memory.Store
	index    *holdindex.Heap
	events   *recordingPublisher
	ledger   *SeatLedger
	holds    *HoldManager
	bookings *BookingWorkflow
	trips    *TripLifecycle
	catalog  *TripCatalog
	revenue  RevenueAggregator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:  newFakeClock(),
		store:  memory.NewStore(),
		index:  holdindex.NewHeap(),
		events: &recordingPublisher{},
	}
	f.ledger = &SeatLedger{Store: f.store, Now: f.clock.Now}
	f.holds = &HoldManager{
		Store:  f.store,
		Ledger: f.ledger,
		Index:  f.index,
		Events: f.events,
		Config: DefaultHoldConfig(),
		Now:    f.clock.Now,
	}
	f.bookings = &BookingWorkflow{
		Store:  f.store,
		Ledger: f.ledger,
		Holds:  f.holds,
		Events: f.events,
		Config: BookingConfig{CancelLeadTime: 2 * time.Hour},
		Now:    f.clock.Now,
	}
	f.holds.Expirer = f.bookings
	f.trips = &TripLifecycle{
		Store:    f.store,
		Holds:    f.holds,
		Bookings: f.bookings,
		Events:   f.events,
		Now:      f.clock.Now,
	}
	f.catalog = &TripCatalog{Store: f.store, Ledger: f.ledger, Now: f.clock.Now}
	f.revenue = RevenueAggregator{Store: f.store}
	return f
}

// newTrip creates a SCHEDULED trip of co-1 driven by drv-1, departing in 2 days.
func (f *fixture) newTrip(t *testing.T, seats int) models.Trip {
	t.Helper()
	trip, err := f.catalog.Create(context.Background(), operator, CreateTripInput{
		RouteFrom:   "Jakarta",
		RouteTo:     "Bandung",
		DepartureAt: f.clock.Now().Add(48 * time.Hour),
		Fare:        150000,
		VehicleID:   "BUS-01",
		DriverID:    driver.ID,
		SeatCount:   seats,
	})
	require.NoError(t, err)
	return trip
}

func (f *fixture) hold(t *testing.T, p domain.Principal, tripID string, seats ...string) (models.Hold, string) {
	t.Helper()
	h, token, err := f.holds.CreateHold(context.Background(), p, CreateHoldInput{TripID: tripID, SeatNumbers: seats})
	require.NoError(t, err)
	return h, token
}

func passengers(seats ...string) []models.Passenger {
	out := make([]models.Passenger, len(seats))
	for i, s := range seats {
		out[i] = models.Passenger{Name: "Passenger " + s, Phone: "0812345678", SeatNumber: s}
	}
	return out
}

var contact = models.ContactInfo{Name: "Budi", Phone: "+62 812 3456 789", Email: "budi@example.com"}

func (f *fixture) book(t *testing.T, p domain.Principal, tripID string, seats ...string) models.Booking {
	t.Helper()
	h, token := f.hold(t, p, tripID, seats...)
	b, err := f.bookings.Confirm(context.Background(), p, ConfirmInput{
		HoldID:     h.ID,
		OwnerToken: token,
		Passengers: passengers(seats...),
		Contact:    contact,
	})
	require.NoError(t, err)
	return b
}

func seatStates(t *testing.T, f *fixture, tripID string) map[string]models.SeatState {
	t.Helper()
	sm, err := f.ledger.SeatsOf(context.Background(), tripID)
	require.NoError(t, err)
	out := map[string]models.SeatState{}
	for _, s := range sm.Seats {
		out[s.SeatNumber] = s.State
	}
	return out
}
