package repositories

import (
	"context"
	"time"

	"bustravel/internal/domain/models"
)

// TripReader reads the rows of one trip inside a transaction or snapshot.
// Missing rows are reported as domain.NotFoundError.
type TripReader interface {
	Trip(ctx context.Context) (models.Trip, error)
	Seats(ctx context.Context) ([]models.Seat, error)
	Hold(ctx context.Context, holdID string) (models.Hold, error)
	ActiveHolds(ctx context.Context) ([]models.Hold, error)
	Booking(ctx context.Context, bookingID string) (models.Booking, error)
	Bookings(ctx context.Context) ([]models.Booking, error)
}

// TripTx is an exclusive unit of work on one trip. Nothing written through it
// is visible to others until the enclosing WithTrip returns nil.
type TripTx interface {
	TripReader
	SaveTrip(ctx context.Context, trip models.Trip) error
	SaveSeats(ctx context.Context, seats []models.Seat) error
	SaveHold(ctx context.Context, hold models.Hold) error
	SaveBooking(ctx context.Context, booking models.Booking) error
}

// Store persists trips, seats, holds and bookings. Mutations of one trip are
// serialized through WithTrip; ViewTrip gives a consistent read snapshot.
type Store interface {
	CreateTrip(ctx context.Context, trip models.Trip, seats []models.Seat) error
	SearchTrips(ctx context.Context, q models.TripSearch) ([]models.Trip, error)

	WithTrip(ctx context.Context, tripID string, fn func(tx TripTx) error) error
	ViewTrip(ctx context.Context, tripID string, fn func(r TripReader) error) error

	LocateHold(ctx context.Context, holdID string) (tripID string, err error)
	LocateBooking(ctx context.Context, bookingID string) (tripID string, err error)

	ListActiveHolds(ctx context.Context) ([]models.Hold, error)
	PurgeHolds(ctx context.Context, before time.Time) (int64, error)
	UnpaidBookings(ctx context.Context, bookedBefore time.Time, limit int) ([]models.Booking, error)
	DriverRevenueBookings(ctx context.Context, driverID string, year int) ([]models.Booking, error)

	Ping(ctx context.Context) error
}
