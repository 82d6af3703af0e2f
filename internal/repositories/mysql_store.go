package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intdb "bustravel/internal/db"
	"bustravel/internal/domain"
	"bustravel/internal/domain/models"

	"github.com/jmoiron/sqlx"
)

const tripColumns = `id, company_id, route_from, route_to, departure_at, fare, status,
	COALESCE(driver_id,'') AS driver_id, vehicle_id, seat_count, created_at, updated_at`

const seatColumns = `trip_id, seat_number, position, state, COALESCE(hold_id,'') AS hold_id,
	held_until, COALESCE(booking_id,'') AS booking_id`

const holdColumns = `id, trip_id, seat_numbers, owner_id, owner_token_hash, status,
	COALESCE(booking_id,'') AS booking_id, expires_at, created_at, updated_at`

func bookingColumns(alias string) string {
	p := ""
	if alias != "" {
		p = alias + "."
	}
	return fmt.Sprintf(`%[1]sid, %[1]strip_id, %[1]sowner_id, %[1]sseat_numbers, %[1]spassengers,
	%[1]scontact_name, %[1]scontact_phone, %[1]scontact_email, %[1]stotal_amount, %[1]sstatus,
	%[1]spayment_status, %[1]sbooking_time, %[1]scancel_reason, %[1]supdated_at`, p)
}

// MySQLStore keeps trip state in InnoDB. WithTrip locks the trip row with
// SELECT ... FOR UPDATE, which serializes every mutation of that trip.
type MySQLStore struct {
	DB *sqlx.DB
}

var _ Store = MySQLStore{}

func NewMySQLStore(db *sqlx.DB) MySQLStore {
	return MySQLStore{DB: db}
}

func (s MySQLStore) CreateTrip(ctx context.Context, trip models.Trip, seats []models.Seat) (err error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return domain.InternalError{Msg: "could not begin transaction", Err: err}
	}
	defer func() { err = finishTx(tx, err) }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trips (id, company_id, route_from, route_to, departure_at, fare, status,
			driver_id, vehicle_id, seat_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trip.ID, trip.CompanyID, trip.RouteFrom, trip.RouteTo, trip.DepartureAt, trip.Fare, trip.Status,
		intdb.NullIfEmpty(trip.DriverID), trip.VehicleID, trip.SeatCount, trip.CreatedAt, trip.UpdatedAt)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return domain.ConflictError{Resource: "trip", Msg: "trip already exists", Err: err}
		}
		return domain.InternalError{Msg: "could not insert trip", Err: err}
	}
	if len(seats) == 0 {
		return nil
	}

	rows := make([]seatRow, 0, len(seats))
	for _, seat := range seats {
		rows = append(rows, seatRow{TripID: trip.ID, SeatNumber: seat.SeatNumber, Position: seat.Position, State: string(seat.State)})
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO trip_seats (trip_id, seat_number, position, state)
		VALUES (:trip_id, :seat_number, :position, :state)`, rows)
	if err != nil {
		return domain.InternalError{Msg: "could not insert seats", Err: err}
	}
	return nil
}

func (s MySQLStore) SearchTrips(ctx context.Context, q models.TripSearch) ([]models.Trip, error) {
	where := []string{"1=1"}
	args := []any{}
	if q.RouteFrom != "" {
		where = append(where, "route_from = ?")
		args = append(args, q.RouteFrom)
	}
	if q.RouteTo != "" {
		where = append(where, "route_to = ?")
		args = append(args, q.RouteTo)
	}
	if !q.Date.IsZero() {
		y, m, d := q.Date.In(time.Local).Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
		where = append(where, "departure_at >= ?", "departure_at < ?")
		args = append(args, start, start.AddDate(0, 0, 1))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := `SELECT ` + tripColumns + ` FROM trips WHERE ` + strings.Join(where, " AND ") + ` ORDER BY departure_at, id LIMIT ?`
	out := []models.Trip{}
	if err := s.DB.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, domain.InternalError{Msg: "could not search trips", Err: err}
	}
	return out, nil
}

func (s MySQLStore) WithTrip(ctx context.Context, tripID string, fn func(tx TripTx) error) (err error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return domain.InternalError{Msg: "could not begin transaction", Err: err}
	}
	defer func() { err = finishTx(tx, err) }()

	var trip models.Trip
	if err = tx.GetContext(ctx, &trip, `SELECT `+tripColumns+` FROM trips WHERE id = ? FOR UPDATE`, tripID); err != nil {
		return notFoundOr(err, "trip")
	}
	return fn(&mysqlTx{tx: tx, trip: trip})
}

func (s MySQLStore) ViewTrip(ctx context.Context, tripID string, fn func(r TripReader) error) (err error) {
	tx, err := s.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return domain.InternalError{Msg: "could not begin transaction", Err: err}
	}
	defer func() { err = finishTx(tx, err) }()

	var trip models.Trip
	if err = tx.GetContext(ctx, &trip, `SELECT `+tripColumns+` FROM trips WHERE id = ?`, tripID); err != nil {
		return notFoundOr(err, "trip")
	}
	return fn(&mysqlTx{tx: tx, trip: trip, readOnly: true})
}

func (s MySQLStore) LocateHold(ctx context.Context, holdID string) (string, error) {
	var tripID string
	if err := s.DB.GetContext(ctx, &tripID, `SELECT trip_id FROM seat_holds WHERE id = ?`, holdID); err != nil {
		return "", notFoundOr(err, "hold")
	}
	return tripID, nil
}

func (s MySQLStore) LocateBooking(ctx context.Context, bookingID string) (string, error) {
	var tripID string
	if err := s.DB.GetContext(ctx, &tripID, `SELECT trip_id FROM bookings WHERE id = ?`, bookingID); err != nil {
		return "", notFoundOr(err, "booking")
	}
	return tripID, nil
}

func (s MySQLStore) ListActiveHolds(ctx context.Context) ([]models.Hold, error) {
	var rows []holdRow
	err := s.DB.SelectContext(ctx, &rows,
		`SELECT `+holdColumns+` FROM seat_holds WHERE status = ? ORDER BY expires_at, id`, models.HoldActive)
	if err != nil {
		return nil, domain.InternalError{Msg: "could not list active holds", Err: err}
	}
	return holdsFromRows(rows), nil
}

func (s MySQLStore) PurgeHolds(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE status <> ? AND updated_at < ?`, models.HoldActive, before)
	if err != nil {
		return 0, domain.InternalError{Msg: "could not purge holds", Err: err}
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s MySQLStore) UnpaidBookings(ctx context.Context, bookedBefore time.Time, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []bookingRow
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT `+bookingColumns("")+` FROM bookings
		WHERE status = ? AND payment_status IN (?, ?) AND booking_time < ?
		ORDER BY booking_time, id LIMIT ?`,
		models.BookingConfirmed, models.PaymentPending, models.PaymentFailed, bookedBefore, limit)
	if err != nil {
		return nil, domain.InternalError{Msg: "could not list unpaid bookings", Err: err}
	}
	return bookingsFromRows(rows)
}

func (s MySQLStore) DriverRevenueBookings(ctx context.Context, driverID string, year int) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns("b") + ` FROM bookings b
		JOIN trips t ON t.id = b.trip_id
		WHERE t.driver_id = ? AND t.status = ? AND b.payment_status = ? AND b.status IN (?, ?)`
	args := []any{driverID, models.TripArrived, models.PaymentPaid, models.BookingConfirmed, models.BookingCompleted}
	if year > 0 {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
		query += ` AND b.booking_time >= ? AND b.booking_time < ?`
		args = append(args, start, start.AddDate(1, 0, 0))
	}
	query += ` ORDER BY b.booking_time, b.id`

	var rows []bookingRow
	if err := s.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, domain.InternalError{Msg: "could not load driver bookings", Err: err}
	}
	return bookingsFromRows(rows)
}

func (s MySQLStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// finishTx commits on success and rolls back otherwise, keeping the first error.
func finishTx(tx *sqlx.Tx, err error) error {
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if cErr := tx.Commit(); cErr != nil {
		return domain.InternalError{Msg: "could not commit transaction", Err: cErr}
	}
	return nil
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError{Resource: resource, Err: err}
	}
	return domain.InternalError{Msg: "could not load " + resource, Err: err}
}
