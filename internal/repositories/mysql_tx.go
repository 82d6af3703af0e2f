package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	intdb "bustravel/internal/db"
	"bustravel/internal/domain"
	"bustravel/internal/domain/models"

	"github.com/jmoiron/sqlx"
)

var errReadOnlyView = errors.New("repositories: write in read-only view")

type seatRow struct {
	TripID     string `db:"trip_id"`
	SeatNumber string `db:"seat_number"`
	Position   int    `db:"position"`
	State      string `db:"state"`
}

type holdRow struct {
	models.Hold
	SeatNumbers string `db:"seat_numbers"`
}

func (r holdRow) toModel() models.Hold {
	h := r.Hold
	h.SeatNumbers = intdb.SplitList(r.SeatNumbers)
	return h
}

func holdsFromRows(rows []holdRow) []models.Hold {
	out := make([]models.Hold, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out
}

type bookingRow struct {
	ID            string    `db:"id"`
	TripID        string    `db:"trip_id"`
	OwnerID       string    `db:"owner_id"`
	SeatNumbers   string    `db:"seat_numbers"`
	Passengers    string    `db:"passengers"`
	ContactName   string    `db:"contact_name"`
	ContactPhone  string    `db:"contact_phone"`
	ContactEmail  string    `db:"contact_email"`
	TotalAmount   int64     `db:"total_amount"`
	Status        string    `db:"status"`
	PaymentStatus string    `db:"payment_status"`
	BookingTime   time.Time `db:"booking_time"`
	CancelReason  string    `db:"cancel_reason"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r bookingRow) toModel() (models.Booking, error) {
	b := models.Booking{
		ID:            r.ID,
		TripID:        r.TripID,
		OwnerID:       r.OwnerID,
		SeatNumbers:   intdb.SplitList(r.SeatNumbers),
		Passengers:    []models.Passenger{},
		Contact:       models.ContactInfo{Name: r.ContactName, Phone: r.ContactPhone, Email: r.ContactEmail},
		TotalAmount:   r.TotalAmount,
		Status:        models.BookingStatus(r.Status),
		PaymentStatus: models.PaymentStatus(r.PaymentStatus),
		BookingTime:   r.BookingTime,
		CancelReason:  r.CancelReason,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Passengers != "" {
		if err := json.Unmarshal([]byte(r.Passengers), &b.Passengers); err != nil {
			return models.Booking{}, domain.InternalError{Msg: "corrupt passengers column", Err: err}
		}
	}
	return b, nil
}

func bookingsFromRows(rows []bookingRow) ([]models.Booking, error) {
	out := make([]models.Booking, 0, len(rows))
	for _, r := range rows {
		b, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// mysqlTx runs inside the transaction opened by WithTrip or ViewTrip. The
// trip row is read once when the transaction starts.
type mysqlTx struct {
	tx       *sqlx.Tx
	trip     models.Trip
	readOnly bool
}

func (t *mysqlTx) Trip(context.Context) (models.Trip, error) {
	return t.trip, nil
}

func (t *mysqlTx) Seats(ctx context.Context) ([]models.Seat, error) {
	out := []models.Seat{}
	err := t.tx.SelectContext(ctx, &out,
		`SELECT `+seatColumns+` FROM trip_seats WHERE trip_id = ? ORDER BY position`, t.trip.ID)
	if err != nil {
		return nil, domain.InternalError{Msg: "could not load seats", Err: err}
	}
	return out, nil
}

func (t *mysqlTx) Hold(ctx context.Context, holdID string) (models.Hold, error) {
	var row holdRow
	err := t.tx.GetContext(ctx, &row,
		`SELECT `+holdColumns+` FROM seat_holds WHERE id = ? AND trip_id = ?`, holdID, t.trip.ID)
	if err != nil {
		return models.Hold{}, notFoundOr(err, "hold")
	}
	return row.toModel(), nil
}

func (t *mysqlTx) ActiveHolds(ctx context.Context) ([]models.Hold, error) {
	var rows []holdRow
	err := t.tx.SelectContext(ctx, &rows,
		`SELECT `+holdColumns+` FROM seat_holds WHERE trip_id = ? AND status = ? ORDER BY created_at, id`,
		t.trip.ID, models.HoldActive)
	if err != nil {
		return nil, domain.InternalError{Msg: "could not load holds", Err: err}
	}
	return holdsFromRows(rows), nil
}

func (t *mysqlTx) Booking(ctx context.Context, bookingID string) (models.Booking, error) {
	var row bookingRow
	err := t.tx.GetContext(ctx, &row,
		`SELECT `+bookingColumns("")+` FROM bookings WHERE id = ? AND trip_id = ?`, bookingID, t.trip.ID)
	if err != nil {
		return models.Booking{}, notFoundOr(err, "booking")
	}
	return row.toModel()
}

func (t *mysqlTx) Bookings(ctx context.Context) ([]models.Booking, error) {
	var rows []bookingRow
	err := t.tx.SelectContext(ctx, &rows,
		`SELECT `+bookingColumns("")+` FROM bookings WHERE trip_id = ? ORDER BY booking_time, id`, t.trip.ID)
	if err != nil {
		return nil, domain.InternalError{Msg: "could not load bookings", Err: err}
	}
	return bookingsFromRows(rows)
}

func (t *mysqlTx) SaveTrip(ctx context.Context, trip models.Trip) error {
	if t.readOnly {
		return errReadOnlyView
	}
	if trip.ID != t.trip.ID {
		return domain.InternalError{Msg: "trip id mismatch"}
	}
	_, err := t.tx.ExecContext(ctx, `
		UPDATE trips SET status = ?, driver_id = ?, vehicle_id = ?, updated_at = ?
		WHERE id = ?`,
		trip.Status, intdb.NullIfEmpty(trip.DriverID), trip.VehicleID, trip.UpdatedAt, trip.ID)
	if err != nil {
		return domain.InternalError{Msg: "could not update trip", Err: err}
	}
	t.trip = trip
	return nil
}

func (t *mysqlTx) SaveSeats(ctx context.Context, seats []models.Seat) error {
	if t.readOnly {
		return errReadOnlyView
	}
	for _, s := range seats {
		_, err := t.tx.ExecContext(ctx, `
			UPDATE trip_seats SET state = ?, hold_id = ?, held_until = ?, booking_id = ?
			WHERE trip_id = ? AND seat_number = ?`,
			s.State, intdb.NullIfEmpty(s.HoldID), s.HeldUntil, intdb.NullIfEmpty(s.BookingID), t.trip.ID, s.SeatNumber)
		if err != nil {
			return domain.InternalError{Msg: "could not update seat " + s.SeatNumber, Err: err}
		}
	}
	return nil
}

func (t *mysqlTx) SaveHold(ctx context.Context, h models.Hold) error {
	if t.readOnly {
		return errReadOnlyView
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO seat_holds (id, trip_id, seat_numbers, owner_id, owner_token_hash, status,
			booking_id, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE status = VALUES(status), booking_id = VALUES(booking_id),
			expires_at = VALUES(expires_at), updated_at = VALUES(updated_at)`,
		h.ID, t.trip.ID, intdb.JoinList(h.SeatNumbers), h.OwnerID, h.OwnerTokenHash, h.Status,
		intdb.NullIfEmpty(h.BookingID), h.ExpiresAt, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return domain.InternalError{Msg: "could not save hold", Err: err}
	}
	return nil
}

func (t *mysqlTx) SaveBooking(ctx context.Context, b models.Booking) error {
	if t.readOnly {
		return errReadOnlyView
	}
	passengers, err := json.Marshal(b.Passengers)
	if err != nil {
		return domain.InternalError{Msg: "could not encode passengers", Err: err}
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO bookings (id, trip_id, owner_id, seat_numbers, passengers, contact_name,
			contact_phone, contact_email, total_amount, status, payment_status, booking_time,
			cancel_reason, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE status = VALUES(status), payment_status = VALUES(payment_status),
			cancel_reason = VALUES(cancel_reason), updated_at = VALUES(updated_at)`,
		b.ID, t.trip.ID, b.OwnerID, intdb.JoinList(b.SeatNumbers), string(passengers), b.Contact.Name,
		b.Contact.Phone, b.Contact.Email, b.TotalAmount, b.Status, b.PaymentStatus, b.BookingTime,
		b.CancelReason, b.UpdatedAt)
	if err != nil {
		return domain.InternalError{Msg: "could not save booking", Err: err}
	}
	return nil
}
