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

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type BookingConfig struct {
	CancelLeadTime  time.Duration
	PaymentDeadline time.Duration
	ExpireBatch     int
}

// BookingWorkflow turns holds into bookings and owns the booking state
// machine: CONFIRMED -> CANCELLED | COMPLETED | EXPIRED.
type BookingWorkflow struct {
	Store  repositories.Store
	Ledger *SeatLedger
	Holds  *HoldManager
	Events events.Publisher
	Config BookingConfig
	Now    func() time.Time
}

type ConfirmInput struct {
	HoldID     string             `json:"holdId" validate:"required,max=64"`
	OwnerToken string             `json:"ownerToken" validate:"required,max=64"`
	Passengers []models.Passenger `json:"passengers" validate:"required,min=1,dive"`
	Contact    models.ContactInfo `json:"contactInfo" validate:"required"`
}

func (w *BookingWorkflow) now() time.Time { return clock(w.Now).now() }

// Confirm converts a live hold into a CONFIRMED/PENDING booking. Retrying with
// the same hold and token returns the booking created by the first call.
func (w *BookingWorkflow) Confirm(ctx context.Context, p domain.Principal, in ConfirmInput) (models.Booking, error) {
	if err := domain.RequireRole(p, domain.RoleRider, domain.RoleOperator); err != nil {
		return models.Booking{}, err
	}
	if err := validateStruct(in); err != nil {
		return models.Booking{}, err
	}

	tripID, err := w.Store.LocateHold(ctx, in.HoldID)
	if domain.IsNotFound(err) {
		return models.Booking{}, domain.HoldExpired()
	}
	if err != nil {
		return models.Booking{}, err
	}

	now := w.now()
	var (
		booking  models.Booking
		hold     models.Hold
		trip     models.Trip
		replayed bool
		expired  bool
	)
	err = w.Store.WithTrip(ctx, tripID, func(tx repositories.TripTx) error {
		hold, err = tx.Hold(ctx, in.HoldID)
		if domain.IsNotFound(err) {
			return domain.HoldExpired()
		}
		if err != nil {
			return err
		}
		if err := authorizeHolder(p, hold, in.OwnerToken); err != nil {
			return err
		}

		switch hold.Status {
		case models.HoldConsumed:
			replayed = true
			booking, err = tx.Booking(ctx, hold.BookingID)
			return err
		case models.HoldReleased:
			return domain.HoldExpired()
		}
		if hold.Expired(now) {
			expired = true
			return w.Holds.releaseInTx(ctx, tx, &hold, now)
		}

		passengers, err := assignSeats(in.Passengers, hold.SeatNumbers)
		if err != nil {
			return err
		}
		trip, err = tx.Trip(ctx)
		if err != nil {
			return err
		}
		total, ok := utils.MultiplyAmount(trip.Fare, len(hold.SeatNumbers))
		if !ok {
			return domain.ValidationError{Field: "totalAmount", Code: domain.CodeInvalidField, Msg: "amount out of range"}
		}

		booking = models.Booking{
			ID:            uuid.NewString(),
			TripID:        trip.ID,
			OwnerID:       hold.OwnerID,
			Passengers:    passengers,
			Contact:       in.Contact,
			TotalAmount:   total,
			Status:        models.BookingConfirmed,
			PaymentStatus: models.PaymentPending,
			BookingTime:   now,
			UpdatedAt:     now,
		}
		booking.SeatNumbers, err = w.Ledger.CommitHold(ctx, tx, hold.ID, booking.ID, now)
		if err != nil {
			return err
		}
		if err := tx.SaveBooking(ctx, booking); err != nil {
			return err
		}
		hold.Status = models.HoldConsumed
		hold.BookingID = booking.ID
		hold.UpdatedAt = now
		return tx.SaveHold(ctx, hold)
	})
	if err != nil {
		return models.Booking{}, err
	}
	if expired {
		w.Holds.forget(ctx, []models.Hold{hold}, ReleaseExpired)
		return models.Booking{}, domain.HoldExpired()
	}
	if replayed {
		return booking, nil
	}

	w.Holds.unindex(ctx, hold.ID)
	metrics.BookingTransitions.WithLabelValues(string(models.BookingConfirmed)).Inc()
	utils.LogEventCtx(ctx, "bookings", "confirm", fmt.Sprintf("booking_id=%s hold_id=%s trip_id=%s", booking.ID, hold.ID, booking.TripID))
	publish(ctx, w.Events, &events.BookingCreated{
		Header:      events.NewEventHeaderWithIdempotencyKey(booking.ID),
		BookingID:   booking.ID,
		TripID:      booking.TripID,
		SeatNumbers: booking.SeatNumbers,
		TotalAmount: booking.TotalAmount,
		Contact:     booking.Contact,
		DepartureAt: trip.DepartureAt,
	})
	return booking, nil
}

// assignSeats gives passengers without a seat number the remaining hold seats
// in order. Every hold seat ends up with exactly one passenger.
func assignSeats(in []models.Passenger, holdSeats []string) ([]models.Passenger, error) {
	if len(in) != len(holdSeats) {
		return nil, domain.ValidationError{
			Field: "passengers",
			Code:  domain.CodePassengerCountMismatch,
			Msg:   fmt.Sprintf("expected %d passengers, got %d", len(holdSeats), len(in)),
		}
	}
	taken := map[string]bool{}
	out := make([]models.Passenger, len(in))
	for i, p := range in {
		p.Name = utils.NormalizeSpace(p.Name)
		p.Phone = strings.TrimSpace(p.Phone)
		p.SeatNumber = strings.ToUpper(strings.TrimSpace(p.SeatNumber))
		if p.SeatNumber != "" {
			if !lo.Contains(holdSeats, p.SeatNumber) || taken[p.SeatNumber] {
				return nil, domain.ValidationError{
					Field: fmt.Sprintf("passengers[%d].seatNumber", i),
					Code:  domain.CodeInvalidField,
					Msg:   "seat " + p.SeatNumber + " is not part of the hold",
				}
			}
			taken[p.SeatNumber] = true
		}
		out[i] = p
	}
	free := lo.Filter(holdSeats, func(s string, _ int) bool { return !taken[s] })
	for i := range out {
		if out[i].SeatNumber == "" {
			out[i].SeatNumber = free[0]
			free = free[1:]
		}
	}
	return out, nil
}

// OnPaymentConfirmed marks the booking PAID. Redelivery is a no-op. Money
// arriving for a booking that is already cancelled or expired is refunded.
func (w *BookingWorkflow) OnPaymentConfirmed(ctx context.Context, bookingID string) (models.Booking, error) {
	var refund bool
	b, changed, err := w.updatePayment(ctx, bookingID, func(b *models.Booking) bool {
		switch {
		case b.PaymentStatus == models.PaymentPaid || b.PaymentStatus == models.PaymentRefunded:
			return false
		case b.Status == models.BookingCancelled || b.Status == models.BookingExpired:
			b.PaymentStatus = models.PaymentRefunded
			refund = true
		default:
			b.PaymentStatus = models.PaymentPaid
		}
		return true
	})
	result := "noop"
	if changed {
		result = strings.ToLower(string(b.PaymentStatus))
	}
	metrics.PaymentSignals.WithLabelValues("confirmed", result).Inc()
	if err != nil || !changed {
		return b, err
	}

	evts := []any{&events.BookingPaymentChanged{
		Header:        events.NewEventHeaderWithIdempotencyKey(b.ID + ":" + string(b.PaymentStatus)),
		BookingID:     b.ID,
		TripID:        b.TripID,
		PaymentStatus: b.PaymentStatus,
	}}
	if refund {
		evts = append(evts, &events.BookingRefundRequested{
			Header:    events.NewEventHeaderWithIdempotencyKey(b.ID + ":refund"),
			BookingID: b.ID,
			TripID:    b.TripID,
			Amount:    b.TotalAmount,
			Reason:    "payment received for " + strings.ToLower(string(b.Status)) + " booking",
		})
	}
	publish(ctx, w.Events, evts...)
	return b, nil
}

// OnPaymentFailed marks a PENDING booking FAILED. Seats stay BOOKED; a PAID or
// REFUNDED booking is never downgraded.
func (w *BookingWorkflow) OnPaymentFailed(ctx context.Context, bookingID string) (models.Booking, error) {
	b, changed, err := w.updatePayment(ctx, bookingID, func(b *models.Booking) bool {
		if b.PaymentStatus != models.PaymentPending {
			return false
		}
		b.PaymentStatus = models.PaymentFailed
		return true
	})
	result := "noop"
	if changed {
		result = "failed"
	}
	metrics.PaymentSignals.WithLabelValues("failed", result).Inc()
	if err != nil || !changed {
		return b, err
	}
	publish(ctx, w.Events, &events.BookingPaymentChanged{
		Header:        events.NewEventHeaderWithIdempotencyKey(b.ID + ":" + string(b.PaymentStatus)),
		BookingID:     b.ID,
		TripID:        b.TripID,
		PaymentStatus: b.PaymentStatus,
	})
	return b, nil
}

func (w *BookingWorkflow) updatePayment(ctx context.Context, bookingID string, apply func(b *models.Booking) bool) (models.Booking, bool, error) {
	tripID, err := w.Store.LocateBooking(ctx, bookingID)
	if err != nil {
		return models.Booking{}, false, err
	}
	var (
		b       models.Booking
		changed bool
	)
	err = w.Store.WithTrip(ctx, tripID, func(tx repositories.TripTx) error {
		b, err = tx.Booking(ctx, bookingID)
		if err != nil {
			return err
		}
		if changed = apply(&b); !changed {
			return nil
		}
		b.UpdatedAt = w.now()
		return tx.SaveBooking(ctx, b)
	})
	if err != nil {
		return models.Booking{}, false, err
	}
	return b, changed, nil
}

// Cancel is allowed to the booking owner and operators of the trip's company,
// while the booking is CONFIRMED and departure is more than CancelLeadTime away.
func (w *BookingWorkflow) Cancel(ctx context.Context, p domain.Principal, bookingID, reason string) (models.Booking, error) {
	tripID, err := w.Store.LocateBooking(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	reason = utils.NormalizeSpace(reason)
	if len(reason) > 255 {
		return models.Booking{}, domain.ValidationError{Field: "reason", Code: domain.CodeInvalidField, Msg: "too long"}
	}

	now := w.now()
	var b models.Booking
	err = w.Store.WithTrip(ctx, tripID, func(tx repositories.TripTx) error {
		trip, err := tx.Trip(ctx)
		if err != nil {
			return err
		}
		b, err = tx.Booking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.OwnerID != p.ID && domain.RequireOperatorOf(p, trip.CompanyID) != nil {
			return domain.AuthorizationError{}
		}
		if b.Status != models.BookingConfirmed {
			return domain.NotCancellableError{BookingID: b.ID, Reason: "booking is " + strings.ToLower(string(b.Status))}
		}
		if trip.Status != models.TripScheduled {
			return domain.NotCancellableError{BookingID: b.ID, Reason: "trip is " + strings.ToLower(string(trip.Status))}
		}
		if trip.DepartureAt.Sub(now) <= w.Config.CancelLeadTime {
			return domain.NotCancellableError{BookingID: b.ID, Reason: "too close to departure"}
		}
		if reason == "" {
			reason = "cancelled by " + principalKind(p, b)
		}
		return w.cancelInTx(ctx, tx, &b, reason, now)
	})
	if err != nil {
		return models.Booking{}, err
	}

	utils.LogEventCtx(ctx, "bookings", "cancel", fmt.Sprintf("booking_id=%s trip_id=%s", b.ID, b.TripID))
	publish(ctx, w.Events, cancellationEvents(b)...)
	return b, nil
}

func principalKind(p domain.Principal, b models.Booking) string {
	if p.ID == b.OwnerID {
		return "passenger"
	}
	return "operator"
}

func (w *BookingWorkflow) cancelInTx(ctx context.Context, tx repositories.TripTx, b *models.Booking, reason string, now time.Time) error {
	if _, err := w.Ledger.ReleaseBooking(ctx, tx, b.ID); err != nil {
		return err
	}
	b.Status = models.BookingCancelled
	b.CancelReason = reason
	if b.PaymentStatus == models.PaymentPaid {
		b.PaymentStatus = models.PaymentRefunded
	}
	b.UpdatedAt = now
	if err := tx.SaveBooking(ctx, *b); err != nil {
		return err
	}
	metrics.BookingTransitions.WithLabelValues(string(models.BookingCancelled)).Inc()
	return nil
}

func cancellationEvents(b models.Booking) []any {
	refunded := b.PaymentStatus == models.PaymentRefunded
	evts := []any{&events.BookingCancelled{
		Header:    events.NewEventHeaderWithIdempotencyKey(b.ID + ":cancelled"),
		BookingID: b.ID,
		TripID:    b.TripID,
		Reason:    b.CancelReason,
		Refunded:  refunded,
	}}
	if refunded {
		evts = append(evts, &events.BookingRefundRequested{
			Header:    events.NewEventHeaderWithIdempotencyKey(b.ID + ":refund"),
			BookingID: b.ID,
			TripID:    b.TripID,
			Amount:    b.TotalAmount,
			Reason:    b.CancelReason,
		})
	}
	return evts
}

// CompleteTrip moves every CONFIRMED booking of the trip in tx to COMPLETED.
// Seats stay BOOKED.
func (w *BookingWorkflow) CompleteTrip(ctx context.Context, tx repositories.TripTx) ([]models.Booking, error) {
	all, err := tx.Bookings(ctx)
	if err != nil {
		return nil, err
	}
	now := w.now()
	completed := []models.Booking{}
	for _, b := range all {
		if b.Status != models.BookingConfirmed {
			continue
		}
		b.Status = models.BookingCompleted
		b.UpdatedAt = now
		if err := tx.SaveBooking(ctx, b); err != nil {
			return nil, err
		}
		completed = append(completed, b)
	}
	metrics.BookingTransitions.WithLabelValues(string(models.BookingCompleted)).Add(float64(len(completed)))
	return completed, nil
}

// CancelTripBookings cancels and refunds every CONFIRMED booking of the trip in tx.
func (w *BookingWorkflow) CancelTripBookings(ctx context.Context, tx repositories.TripTx, reason string) ([]models.Booking, error) {
	all, err := tx.Bookings(ctx)
	if err != nil {
		return nil, err
	}
	now := w.now()
	cancelled := []models.Booking{}
	for _, b := range all {
		if b.Status != models.BookingConfirmed {
			continue
		}
		if err := w.cancelInTx(ctx, tx, &b, reason, now); err != nil {
			return nil, err
		}
		cancelled = append(cancelled, b)
	}
	return cancelled, nil
}

// ExpireUnpaid moves CONFIRMED bookings still unpaid after PaymentDeadline to
// EXPIRED and frees their seats. It does nothing when the deadline is zero.
func (w *BookingWorkflow) ExpireUnpaid(ctx context.Context) (int, error) {
	if w.Config.PaymentDeadline <= 0 {
		return 0, nil
	}
	now := w.now()
	cutoff := now.Add(-w.Config.PaymentDeadline)
	batch := w.Config.ExpireBatch
	if batch <= 0 {
		batch = 100
	}
	candidates, err := w.Store.UnpaidBookings(ctx, cutoff, batch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, c := range candidates {
		var b models.Booking
		done := false
		err := w.Store.WithTrip(ctx, c.TripID, func(tx repositories.TripTx) error {
			var err error
			b, err = tx.Booking(ctx, c.ID)
			if err != nil {
				return err
			}
			unpaid := b.PaymentStatus == models.PaymentPending || b.PaymentStatus == models.PaymentFailed
			if b.Status != models.BookingConfirmed || !unpaid || !b.BookingTime.Before(cutoff) {
				return nil
			}
			if _, err := w.Ledger.ReleaseBooking(ctx, tx, b.ID); err != nil {
				return err
			}
			b.Status = models.BookingExpired
			b.UpdatedAt = now
			done = true
			return tx.SaveBooking(ctx, b)
		})
		if err != nil {
			return expired, err
		}
		if !done {
			continue
		}
		expired++
		metrics.BookingTransitions.WithLabelValues(string(models.BookingExpired)).Inc()
		publish(ctx, w.Events, &events.BookingExpired{
			Header:    events.NewEventHeaderWithIdempotencyKey(b.ID + ":expired"),
			BookingID: b.ID,
			TripID:    b.TripID,
		})
	}
	return expired, nil
}

// Get returns the booking to its owner, operators of the trip's company and
// the trip's assigned driver.
func (w *BookingWorkflow) Get(ctx context.Context, p domain.Principal, bookingID string) (models.Booking, models.Trip, error) {
	tripID, err := w.Store.LocateBooking(ctx, bookingID)
	if err != nil {
		return models.Booking{}, models.Trip{}, err
	}
	var (
		b    models.Booking
		trip models.Trip
	)
	err = w.Store.ViewTrip(ctx, tripID, func(r repositories.TripReader) error {
		trip, err = r.Trip(ctx)
		if err != nil {
			return err
		}
		b, err = r.Booking(ctx, bookingID)
		if err != nil {
			return err
		}
		if !canSeeBooking(p, b, trip) {
			return domain.AuthorizationError{}
		}
		return nil
	})
	if err != nil {
		return models.Booking{}, models.Trip{}, err
	}
	return b, trip, nil
}

func canSeeBooking(p domain.Principal, b models.Booking, trip models.Trip) bool {
	switch {
	case p.ID == "":
		return false
	case p.ID == b.OwnerID:
		return true
	case domain.RequireOperatorOf(p, trip.CompanyID) == nil:
		return true
	case p.Has(domain.RoleDriver) && trip.DriverID == p.ID:
		return true
	}
	return false
}
