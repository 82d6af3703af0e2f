// Package events defines the domain events emitted after a successful state
// change and the watermill plumbing that carries them to notifiers.
package events

import (
	"context"
	"time"

	"bustravel/internal/domain/models"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/google/uuid"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

// NewEventHeaderWithIdempotencyKey lets consumers drop redelivered events.
func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	h := NewEventHeader()
	h.IdempotencyKey = idempotencyKey
	return h
}

// Publisher is satisfied by *cqrs.EventBus.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Name is the event name used for topics and metrics.
func Name(event any) string {
	return cqrs.StructName(event)
}

type BookingCreated struct {
	Header      EventHeader        `json:"header"`
	BookingID   string             `json:"booking_id"`
	TripID      string             `json:"trip_id"`
	SeatNumbers []string           `json:"seat_numbers"`
	TotalAmount int64              `json:"total_amount"`
	Contact     models.ContactInfo `json:"contact"`
	DepartureAt time.Time          `json:"departure_at"`
}

type BookingCancelled struct {
	Header    EventHeader `json:"header"`
	BookingID string      `json:"booking_id"`
	TripID    string      `json:"trip_id"`
	Reason    string      `json:"reason"`
	Refunded  bool        `json:"refunded"`
}

type BookingExpired struct {
	Header    EventHeader `json:"header"`
	BookingID string      `json:"booking_id"`
	TripID    string      `json:"trip_id"`
}

type BookingCompleted struct {
	Header    EventHeader `json:"header"`
	BookingID string      `json:"booking_id"`
	TripID    string      `json:"trip_id"`
}

type BookingPaymentChanged struct {
	Header        EventHeader          `json:"header"`
	BookingID     string               `json:"booking_id"`
	TripID        string               `json:"trip_id"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
}

// BookingRefundRequested asks the payment collaborator to return money.
type BookingRefundRequested struct {
	Header    EventHeader `json:"header"`
	BookingID string      `json:"booking_id"`
	TripID    string      `json:"trip_id"`
	Amount    int64       `json:"amount"`
	Reason    string      `json:"reason"`
}

type HoldReleased struct {
	Header      EventHeader `json:"header"`
	HoldID      string      `json:"hold_id"`
	TripID      string      `json:"trip_id"`
	SeatNumbers []string    `json:"seat_numbers"`
	Reason      string      `json:"reason"`
}

type TripStatusChanged struct {
	Header  EventHeader       `json:"header"`
	TripID  string            `json:"trip_id"`
	From    models.TripStatus `json:"from"`
	To      models.TripStatus `json:"to"`
	ActorID string            `json:"actor_id"`
	Reason  string            `json:"reason,omitempty"`
}
