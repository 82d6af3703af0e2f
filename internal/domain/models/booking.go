package models

import "time"

// BookingStatus: CONFIRMED -> CANCELLED | COMPLETED | EXPIRED.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingExpired   BookingStatus = "EXPIRED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// PaymentStatus is driven by the payment gateway callbacks.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Passenger carries per-seat passenger info.
type Passenger struct {
	Name       string `json:"name" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,min=6,max=20,phone"`
	SeatNumber string `json:"seatNumber,omitempty" validate:"omitempty,max=8"`
}

// ContactInfo is who gets booking notifications.
type ContactInfo struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"required,min=6,max=20,phone"`
	Email string `json:"email,omitempty" validate:"omitempty,email,max=160"`
}

// Booking is never deleted; CANCELLED, EXPIRED and COMPLETED are terminal.
type Booking struct {
	ID            string        `json:"bookingId"`
	TripID        string        `json:"tripId"`
	OwnerID       string        `json:"-"`
	SeatNumbers   []string      `json:"seatNumbers"`
	Passengers    []Passenger   `json:"passengers"`
	Contact       ContactInfo   `json:"contactInfo"`
	TotalAmount   int64         `json:"totalAmount"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	BookingTime   time.Time     `json:"bookingTime"`
	CancelReason  string        `json:"cancelReason,omitempty"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Terminal reports whether no further status transition is allowed.
func (b Booking) Terminal() bool {
	return b.Status != BookingConfirmed
}
