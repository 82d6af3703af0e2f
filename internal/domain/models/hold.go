package models

import "time"

// HoldStatus follows ACTIVE -> RELEASED | CONSUMED; both targets are terminal.
type HoldStatus string

const (
	HoldActive   HoldStatus = "ACTIVE"
	HoldReleased HoldStatus = "RELEASED"
	HoldConsumed HoldStatus = "CONSUMED"
)

// Hold is a time-bounded exclusive claim on a set of seats of one trip.
type Hold struct {
	ID             string     `json:"holdId" db:"id"`
	TripID         string     `json:"tripId" db:"trip_id"`
	SeatNumbers    []string   `json:"seatNumbers" db:"-"`
	OwnerID        string     `json:"-" db:"owner_id"`
	OwnerTokenHash string     `json:"-" db:"owner_token_hash"`
	Status         HoldStatus `json:"status" db:"status"`
	BookingID      string     `json:"bookingId,omitempty" db:"booking_id"`
	ExpiresAt      time.Time  `json:"expiresAt" db:"expires_at"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"-" db:"updated_at"`
}

// Expired reports whether the hold's TTL has passed at now.
func (h Hold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
