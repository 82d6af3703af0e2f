package models

import "time"

// SeatState is the ledger state of one seat.
type SeatState string

const (
	SeatFree   SeatState = "FREE"
	SeatHeld   SeatState = "HELD"
	SeatBooked SeatState = "BOOKED"
)

// Seat belongs to exactly one trip. HoldID/HeldUntil are set only while HELD,
// BookingID only while BOOKED.
type Seat struct {
	TripID     string     `json:"tripId" db:"trip_id"`
	SeatNumber string     `json:"seatNumber" db:"seat_number"`
	Position   int        `json:"-" db:"position"`
	State      SeatState  `json:"state" db:"state"`
	HoldID     string     `json:"-" db:"hold_id"`
	HeldUntil  *time.Time `json:"heldUntil,omitempty" db:"held_until"`
	BookingID  string     `json:"-" db:"booking_id"`
}

// Free resets the seat to FREE and clears its owner.
func (s *Seat) Free() {
	s.State = SeatFree
	s.HoldID = ""
	s.HeldUntil = nil
	s.BookingID = ""
}

// SeatMap is a consistent snapshot of a trip's seats.
type SeatMap struct {
	TripID string     `json:"tripId"`
	Status TripStatus `json:"tripStatus"`
	Seats  []Seat     `json:"seats"`
	Free   int        `json:"free"`
	Held   int        `json:"held"`
	Booked int        `json:"booked"`
}
