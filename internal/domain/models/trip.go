package models

import "time"

// TripStatus is the lifecycle state of a scheduled trip.
type TripStatus string

const (
	TripScheduled TripStatus = "SCHEDULED"
	TripDeparted  TripStatus = "DEPARTED"
	TripArrived   TripStatus = "ARRIVED"
	TripCancelled TripStatus = "CANCELLED"
)

// Trip is one scheduled run of a route. CompanyID is always set; DriverID is
// empty only until an operator assigns a driver.
type Trip struct {
	ID          string     `json:"id" db:"id"`
	CompanyID   string     `json:"companyId" db:"company_id"`
	RouteFrom   string     `json:"routeFrom" db:"route_from"`
	RouteTo     string     `json:"routeTo" db:"route_to"`
	DepartureAt time.Time  `json:"departureAt" db:"departure_at"`
	Fare        int64      `json:"fare" db:"fare"`
	Status      TripStatus `json:"status" db:"status"`
	DriverID    string     `json:"driverId,omitempty" db:"driver_id"`
	VehicleID   string     `json:"vehicleId" db:"vehicle_id"`
	SeatCount   int        `json:"seatCount" db:"seat_count"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// TripSearch filters trips for the rider-facing search.
type TripSearch struct {
	RouteFrom string
	RouteTo   string
	// Date limits results to departures on that calendar day (local time); zero means any day.
	Date  time.Time
	Limit int
}
