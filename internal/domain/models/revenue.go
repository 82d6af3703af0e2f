package models

// MonthlyRevenue aggregates a driver's paid bookings for one calendar month.
type MonthlyRevenue struct {
	Month         string `json:"month"` // YYYY-MM
	TotalRevenue  int64  `json:"totalRevenue"`
	TotalBookings int    `json:"totalBookings"`
	TotalTickets  int    `json:"totalTickets"`
}
