package handlers

import (
	"bustravel/internal/repositories"
	"bustravel/internal/services"
)

// Handlers exposes the reservation services over HTTP.
type Handlers struct {
	Store    repositories.Store
	Holds    *services.HoldManager
	Bookings *services.BookingWorkflow
	Trips    *services.TripLifecycle
	Catalog  *services.TripCatalog
	Revenue  services.RevenueAggregator
	Docs     services.TicketDocs
}
