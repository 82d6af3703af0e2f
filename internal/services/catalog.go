package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bustravel/internal/domain"
	"bustravel/internal/domain/models"
	"bustravel/internal/repositories"
	"bustravel/internal/utils"

	"github.com/google/uuid"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 200
	seatsPerRow        = 4
	maxSeatCount       = 120
)

// TripCatalog creates trips with their seat layout and serves search.
type TripCatalog struct {
	Store  repositories.Store
	Ledger *SeatLedger
	Now    func() time.Time
}

type CreateTripInput struct {
	RouteFrom   string    `json:"routeFrom" validate:"required,max=120"`
	RouteTo     string    `json:"routeTo" validate:"required,max=120,nefield=RouteFrom"`
	DepartureAt time.Time `json:"departureAt" validate:"required"`
	Fare        int64     `json:"fare" validate:"gt=0"`
	VehicleID   string    `json:"vehicleId" validate:"required,max=64"`
	DriverID    string    `json:"driverId" validate:"omitempty,max=64"`
	// SeatCount generates seats A1..A4, B1..B4 and so on. Ignored when SeatNumbers is set.
	SeatCount   int      `json:"seatCount" validate:"omitempty,min=1,max=120"`
	SeatNumbers []string `json:"seatNumbers" validate:"omitempty,max=120,dive,required,max=8"`
}

// Create stores a SCHEDULED trip of the operator's company with all seats FREE.
func (c *TripCatalog) Create(ctx context.Context, p domain.Principal, in CreateTripInput) (models.Trip, error) {
	if err := domain.RequireRole(p, domain.RoleOperator); err != nil {
		return models.Trip{}, err
	}
	if strings.TrimSpace(p.CompanyID) == "" {
		return models.Trip{}, domain.AuthorizationError{}
	}
	in.RouteFrom = utils.NormalizeSpace(in.RouteFrom)
	in.RouteTo = utils.NormalizeSpace(in.RouteTo)
	if err := validateStruct(in); err != nil {
		return models.Trip{}, err
	}

	now := clock(c.Now).now()
	if !in.DepartureAt.After(now) {
		return models.Trip{}, domain.ValidationError{Field: "departureAt", Code: domain.CodeInvalidField, Msg: "must be in the future"}
	}
	numbers, err := seatLayout(in.SeatNumbers, in.SeatCount)
	if err != nil {
		return models.Trip{}, err
	}

	trip := models.Trip{
		ID:          uuid.NewString(),
		CompanyID:   p.CompanyID,
		RouteFrom:   in.RouteFrom,
		RouteTo:     in.RouteTo,
		DepartureAt: in.DepartureAt,
		Fare:        in.Fare,
		Status:      models.TripScheduled,
		DriverID:    strings.TrimSpace(in.DriverID),
		VehicleID:   strings.TrimSpace(in.VehicleID),
		SeatCount:   len(numbers),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	seats := make([]models.Seat, len(numbers))
	for i, n := range numbers {
		seats[i] = models.Seat{TripID: trip.ID, SeatNumber: n, Position: i, State: models.SeatFree}
	}
	if err := c.Store.CreateTrip(ctx, trip, seats); err != nil {
		return models.Trip{}, err
	}
	utils.LogEventCtx(ctx, "trips", "create", fmt.Sprintf("trip_id=%s company_id=%s seats=%d", trip.ID, trip.CompanyID, len(seats)))
	return trip, nil
}

// seatLayout returns the explicit seat list, or generates count seats in rows
// of four lettered A, B, C...
func seatLayout(explicit []string, count int) ([]string, error) {
	if len(explicit) > 0 {
		numbers := utils.NormalizeSeatNumbers(explicit)
		if err := checkSeatRequest(numbers, maxSeatCount); err != nil {
			return nil, err
		}
		return numbers, nil
	}
	if count <= 0 || count > maxSeatCount {
		return nil, domain.ValidationError{Field: "seatCount", Code: domain.CodeInvalidField, Msg: fmt.Sprintf("must be between 1 and %d", maxSeatCount)}
	}
	numbers := make([]string, count)
	for i := range numbers {
		row := i / seatsPerRow
		numbers[i] = fmt.Sprintf("%s%d", rowLabel(row), i%seatsPerRow+1)
	}
	return numbers, nil
}

// rowLabel maps 0 -> A, 25 -> Z, 26 -> AA.
func rowLabel(row int) string {
	label := ""
	for row >= 0 {
		label = string(rune('A'+row%26)) + label
		row = row/26 - 1
	}
	return label
}

// Search lists trips by route and departure day, earliest first.
func (c *TripCatalog) Search(ctx context.Context, q models.TripSearch) ([]models.Trip, error) {
	q.RouteFrom = utils.NormalizeSpace(q.RouteFrom)
	q.RouteTo = utils.NormalizeSpace(q.RouteTo)
	switch {
	case q.Limit <= 0:
		q.Limit = defaultSearchLimit
	case q.Limit > maxSearchLimit:
		q.Limit = maxSearchLimit
	}
	return c.Store.SearchTrips(ctx, q)
}

func (c *TripCatalog) Get(ctx context.Context, tripID string) (models.Trip, error) {
	var trip models.Trip
	err := c.Store.ViewTrip(ctx, tripID, func(r repositories.TripReader) error {
		var err error
		trip, err = r.Trip(ctx)
		return err
	})
	return trip, err
}

// SeatMap is the public seat availability of a trip.
func (c *TripCatalog) SeatMap(ctx context.Context, tripID string) (models.SeatMap, error) {
	return c.Ledger.SeatsOf(ctx, tripID)
}
