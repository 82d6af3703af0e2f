package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"bustravel/internal/domain"
	"bustravel/internal/domain/models"
	"bustravel/internal/repositories"
	"bustravel/internal/utils"

	"github.com/samber/lo"
)

// RevenueAggregator reports a driver's paid bookings on arrived trips by month.
type RevenueAggregator struct {
	Store repositories.Store
}

// MonthlyRevenue groups by booking month, ascending. year <= 0 means all years.
// The caller must be the driver or an operator.
func (a RevenueAggregator) MonthlyRevenue(ctx context.Context, p domain.Principal, driverID string, year int) ([]models.MonthlyRevenue, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return nil, domain.ValidationError{Field: "driverId", Code: domain.CodeInvalidField, Msg: "required"}
	}
	if year < 0 || year > 9999 {
		return nil, domain.ValidationError{Field: "year", Code: domain.CodeInvalidField, Msg: "out of range"}
	}
	if p.ID != driverID || !p.Has(domain.RoleDriver) {
		if err := domain.RequireRole(p, domain.RoleOperator); err != nil {
			return nil, err
		}
	}

	bookings, err := a.Store.DriverRevenueBookings(ctx, driverID, year)
	if err != nil {
		return nil, err
	}

	byMonth := lo.GroupBy(bookings, func(b models.Booking) string { return utils.MonthKey(b.BookingTime) })
	out := make([]models.MonthlyRevenue, 0, len(byMonth))
	for month, group := range byMonth {
		row := models.MonthlyRevenue{Month: month, TotalBookings: len(group)}
		for _, b := range group {
			row.TotalRevenue += b.TotalAmount
			row.TotalTickets += len(b.Passengers)
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })

	utils.LogEventCtx(ctx, "revenue", "monthly", fmt.Sprintf("driver_id=%s year=%d months=%d", driverID, year, len(out)))
	return out, nil
}
