package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"bustravel/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// GET /api/drivers/:id/revenue/monthly?year=YYYY
func (h *Handlers) DriverMonthlyRevenue(c *gin.Context) {
	year := 0
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, http.StatusBadRequest, "invalid_field", "year must be YYYY", gin.H{"field": "year"})
			return
		}
		year = n
	}
	rows, err := h.Revenue.MonthlyRevenue(c.Request.Context(), middleware.PrincipalFrom(c), pathID(c), year)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"driverId": pathID(c), "year": year, "months": rows})
}
