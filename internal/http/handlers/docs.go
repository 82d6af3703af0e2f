package handlers

import (
	"net/http"

	"bustravel/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// GET /api/bookings/:id/e-ticket
func (h *Handlers) GetETicketPDF(c *gin.Context) {
	pdfBytes, filename, err := h.Docs.GenerateETicket(c.Request.Context(), middleware.PrincipalFrom(c), pathID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// GET /api/bookings/:id/invoice
func (h *Handlers) GetInvoicePDF(c *gin.Context) {
	pdfBytes, filename, err := h.Docs.GenerateInvoice(c.Request.Context(), middleware.PrincipalFrom(c), pathID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
