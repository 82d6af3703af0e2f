package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"bustravel/internal/domain"
	"bustravel/internal/domain/models"
	"bustravel/internal/utils"

	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// TicketDocs renders the e-ticket and invoice PDFs of a booking.
type TicketDocs struct {
	Bookings *BookingWorkflow
	// Loader replaces the booking lookup, mostly in tests.
	Loader func(ctx context.Context, p domain.Principal, bookingID string) (ticketData, error)
}

type ticketData struct {
	Booking models.Booking
	Trip    models.Trip
}

// GenerateETicket renders one page per passenger. CONFIRMED and COMPLETED
// bookings only.
func (d TicketDocs) GenerateETicket(ctx context.Context, p domain.Principal, bookingID string) ([]byte, string, error) {
	data, err := d.load(ctx, p, bookingID)
	if err != nil {
		return nil, "", err
	}
	switch data.Booking.Status {
	case models.BookingConfirmed, models.BookingCompleted:
	default:
		return nil, "", domain.InvalidTransitionError{Entity: "booking", Current: string(data.Booking.Status), Action: "issue e-ticket for"}
	}
	utils.LogEventCtx(ctx, "docs", "generate_eticket", "booking_id="+bookingID)
	return buildETicketPDF(data)
}

// GenerateInvoice renders the invoice of a PAID booking.
func (d TicketDocs) GenerateInvoice(ctx context.Context, p domain.Principal, bookingID string) ([]byte, string, error) {
	data, err := d.load(ctx, p, bookingID)
	if err != nil {
		return nil, "", err
	}
	if data.Booking.PaymentStatus != models.PaymentPaid {
		return nil, "", domain.InvalidTransitionError{Entity: "booking", Current: string(data.Booking.PaymentStatus), Action: "issue invoice for"}
	}
	utils.LogEventCtx(ctx, "docs", "generate_invoice", "booking_id="+bookingID)
	return buildInvoicePDF(data, time.Now())
}

func (d TicketDocs) load(ctx context.Context, p domain.Principal, bookingID string) (ticketData, error) {
	if d.Loader != nil {
		return d.Loader(ctx, p, bookingID)
	}
	b, trip, err := d.Bookings.Get(ctx, p, bookingID)
	if err != nil {
		return ticketData{}, err
	}
	return ticketData{Booking: b, Trip: trip}, nil
}

func ticketCode(bookingID, seat string) string {
	return fmt.Sprintf("TCK-%s-%s", shortID(bookingID), safeFilenamePart(seat))
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

func buildETicketPDF(d ticketData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)

	departure := d.Trip.DepartureAt.In(time.Local)
	for i, p := range d.Booking.Passengers {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 18)
		pdf.Cell(0, 10, "E-TICKET")
		pdf.Ln(12)

		code := ticketCode(d.Booking.ID, p.SeatNumber)
		pdf.SetFont("Helvetica", "", 12)
		lines := []string{
			fmt.Sprintf("Passenger      : %s", safe(p.Name, "-")),
			fmt.Sprintf("Phone          : %s", safe(p.Phone, "-")),
			fmt.Sprintf("Seat           : %s", safe(p.SeatNumber, "-")),
			fmt.Sprintf("Route          : %s -> %s", safe(d.Trip.RouteFrom, "-"), safe(d.Trip.RouteTo, "-")),
			fmt.Sprintf("Departure      : %s", departure.Format("2006-01-02 15:04")),
			fmt.Sprintf("Vehicle        : %s", safe(d.Trip.VehicleID, "-")),
			fmt.Sprintf("Booking        : %s", d.Booking.ID),
			fmt.Sprintf("Ticket         : %s", code),
		}
		for _, s := range lines {
			pdf.Cell(0, 7, s)
			pdf.Ln(7)
		}

		png, err := qrcode.Encode(code+"|"+d.Booking.ID, qrcode.Medium, 256)
		if err != nil {
			return nil, "", fmt.Errorf("encode ticket qr: %w", err)
		}
		name := fmt.Sprintf("qr-%d", i)
		opts := gofpdf.ImageOptions{ImageType: "png"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
		pdf.ImageOptions(name, 145, 25, 45, 0, false, opts, 0, "")

		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, "This e-ticket is valid for one passenger and one seat. Show it when boarding.", "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("ETICKET_%s.pdf", safeFilenamePart(shortID(d.Booking.ID)+"_"+d.Booking.Contact.Name))
	return buf.Bytes(), filename, nil
}

func buildInvoicePDF(d ticketData, issuedAt time.Time) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(12)

	invNo := "INV-" + shortID(d.Booking.ID)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Invoice no : "+invNo)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Date       : "+issuedAt.In(time.Local).Format("2006-01-02 15:04"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Billed to:")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, fmt.Sprintf("Name   : %s", safe(d.Booking.Contact.Name, "-")))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Phone  : %s", safe(d.Booking.Contact.Phone, "-")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Items:")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	departure := d.Trip.DepartureAt.In(time.Local).Format("2006-01-02 15:04")
	for i, p := range d.Booking.Passengers {
		desc := fmt.Sprintf("%d) Ticket %s -> %s (%s) seat %s, %s",
			i+1, safe(d.Trip.RouteFrom, "-"), safe(d.Trip.RouteTo, "-"), departure, safe(p.SeatNumber, "-"), safe(p.Name, "-"))
		pdf.MultiCell(0, 6, desc, "", "", false)
	}
	pdf.Ln(2)
	pdf.Cell(0, 6, "Fare per seat: "+formatMoney(d.Trip.Fare))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total: "+formatMoney(d.Booking.TotalAmount))
	pdf.Ln(12)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("INVOICE_%s.pdf", safeFilenamePart(shortID(d.Booking.ID)+"_"+d.Booking.Contact.Name))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}

func formatMoney(v int64) string {
	return "Rp " + utils.FormatAmount(v)
}
