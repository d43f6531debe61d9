package orders

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"farmerconnect/internal/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// ReceiptPayload is the text encoded in a receipt's QR code
func ReceiptPayload(o models.Order) string {
	ref := o.PaymentRef
	if ref == "" {
		ref = "unpaid"
	}
	return fmt.Sprintf("%s|%s", o.OrderID, ref)
}

// Receipt renders the PDF receipt of an order visible to the viewer
func (s *OrderService) Receipt(ctx context.Context, viewer Viewer, orderID string) (models.Order, []byte, error) {
	o, err := s.Get(ctx, viewer, orderID)
	if err != nil {
		return models.Order{}, nil, err
	}
	pdf, err := RenderReceipt(o)
	if err != nil {
		return models.Order{}, nil, fmt.Errorf("service: order %s: %w", orderID, err)
	}
	return o, pdf, nil
}

// RenderReceipt builds a one-page PDF receipt for an order
func RenderReceipt(o models.Order) ([]byte, error) {
	qrPNG, err := qrcode.Encode(ReceiptPayload(o), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("generate receipt qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "FarmerConnect Order Receipt")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 11)
	line := func(label, value string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(45, 8, label)
		pdf.SetFont("Arial", "", 11)
		pdf.Cell(0, 8, value)
		pdf.Ln(7)
	}
	line("Order ID:", o.OrderID)
	line("Date:", o.CreatedAt.Format("02 Jan 2006 15:04 MST"))
	line("Status:", titleCase(o.Status))
	if o.BidID != "" {
		line("From bid:", o.BidID)
	}
	if o.DeliveryAddress != "" {
		line("Deliver to:", o.DeliveryAddress)
	}
	pdf.Ln(6)

	// item table
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(80, 8, "Product", "1", 0, "L", false, 0, "")
	pdf.CellFormat(35, 8, "Quantity", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Unit price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Amount", "1", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(80, 8, o.ProductName, "1", 0, "L", false, 0, "")
	pdf.CellFormat(35, 8, fmt.Sprintf("%g %s", o.Quantity, o.Unit), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, money(o.UnitPrice), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, money(o.Total), "1", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(150, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, money(o.Total), "1", 1, "R", false, 0, "")
	pdf.Ln(8)

	line("Payment:", titleCase(o.PaymentStatus))
	if o.PaymentMethod != "" {
		line("Method:", strings.ToUpper(o.PaymentMethod))
	}
	if o.PaymentRef != "" {
		line("Reference:", o.PaymentRef)
	}
	if o.PaidAt != nil {
		line("Paid at:", o.PaidAt.Format("02 Jan 2006 15:04 MST"))
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 20, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// core PDF fonts are latin-1 only, so amounts use "Rs." rather than the rupee sign
func money(v float64) string {
	return fmt.Sprintf("Rs. %.2f", v)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
