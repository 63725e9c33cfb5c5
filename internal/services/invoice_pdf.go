package services

import (
	"bytes"
	"fmt"

	"gstledger/internal/common"
	"gstledger/internal/models"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// InvoicePDFRenderer turns an invoice and its buyer into a PDF document.
type InvoicePDFRenderer interface {
	Render(invoice *models.Invoice, buyer *models.Party) ([]byte, error)
}

type gofpdfRenderer struct {
	title string
}

func NewInvoicePDFRenderer(title string) InvoicePDFRenderer {
	return &gofpdfRenderer{title: title}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func (r *gofpdfRenderer) Render(invoice *models.Invoice, buyer *models.Party) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	marginX, marginY := 15.0, 20.0
	pdf.SetMargins(marginX, marginY, marginX)
	pdf.SetAutoPageBreak(true, marginY)

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(33, 37, 41)
	pdf.SetXY(marginX, marginY)
	pdf.Cell(0, 10, r.title)
	pdf.Ln(15)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Invoice: %s", invoice.ID.String()))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Invoice Date: %s", invoice.CreatedAt.Format("02-Jan-2006")))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Order: %s", invoice.OrderID.String()))
	pdf.Ln(13)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 8, "BILL TO:")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, buyer.Name)
	pdf.Ln(6)
	pdf.Cell(0, 6, buyer.Email)
	pdf.Ln(6)
	if gstin := common.SafeString(buyer.GSTIN); gstin != "" {
		pdf.Cell(0, 6, fmt.Sprintf("GSTIN: %s", gstin))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	headers := []string{"Item", "Qty", "Unit Price", "Amount", "Tax", "Tax Amount"}
	colWidths := []float64{55, 15, 25, 30, 30, 25}

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	for i, header := range headers {
		pdf.CellFormat(colWidths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 9)
	for _, line := range invoice.Lines {
		pdf.CellFormat(colWidths[0], 8, line.ItemName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 8, line.Quantity.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colWidths[2], 8, money(line.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[3], 8, money(line.LineAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[4], 8, taxLabel(line.Tax), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colWidths[5], 8, money(line.Tax.Amount()), "1", 0, "R", false, 0, "")
		pdf.Ln(8)
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	totals := []struct {
		label string
		value decimal.Decimal
	}{
		{"Total Price:", invoice.TotalPrice},
		{"Total Tax:", invoice.TotalTax},
		{"Grand Total:", invoice.GrandTotal},
	}
	for _, t := range totals {
		pdf.CellFormat(140, 6, t.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, money(t.value), "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func taxLabel(t models.TaxBreakdown) string {
	switch t.Kind {
	case models.TaxKindIGST:
		return fmt.Sprintf("IGST %g%%", *t.IGSTPercent)
	case models.TaxKindCGSTSGST:
		return fmt.Sprintf("CGST %g%% + SGST %g%%", *t.CGSTPercent, *t.SGSTPercent)
	}
	return string(t.Kind)
}
