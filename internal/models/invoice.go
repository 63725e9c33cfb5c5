package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Invoice struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OrderID      uuid.UUID       `json:"order_id" db:"order_id"`
	TaxType      TaxType         `json:"tax_type" db:"tax_type"`
	TotalTax     decimal.Decimal `json:"total_tax" db:"total_tax"`
	TotalPrice   decimal.Decimal `json:"total_price" db:"total_price"`
	GrandTotal   decimal.Decimal `json:"grand_total" db:"grand_total"`
	IsDeleted    bool            `json:"is_deleted" db:"is_deleted"`
	PDFObjectKey *string         `json:"pdf_object_key" db:"pdf_object_key"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
	Lines        []InvoiceLine   `json:"lines,omitempty" db:"-"`
}

// InvoiceLine keeps its row after supersession; only InvoiceID is cleared.
// Position follows the order line it was built from.
type InvoiceLine struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	InvoiceID  *uuid.UUID      `json:"invoice_id" db:"invoice_id"`
	Position   int             `json:"position" db:"position"`
	ItemID     uuid.UUID       `json:"item_id" db:"item_id"`
	ItemName   string          `json:"item_name" db:"-"`
	Quantity   decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineAmount decimal.Decimal `json:"line_amount" db:"line_amount"`
	Tax        TaxBreakdown    `json:"tax" db:"-"`
}
