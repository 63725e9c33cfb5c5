package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus tracks an order through payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusInProcess PaymentStatus = "IN_PROCESS"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusCOD       PaymentStatus = "COD"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusInProcess, PaymentStatusPaid, PaymentStatusCOD:
		return true
	}
	return false
}

type Order struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	BuyerID       uuid.UUID       `json:"buyer_id" db:"buyer_id"`
	OrderDate     time.Time       `json:"order_date" db:"order_date"`
	TotalPrice    decimal.Decimal `json:"total_price" db:"total_price"`
	TotalTax      decimal.Decimal `json:"total_tax" db:"total_tax"`
	GrandTotal    decimal.Decimal `json:"grand_total" db:"grand_total"`
	PaymentStatus PaymentStatus   `json:"payment_status" db:"payment_status"`
	IsDeleted     bool            `json:"is_deleted" db:"is_deleted"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
	Lines         []OrderLine     `json:"lines,omitempty" db:"-"`
}

// OrderLine is one item of an order with the amounts computed when the order was built.
type OrderLine struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	OrderID    uuid.UUID       `json:"order_id" db:"order_id"`
	Position   int             `json:"position" db:"position"`
	ItemID     uuid.UUID       `json:"item_id" db:"item_id"`
	Quantity   decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineAmount decimal.Decimal `json:"line_amount" db:"line_amount"`
	TaxAmount  decimal.Decimal `json:"tax_amount" db:"tax_amount"`
}

// OrderLineInput is a requested (item, quantity) pair. A nil or zero quantity means 1.
type OrderLineInput struct {
	ItemID   uuid.UUID        `json:"item_id"`
	Quantity *decimal.Decimal `json:"qty,omitempty"`
}
