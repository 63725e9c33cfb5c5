package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TaxType string

const TaxTypeGST TaxType = "GST"

// CatalogItem is a sellable item. SellerID is nil for unassigned items.
type CatalogItem struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Price         decimal.Decimal `json:"price" db:"price"`
	Quantity      decimal.Decimal `json:"quantity" db:"quantity"`
	TaxPercentage float64         `json:"tax_percentage" db:"tax_percentage"`
	TaxType       TaxType         `json:"tax_type" db:"tax_type"`
	SellerID      *uuid.UUID      `json:"seller_id" db:"seller_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}
