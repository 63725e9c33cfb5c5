package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxKind tells which half of a TaxBreakdown is populated.
type TaxKind string

const (
	TaxKindIGST     TaxKind = "IGST"
	TaxKindCGSTSGST TaxKind = "CGST_SGST"
)

// TaxBreakdown holds either an IGST component or a CGST+SGST pair, never both.
type TaxBreakdown struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	Kind        TaxKind          `json:"kind" db:"kind"`
	IGSTPercent *float64         `json:"igst_percent,omitempty" db:"igst_percent"`
	IGSTAmount  *decimal.Decimal `json:"igst_amount,omitempty" db:"igst_amount"`
	CGSTPercent *float64         `json:"cgst_percent,omitempty" db:"cgst_percent"`
	CGSTAmount  *decimal.Decimal `json:"cgst_amount,omitempty" db:"cgst_amount"`
	SGSTPercent *float64         `json:"sgst_percent,omitempty" db:"sgst_percent"`
	SGSTAmount  *decimal.Decimal `json:"sgst_amount,omitempty" db:"sgst_amount"`
}

// Amount is the total tax carried by the breakdown.
func (t TaxBreakdown) Amount() decimal.Decimal {
	switch t.Kind {
	case TaxKindIGST:
		return derefDecimal(t.IGSTAmount)
	case TaxKindCGSTSGST:
		return derefDecimal(t.CGSTAmount).Add(derefDecimal(t.SGSTAmount))
	}
	return decimal.Zero
}

func derefDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
