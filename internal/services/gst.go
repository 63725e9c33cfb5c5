package services

import (
	"gstledger/internal/common"
	"gstledger/internal/models"

	"github.com/shopspring/decimal"
)

// GSTType represents the type of GST applicable to a line
type GSTType int

const (
	GSTIntraState GSTType = iota // CGST + SGST
	GSTInterState                // IGST
)

var hundred = decimal.NewFromInt(100)
var two = decimal.NewFromInt(2)

// DetermineGSTType compares buyer and seller jurisdictions. A missing seller state is inter-state,
// and so is a missing buyer state.
func DetermineGSTType(buyerState, sellerState *string) GSTType {
	if sellerState == nil || buyerState == nil {
		return GSTInterState
	}
	if common.NormalizeState(*buyerState) != common.NormalizeState(*sellerState) {
		return GSTInterState
	}
	return GSTIntraState
}

// LineAmount is the tax-exclusive amount of a line.
func LineAmount(unitPrice, quantity decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(quantity)
}

// ComputeLineTax returns the GST breakdown for one line. It has no side effects.
func ComputeLineTax(unitPrice, quantity decimal.Decimal, taxPercent float64, buyerState, sellerState *string) models.TaxBreakdown {
	percent := decimal.NewFromFloat(taxPercent)
	amount := LineAmount(unitPrice, quantity).Mul(percent).Div(hundred)

	switch DetermineGSTType(buyerState, sellerState) {
	case GSTIntraState:
		half := amount.Div(two)
		halfPercent := taxPercent / 2
		cgst, sgst := half, half
		cgstPercent, sgstPercent := halfPercent, halfPercent
		return models.TaxBreakdown{
			Kind:        models.TaxKindCGSTSGST,
			CGSTPercent: &cgstPercent,
			CGSTAmount:  &cgst,
			SGSTPercent: &sgstPercent,
			SGSTAmount:  &sgst,
		}
	case GSTInterState:
		return igstBreakdown(amount, taxPercent)
	}
	return igstBreakdown(amount, taxPercent)
}

func igstBreakdown(amount decimal.Decimal, taxPercent float64) models.TaxBreakdown {
	return models.TaxBreakdown{
		Kind:        models.TaxKindIGST,
		IGSTPercent: &taxPercent,
		IGSTAmount:  &amount,
	}
}

// ResolveQuantity applies the default quantity of 1 to a missing or zero quantity.
func ResolveQuantity(qty *decimal.Decimal) decimal.Decimal {
	if qty == nil || qty.IsZero() {
		return decimal.NewFromInt(1)
	}
	return *qty
}
