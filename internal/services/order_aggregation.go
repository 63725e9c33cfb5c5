package services

import (
	"context"

	"gstledger/internal/common"
	"gstledger/internal/models"
	"gstledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// pricedLine is one requested line resolved against the catalog and taxed.
type pricedLine struct {
	Item     *models.CatalogItem
	Quantity decimal.Decimal
	Amount   decimal.Decimal
	Tax      models.TaxBreakdown
}

// Totals are the tax-exclusive price, the tax and their sum.
type Totals struct {
	TotalPrice decimal.Decimal
	TotalTax   decimal.Decimal
	GrandTotal decimal.Decimal
}

// priceLines resolves every input against the catalog and computes each line's tax using
// the buyer's state and that line's own seller state. Lines are never netted against each other.
func priceLines(ctx context.Context, store *repositories.Store, buyerState *string, inputs []models.OrderLineInput) ([]pricedLine, error) {
	sellerStates := make(map[uuid.UUID]*string)
	priced := make([]pricedLine, 0, len(inputs))

	for _, input := range inputs {
		item, err := store.Items.GetByID(ctx, input.ItemID)
		if err != nil {
			return nil, err
		}

		qty := ResolveQuantity(input.Quantity)
		if qty.IsNegative() {
			return nil, common.NewValidationError("qty", "quantity cannot be negative")
		}

		var sellerState *string
		if item.SellerID != nil {
			state, seen := sellerStates[*item.SellerID]
			if !seen {
				state, err = store.Parties.GetPrimaryState(ctx, *item.SellerID)
				if err != nil {
					return nil, err
				}
				sellerStates[*item.SellerID] = state
			}
			sellerState = state
		}

		priced = append(priced, pricedLine{
			Item:     item,
			Quantity: qty,
			Amount:   LineAmount(item.Price, qty),
			Tax:      ComputeLineTax(item.Price, qty, item.TaxPercentage, buyerState, sellerState),
		})
	}
	return priced, nil
}

func sumTotals(lines []pricedLine) Totals {
	totalPrice, totalTax := decimal.Zero, decimal.Zero
	for _, line := range lines {
		totalPrice = totalPrice.Add(line.Amount)
		totalTax = totalTax.Add(line.Tax.Amount())
	}
	return Totals{
		TotalPrice: totalPrice,
		TotalTax:   totalTax,
		GrandTotal: totalPrice.Add(totalTax),
	}
}
