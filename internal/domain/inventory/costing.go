package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Valuation is the monetary value of a variant's stock on hand
type Valuation struct {
	VariantID   uuid.UUID           `json:"variant_id"`
	Method      strategy.CostMethod `json:"method"`
	StockOnHand decimal.Decimal     `json:"stock_on_hand"`
	Amount      decimal.Decimal     `json:"amount"`
	// IntegrityFault is set when positive stock has no batches behind it.
	// The amount is then zero; it is never derived from the reference cost.
	IntegrityFault bool `json:"integrity_fault"`
}

// Valuate values the variant's batches with the given strategy
func Valuate(ctx context.Context, v *Variant, s strategy.ValuationStrategy) (Valuation, error) {
	val, err := ValuateLayers(ctx, v.StockOnHand(), v.CostLayers(), s)
	if err != nil {
		return Valuation{}, err
	}
	val.VariantID = v.ID
	return val, nil
}

// ValuateLayers applies the zero-stock and missing-batch rules before
// delegating to the strategy.
func ValuateLayers(ctx context.Context, stockOnHand decimal.Decimal, layers []strategy.CostLayer, s strategy.ValuationStrategy) (Valuation, error) {
	val := Valuation{
		Method:      s.Method(),
		StockOnHand: stockOnHand,
		Amount:      decimal.Zero,
	}
	if !stockOnHand.IsPositive() {
		return val, nil
	}
	if len(layers) == 0 {
		val.IntegrityFault = true
		return val, nil
	}

	amount, err := s.Valuate(ctx, stockOnHand, layers)
	if err != nil {
		return Valuation{}, err
	}
	val.Amount = amount
	return val, nil
}
