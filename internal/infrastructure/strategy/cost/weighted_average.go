package cost

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// WeightedAverageValuationStrategy prices the whole pool at one blended cost
type WeightedAverageValuationStrategy struct {
	strategy.Descriptor
}

// NewWeightedAverageValuationStrategy creates a new weighted-average valuation strategy
func NewWeightedAverageValuationStrategy() *WeightedAverageValuationStrategy {
	return &WeightedAverageValuationStrategy{
		Descriptor: strategy.NewDescriptor(
			strategy.CostMethodWeightedAverage,
			"Weighted average cost over every receipt",
		),
	}
}

// Valuate returns stockOnHand * sum(received*cost) / sum(received).
// Depleted layers still count toward the blend.
func (s *WeightedAverageValuationStrategy) Valuate(
	ctx context.Context,
	stockOnHand decimal.Decimal,
	layers []strategy.CostLayer,
) (decimal.Decimal, error) {
	if !stockOnHand.IsPositive() || len(layers) == 0 {
		return decimal.Zero, nil
	}

	totalQty, totalCost := blend(layers)
	if !totalQty.IsPositive() {
		return decimal.Zero, nil
	}

	// multiply before dividing so integral results stay exact
	return stockOnHand.Mul(totalCost).Div(totalQty).Round(4), nil
}

// AverageUnitCost returns the blended unit cost, or zero when nothing was received
func (s *WeightedAverageValuationStrategy) AverageUnitCost(layers []strategy.CostLayer) decimal.Decimal {
	totalQty, totalCost := blend(layers)
	if !totalQty.IsPositive() {
		return decimal.Zero
	}
	return totalCost.Div(totalQty).Round(4)
}

func blend(layers []strategy.CostLayer) (decimal.Decimal, decimal.Decimal) {
	totalQty := decimal.Zero
	totalCost := decimal.Zero
	for _, layer := range layers {
		qty := layer.ReceivedQuantity
		if qty.IsZero() {
			qty = layer.Quantity
		}
		totalQty = totalQty.Add(qty)
		totalCost = totalCost.Add(qty.Mul(layer.UnitCost))
	}
	return totalQty, totalCost
}
