package cost

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// FIFOValuationStrategy values remaining stock as if the earliest receipts were sold first
type FIFOValuationStrategy struct {
	strategy.Descriptor
}

// NewFIFOValuationStrategy creates a new FIFO valuation strategy
func NewFIFOValuationStrategy() *FIFOValuationStrategy {
	return &FIFOValuationStrategy{
		Descriptor: strategy.NewDescriptor(
			strategy.CostMethodFIFO,
			"First-In-First-Out: remaining stock carries the newest receipt costs",
		),
	}
}

// Valuate walks the layers from the newest receipt backward, virtually
// consuming stockOnHand and pricing each slice at its layer cost.
func (s *FIFOValuationStrategy) Valuate(
	ctx context.Context,
	stockOnHand decimal.Decimal,
	layers []strategy.CostLayer,
) (decimal.Decimal, error) {
	if !stockOnHand.IsPositive() || len(layers) == 0 {
		return decimal.Zero, nil
	}

	sorted := strategy.SortLayersByReceipt(layers)
	ordered := make([]strategy.CostLayer, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		ordered = append(ordered, sorted[i])
	}
	return walkLayers(stockOnHand, ordered), nil
}

// walkLayers consumes stock from the layers in the given order and returns the value
func walkLayers(stock decimal.Decimal, ordered []strategy.CostLayer) decimal.Decimal {
	remaining := stock
	value := decimal.Zero
	for _, layer := range ordered {
		if !remaining.IsPositive() {
			break
		}
		if !layer.Quantity.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, layer.Quantity)
		value = value.Add(take.Mul(layer.UnitCost))
		remaining = remaining.Sub(take)
	}
	return value.Round(4)
}
