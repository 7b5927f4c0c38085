package cost

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// LIFOValuationStrategy values remaining stock as if the newest receipts were sold first
type LIFOValuationStrategy struct {
	strategy.Descriptor
}

// NewLIFOValuationStrategy creates a new LIFO valuation strategy
func NewLIFOValuationStrategy() *LIFOValuationStrategy {
	return &LIFOValuationStrategy{
		Descriptor: strategy.NewDescriptor(
			strategy.CostMethodLIFO,
			"Last-In-First-Out: remaining stock carries the oldest receipt costs",
		),
	}
}

// Valuate walks the layers from the oldest receipt forward
func (s *LIFOValuationStrategy) Valuate(
	ctx context.Context,
	stockOnHand decimal.Decimal,
	layers []strategy.CostLayer,
) (decimal.Decimal, error) {
	if !stockOnHand.IsPositive() || len(layers) == 0 {
		return decimal.Zero, nil
	}
	return walkLayers(stockOnHand, strategy.SortLayersByReceipt(layers)), nil
}
