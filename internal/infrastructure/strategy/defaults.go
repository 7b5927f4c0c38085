package strategy

import (
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/erp/stockledger/internal/infrastructure/strategy/cost"
)

// NewRegistryWithDefaults registers FIFO, LIFO and weighted-average valuation
// and uses defaultMethod as the fallback for unknown methods.
func NewRegistryWithDefaults(defaultMethod strategy.CostMethod) (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	for _, s := range []strategy.ValuationStrategy{
		cost.NewFIFOValuationStrategy(),
		cost.NewLIFOValuationStrategy(),
		cost.NewWeightedAverageValuationStrategy(),
	} {
		if err := r.RegisterValuationStrategy(s); err != nil {
			return nil, err
		}
	}

	if defaultMethod.IsValid() {
		if err := r.SetDefaultMethod(defaultMethod); err != nil {
			return nil, err
		}
	}
	return r, nil
}
