package strategy

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CostMethod is the accounting convention used to consume and value batches
type CostMethod string

const (
	CostMethodFIFO            CostMethod = "fifo"
	CostMethodLIFO            CostMethod = "lifo"
	CostMethodWeightedAverage CostMethod = "weighted_average"
)

// DefaultCostMethod is used whenever a stored method cannot be recognized
const DefaultCostMethod = CostMethodFIFO

// String returns the string representation of the cost method
func (m CostMethod) String() string {
	return string(m)
}

// IsValid reports whether m is one of the supported methods
func (m CostMethod) IsValid() bool {
	switch m {
	case CostMethodFIFO, CostMethodLIFO, CostMethodWeightedAverage:
		return true
	default:
		return false
	}
}

// ParseCostMethod normalizes user or database input. Anything it does not
// recognize resolves to FIFO without an error.
func ParseCostMethod(raw string) CostMethod {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fifo":
		return CostMethodFIFO
	case "lifo":
		return CostMethodLIFO
	case "weighted_average", "weighted-average", "wac", "avg", "average":
		return CostMethodWeightedAverage
	default:
		return DefaultCostMethod
	}
}

// CostLayer is the valuation view of one receipt batch.
// Quantity is what remains; ReceivedQuantity is what the receipt brought in.
type CostLayer struct {
	BatchID          string
	Sequence         int64
	Quantity         decimal.Decimal
	ReceivedQuantity decimal.Decimal
	UnitCost         decimal.Decimal
	ReceivedAt       time.Time
}

// SortLayersByReceipt returns a copy ordered oldest first, ties broken by Sequence
func SortLayersByReceipt(layers []CostLayer) []CostLayer {
	sorted := make([]CostLayer, len(layers))
	copy(sorted, layers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ReceivedAt.Equal(sorted[j].ReceivedAt) {
			return sorted[i].ReceivedAt.Before(sorted[j].ReceivedAt)
		}
		return sorted[i].Sequence < sorted[j].Sequence
	})
	return sorted
}

// ValuationStrategy values the stock on hand of a single variant
type ValuationStrategy interface {
	Described
	// Valuate returns the monetary value of stockOnHand given the variant's layers
	Valuate(ctx context.Context, stockOnHand decimal.Decimal, layers []CostLayer) (decimal.Decimal, error)
}

// ValuationStrategyProvider resolves strategies by method
type ValuationStrategyProvider interface {
	GetValuationStrategyOrDefault(method CostMethod) ValuationStrategy
}
