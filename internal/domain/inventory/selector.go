package inventory

import (
	"sort"

	"github.com/erp/stockledger/internal/domain/shared/strategy"
)

// SelectForDepletion returns the batches in the order they should be drained.
//
//   - FIFO: oldest receipt first
//   - LIFO: newest receipt first
//   - weighted average: one pool, drained in FIFO order
//
// Equal receipt dates keep insertion order. Unknown methods behave as FIFO.
// The input slice is not modified.
func SelectForDepletion(batches []*Batch, method strategy.CostMethod) []*Batch {
	ordered := make([]*Batch, len(batches))
	copy(ordered, batches)

	newestFirst := strategy.ParseCostMethod(method.String()) == strategy.CostMethodLIFO

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			if newestFirst {
				return a.ReceivedAt.After(b.ReceivedAt)
			}
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		return a.Sequence < b.Sequence
	})
	return ordered
}
