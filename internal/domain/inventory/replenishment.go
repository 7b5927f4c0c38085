package inventory

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReplenishmentCandidate is one variant of a product entering the allocator
type ReplenishmentCandidate struct {
	VariantID   uuid.UUID
	SKU         string
	Flagged     bool
	Recommended int64
	DemandRate  decimal.Decimal
}

// VariantAllocation is the order quantity assigned to one variant
type VariantAllocation struct {
	VariantID   uuid.UUID `json:"variant_id"`
	SKU         string    `json:"sku"`
	Recommended int64     `json:"recommended"`
	Allocated   int64     `json:"allocated"`
	Backfilled  bool      `json:"backfilled"`
}

// ReplenishmentPlan is the product-level order split across variants
type ReplenishmentPlan struct {
	ProductID            uuid.UUID           `json:"product_id"`
	MinimumOrderQuantity int64               `json:"minimum_order_quantity"`
	RecommendedTotal     int64               `json:"recommended_total"`
	TotalOrder           int64               `json:"total_order"`
	Allocations          []VariantAllocation `json:"allocations"`
}

// AllocateReplenishment turns per-variant recommendations into an order whose
// total is exactly max(sum(recommended), moq).
//
// Flagged variants with a positive recommendation share the target in
// proportion to their recommendation. When no flagged variant carries a
// recommendation the MOQ is backfilled from the variants not yet flagged,
// fastest movers first, in proportion to their demand rate. Nothing is
// ordered when no variant is flagged.
func AllocateReplenishment(productID uuid.UUID, moq int64, candidates []ReplenishmentCandidate) (ReplenishmentPlan, error) {
	plan := ReplenishmentPlan{
		ProductID:            productID,
		MinimumOrderQuantity: max(moq, 0),
	}

	anyFlagged := false
	var recommended []ReplenishmentCandidate
	for _, c := range candidates {
		if !c.Flagged {
			continue
		}
		anyFlagged = true
		if c.Recommended > 0 {
			recommended = append(recommended, c)
			plan.RecommendedTotal += c.Recommended
		}
	}
	if !anyFlagged {
		return plan, nil
	}

	target := max(plan.RecommendedTotal, plan.MinimumOrderQuantity)
	if target == 0 {
		return plan, nil
	}

	if len(recommended) > 0 {
		weights := make([]decimal.Decimal, len(recommended))
		for i, c := range recommended {
			weights[i] = decimal.NewFromInt(c.Recommended)
		}
		shares, err := LargestRemainder(target, weights)
		if err != nil {
			return ReplenishmentPlan{}, err
		}
		for i, c := range recommended {
			plan.Allocations = append(plan.Allocations, VariantAllocation{
				VariantID:   c.VariantID,
				SKU:         c.SKU,
				Recommended: c.Recommended,
				Allocated:   shares[i],
			})
		}
	} else {
		pool := backfillPool(candidates)
		sort.SliceStable(pool, func(i, j int) bool {
			return pool[i].DemandRate.GreaterThan(pool[j].DemandRate)
		})

		weights := make([]decimal.Decimal, len(pool))
		for i, c := range pool {
			weights[i] = decimal.Max(c.DemandRate, decimal.Zero)
		}
		shares, err := LargestRemainder(target, weights)
		if err != nil {
			return ReplenishmentPlan{}, err
		}
		for i, c := range pool {
			if shares[i] == 0 {
				continue
			}
			plan.Allocations = append(plan.Allocations, VariantAllocation{
				VariantID:   c.VariantID,
				SKU:         c.SKU,
				Recommended: max(c.Recommended, 0),
				Allocated:   shares[i],
				Backfilled:  true,
			})
		}
	}

	var total int64
	for _, a := range plan.Allocations {
		total += a.Allocated
	}
	if total != target {
		return ReplenishmentPlan{}, ErrAllocationMismatch.Withf("allocated %d units against target %d", total, target)
	}
	plan.TotalOrder = total
	return plan, nil
}

// backfillPool returns the unflagged candidates. When every variant is
// already flagged they all stay in the pool so the MOQ can still be placed.
func backfillPool(candidates []ReplenishmentCandidate) []ReplenishmentCandidate {
	var pool []ReplenishmentCandidate
	for _, c := range candidates {
		if !c.Flagged {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		pool = make([]ReplenishmentCandidate, len(candidates))
		copy(pool, candidates)
	}
	return pool
}

// LargestRemainder apportions target whole units across weights (Hamilton
// method). Each share is floored, then the leftover units go one by one to
// the largest remainders, earlier positions winning ties. All-zero weights
// split evenly.
func LargestRemainder(target int64, weights []decimal.Decimal) ([]int64, error) {
	shares := make([]int64, len(weights))
	if target <= 0 || len(weights) == 0 {
		if target > 0 {
			return nil, ErrNoReplenishmentPool
		}
		return shares, nil
	}

	w := make([]decimal.Decimal, len(weights))
	total := decimal.Zero
	for i, weight := range weights {
		if weight.IsNegative() {
			weight = decimal.Zero
		}
		w[i] = weight
		total = total.Add(weight)
	}
	if total.IsZero() {
		for i := range w {
			w[i] = decimal.NewFromInt(1)
		}
		total = decimal.NewFromInt(int64(len(w)))
	}

	// target*w/total split exactly into quotient and remainder; the shared
	// denominator lets remainders be compared directly.
	targetDec := decimal.NewFromInt(target)
	remainders := make([]decimal.Decimal, len(w))
	var allocated int64
	for i, weight := range w {
		q, r := targetDec.Mul(weight).QuoRem(total, 0)
		shares[i] = q.IntPart()
		remainders[i] = r
		allocated += shares[i]
	}

	order := make([]int, len(w))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})

	leftover := target - allocated
	for k := 0; leftover > 0; k++ {
		shares[order[k%len(order)]]++
		leftover--
	}

	var sum int64
	for _, s := range shares {
		sum += s
	}
	if sum != target {
		return nil, ErrAllocationMismatch.Withf("apportioned %d units against target %d", sum, target)
	}
	return shares, nil
}
