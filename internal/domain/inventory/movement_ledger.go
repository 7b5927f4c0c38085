package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NextMovement builds the ledger entry that follows latest for a variant
// whose batches have already been mutated. previousStock comes from latest,
// never from the batches, and the resulting newStock must match the batch
// sum. A mismatch means the write would break the chain and is rejected.
func NextMovement(latest *Movement, v *Variant, kind MovementKind, qty decimal.Decimal, opts MovementOptions) (*Movement, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidMovementKind.Withf("unknown movement kind %q", kind)
	}
	if !kind.AcceptsSign(qty) {
		return nil, ErrInvalidMovementSign.Withf("%s movement cannot carry quantity %s", kind, qty)
	}

	previous := decimal.Zero
	sequence := int64(1)
	if latest != nil {
		if latest.VariantID != v.ID {
			return nil, ErrLedgerChainBroken.Withf("latest movement %s belongs to variant %s, not %s", latest.ID, latest.VariantID, v.ID)
		}
		previous = latest.NewStock
		sequence = latest.Sequence + 1
	}

	newStock := previous.Add(qty)
	onHand := v.StockOnHand()
	if !newStock.Equal(onHand) {
		return nil, ErrLedgerChainBroken.Withf(
			"variant %s: ledger %s + (%s) gives %s but batches hold %s",
			v.ID, previous, qty, newStock, onHand,
		)
	}

	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	occurredAt := opts.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return &Movement{
		ID:            id,
		VariantID:     v.ID,
		Sequence:      sequence,
		Kind:          kind,
		Quantity:      qty,
		PreviousStock: previous,
		NewStock:      newStock,
		OrderRef:      opts.OrderRef,
		Reason:        opts.Reason,
		BatchID:       opts.BatchID,
		UnitCost:      opts.UnitCost,
		Actor:         opts.Actor,
		ReversalOf:    opts.ReversalOf,
		OccurredAt:    occurredAt,
		CreatedAt:     time.Now(),
	}, nil
}

// ChainBreak describes one inconsistency found by VerifyChain
type ChainBreak struct {
	MovementID uuid.UUID
	Sequence   int64
	Expected   decimal.Decimal
	Actual     decimal.Decimal
	Reason     string
}

// String formats the break for logs and reports
func (b ChainBreak) String() string {
	return fmt.Sprintf("movement %s (seq %d): %s, expected %s got %s", b.MovementID, b.Sequence, b.Reason, b.Expected, b.Actual)
}

// VerifyChain checks chronologically ordered movements of one variant.
// It reports every break and never modifies the movements.
func VerifyChain(movements []*Movement) []ChainBreak {
	var breaks []ChainBreak
	expectedPrevious := decimal.Zero
	expectedSeq := int64(1)

	for _, m := range movements {
		if m.Sequence != expectedSeq {
			breaks = append(breaks, ChainBreak{
				MovementID: m.ID,
				Sequence:   m.Sequence,
				Expected:   decimal.NewFromInt(expectedSeq),
				Actual:     decimal.NewFromInt(m.Sequence),
				Reason:     "sequence gap",
			})
		}
		if !m.PreviousStock.Equal(expectedPrevious) {
			breaks = append(breaks, ChainBreak{
				MovementID: m.ID,
				Sequence:   m.Sequence,
				Expected:   expectedPrevious,
				Actual:     m.PreviousStock,
				Reason:     "previous stock does not match prior new stock",
			})
		}
		if sum := m.PreviousStock.Add(m.Quantity); !m.NewStock.Equal(sum) {
			breaks = append(breaks, ChainBreak{
				MovementID: m.ID,
				Sequence:   m.Sequence,
				Expected:   sum,
				Actual:     m.NewStock,
				Reason:     "new stock is not previous stock plus quantity",
			})
		}
		expectedPrevious = m.NewStock
		expectedSeq = m.Sequence + 1
	}
	return breaks
}

// NetQuantity sums the signed quantities of the movements
func NetQuantity(movements []*Movement) decimal.Decimal {
	total := decimal.Zero
	for _, m := range movements {
		total = total.Add(m.Quantity)
	}
	return total
}

// ExcludeReversed drops movements that were compensated together with the
// compensating entries, leaving only effects that still stand.
func ExcludeReversed(movements []*Movement) []*Movement {
	reversed := make(map[uuid.UUID]bool)
	for _, m := range movements {
		if m.ReversalOf != nil {
			reversed[*m.ReversalOf] = true
		}
	}
	out := make([]*Movement, 0, len(movements))
	for _, m := range movements {
		if m.ReversalOf != nil || reversed[m.ID] {
			continue
		}
		out = append(out, m)
	}
	return out
}
