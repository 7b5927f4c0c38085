package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConsumptionEntry records one draw against a batch. A negative Quantity is a reversal.
type ConsumptionEntry struct {
	ID             uuid.UUID
	BatchID        uuid.UUID
	TransactionRef string
	Quantity       decimal.Decimal
	ConsumedAt     time.Time
}

// Batch is a receipt lot. It is never removed from its variant; a drained
// batch stays as a zero-quantity record with its full history.
type Batch struct {
	shared.BaseEntity
	VariantID        uuid.UUID
	Sequence         int64
	ReferenceCode    string
	Supplier         string
	UnitCost         decimal.Decimal
	InitialQuantity  decimal.Decimal
	Quantity         decimal.Decimal
	QuantityConsumed decimal.Decimal
	History          []ConsumptionEntry
	ReceivedAt       time.Time
	ExpiresAt        *time.Time
	PurchaseOrderRef string
}

// BatchReceipt describes a new lot entering the variant
type BatchReceipt struct {
	ReferenceCode    string
	Supplier         string
	Quantity         decimal.Decimal
	UnitCost         decimal.Decimal
	ReceivedAt       time.Time
	ExpiresAt        *time.Time
	PurchaseOrderRef string
}

// Validate checks the receipt amounts
func (r BatchReceipt) Validate() error {
	if !r.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if r.UnitCost.IsNegative() {
		return ErrInvalidUnitCost
	}
	return nil
}

func newBatch(variantID uuid.UUID, sequence int64, r BatchReceipt) *Batch {
	receivedAt := r.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	return &Batch{
		BaseEntity:       shared.NewBaseEntity(),
		VariantID:        variantID,
		Sequence:         sequence,
		ReferenceCode:    r.ReferenceCode,
		Supplier:         r.Supplier,
		UnitCost:         r.UnitCost,
		InitialQuantity:  r.Quantity,
		Quantity:         r.Quantity,
		QuantityConsumed: decimal.Zero,
		ReceivedAt:       receivedAt,
		ExpiresAt:        r.ExpiresAt,
		PurchaseOrderRef: r.PurchaseOrderRef,
	}
}

// Consume draws up to qty from the batch and returns what was actually taken
func (b *Batch) Consume(qty decimal.Decimal, ref string, at time.Time) decimal.Decimal {
	if !qty.IsPositive() || !b.Quantity.IsPositive() {
		return decimal.Zero
	}
	take := decimal.Min(qty, b.Quantity)
	b.Quantity = b.Quantity.Sub(take)
	b.QuantityConsumed = b.QuantityConsumed.Add(take)
	b.appendEntry(ref, take, at)
	return take
}

// Restore puts previously drawn units back and logs a negative entry
func (b *Batch) Restore(qty decimal.Decimal, ref string, at time.Time) error {
	if !qty.IsPositive() {
		return ErrInvalidQuantity
	}
	if qty.GreaterThan(b.QuantityConsumed) {
		return ErrRestoreExceedsDrawn.Withf("cannot restore %s to batch %s, only %s consumed", qty, b.ID, b.QuantityConsumed)
	}
	b.Quantity = b.Quantity.Add(qty)
	b.QuantityConsumed = b.QuantityConsumed.Sub(qty)
	b.appendEntry(ref, qty.Neg(), at)
	return nil
}

func (b *Batch) appendEntry(ref string, qty decimal.Decimal, at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	b.History = append(b.History, ConsumptionEntry{
		ID:             uuid.New(),
		BatchID:        b.ID,
		TransactionRef: ref,
		Quantity:       qty,
		ConsumedAt:     at,
	})
	b.UpdatedAt = at
}

// DrawnBy returns the net quantity drawn by a transaction reference
func (b *Batch) DrawnBy(ref string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range b.History {
		if e.TransactionRef == ref {
			total = total.Add(e.Quantity)
		}
	}
	return total
}

// IsDepleted reports whether the batch has been drained to zero
func (b *Batch) IsDepleted() bool {
	return !b.Quantity.IsPositive()
}

// IsIntact reports whether every received unit is still in the batch
func (b *Batch) IsIntact() bool {
	return b.Quantity.Equal(b.InitialQuantity)
}

// IsExpired reports whether the batch is past its expiry at the given time
func (b *Batch) IsExpired(at time.Time) bool {
	return b.ExpiresAt != nil && b.ExpiresAt.Before(at)
}

// Value returns the remaining quantity priced at the batch cost
func (b *Batch) Value() decimal.Decimal {
	return b.Quantity.Mul(b.UnitCost)
}

// CostLayer converts the batch into its valuation view
func (b *Batch) CostLayer() strategy.CostLayer {
	return strategy.CostLayer{
		BatchID:          b.ID.String(),
		Sequence:         b.Sequence,
		Quantity:         b.Quantity,
		ReceivedQuantity: b.InitialQuantity,
		UnitCost:         b.UnitCost,
		ReceivedAt:       b.ReceivedAt,
	}
}
