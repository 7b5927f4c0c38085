package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Backorder is sale quantity accepted under the backorder policy that no
// batch could serve. It belongs to one order and stays open until that
// order is cancelled. It is not stock and never enters the batch sum.
type Backorder struct {
	ID          uuid.UUID
	VariantID   uuid.UUID
	OrderRef    string
	Quantity    decimal.Decimal
	RecordedAt  time.Time
	CancelledAt *time.Time
}

// IsOpen reports whether the backorder still counts against the variant
func (b *Backorder) IsOpen() bool {
	return b.CancelledAt == nil
}
