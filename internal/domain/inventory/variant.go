package inventory

import (
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeVariant is the aggregate type used on variant events
const AggregateTypeVariant = "Variant"

// VariantStatus is the sellable state of a variant
type VariantStatus string

const (
	VariantStatusActive       VariantStatus = "active"
	VariantStatusInactive     VariantStatus = "inactive"
	VariantStatusDiscontinued VariantStatus = "discontinued"
)

// IsValid reports whether the status is known
func (s VariantStatus) IsValid() bool {
	switch s {
	case VariantStatusActive, VariantStatusInactive, VariantStatusDiscontinued:
		return true
	}
	return false
}

// Variant is a sellable SKU. Its stock on hand is never stored: it is always
// the sum of the remaining quantity of its batches.
type Variant struct {
	shared.BaseAggregateRoot
	ProductID         uuid.UUID
	SKU               string
	UnitPrice         decimal.Decimal
	ReferenceCost     decimal.Decimal
	ReorderPoint      int64
	ReorderQuantity   int64
	LeadTimeDays      int
	AllowBackorder    bool
	CommittedQuantity decimal.Decimal
	IncomingQuantity  decimal.Decimal
	Status            VariantStatus

	batches      []*Batch
	backorders   []*Backorder
	nextSequence int64
}

// NewVariant creates an active variant with no batches
func NewVariant(productID uuid.UUID, sku string, unitPrice, referenceCost decimal.Decimal) (*Variant, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if unitPrice.IsNegative() || referenceCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price and reference cost cannot be negative")
	}

	return &Variant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		SKU:               sku,
		UnitPrice:         unitPrice,
		ReferenceCost:     referenceCost,
		CommittedQuantity: decimal.Zero,
		IncomingQuantity:  decimal.Zero,
		Status:            VariantStatusActive,
		nextSequence:      1,
	}, nil
}

// LoadBatches hydrates the batch arena from storage
func (v *Variant) LoadBatches(batches []*Batch) {
	v.batches = make([]*Batch, len(batches))
	copy(v.batches, batches)
	v.nextSequence = 1
	for _, b := range batches {
		if b.Sequence >= v.nextSequence {
			v.nextSequence = b.Sequence + 1
		}
	}
}

// Batches returns the arena in insertion order, tombstones included
func (v *Variant) Batches() []*Batch {
	out := make([]*Batch, len(v.batches))
	copy(out, v.batches)
	return out
}

// BatchByID finds a batch in the arena
func (v *Variant) BatchByID(id uuid.UUID) (*Batch, bool) {
	for _, b := range v.batches {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// StockOnHand is the sum of remaining batch quantities
func (v *Variant) StockOnHand() decimal.Decimal {
	total := decimal.Zero
	for _, b := range v.batches {
		total = total.Add(b.Quantity)
	}
	return total
}

// Available is stock on hand minus committed quantity
func (v *Variant) Available() decimal.Decimal {
	return v.StockOnHand().Sub(v.CommittedQuantity)
}

// HasConsumptionHistory reports whether any batch has ever been drawn from
func (v *Variant) HasConsumptionHistory() bool {
	for _, b := range v.batches {
		if len(b.History) > 0 {
			return true
		}
	}
	return false
}

// CostLayers returns the valuation view of every batch
func (v *Variant) CostLayers() []strategy.CostLayer {
	layers := make([]strategy.CostLayer, 0, len(v.batches))
	for _, b := range v.batches {
		layers = append(layers, b.CostLayer())
	}
	return layers
}

// AverageReceiptCost blends every receipt by its received quantity.
// Without batches the reference cost is used.
func (v *Variant) AverageReceiptCost() decimal.Decimal {
	received := decimal.Zero
	spent := decimal.Zero
	for _, b := range v.batches {
		received = received.Add(b.InitialQuantity)
		spent = spent.Add(b.InitialQuantity.Mul(b.UnitCost))
	}
	if !received.IsPositive() {
		return v.ReferenceCost
	}
	return spent.Div(received).Round(4)
}

// IsActive reports whether the variant accepts mutations
func (v *Variant) IsActive() bool {
	return v.Status == VariantStatusActive
}

// ReceiveBatch appends a new lot to the arena
func (v *Variant) ReceiveBatch(r BatchReceipt) (*Batch, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if v.nextSequence < 1 {
		v.nextSequence = 1
	}
	b := newBatch(v.ID, v.nextSequence, r)
	v.nextSequence++
	v.batches = append(v.batches, b)
	return b, nil
}

// Consume drains qty in the depletion order of method.
// When stock runs out the shortfall is reported, not applied.
func (v *Variant) Consume(method strategy.CostMethod, qty decimal.Decimal, ref string, at time.Time) (ConsumptionResult, error) {
	if !qty.IsPositive() {
		return ConsumptionResult{}, ErrInvalidQuantity
	}
	return drainBatches(SelectForDepletion(v.batches, method), qty, ref, at), nil
}

// ConsumeFromBatch drains qty from one specific batch
func (v *Variant) ConsumeFromBatch(batchID uuid.UUID, qty decimal.Decimal, ref string, at time.Time) (ConsumptionResult, error) {
	if !qty.IsPositive() {
		return ConsumptionResult{}, ErrInvalidQuantity
	}
	b, ok := v.BatchByID(batchID)
	if !ok {
		return ConsumptionResult{}, ErrBatchNotFound.Withf("batch %s not found on variant %s", batchID, v.ID)
	}
	return drainBatches([]*Batch{b}, qty, ref, at), nil
}

// RestoreDraws reverses everything a transaction drew, batch by batch
func (v *Variant) RestoreDraws(drawRef, reversalRef string, at time.Time) (decimal.Decimal, error) {
	restored := decimal.Zero
	for _, b := range v.batches {
		drawn := b.DrawnBy(drawRef)
		if !drawn.IsPositive() {
			continue
		}
		if err := b.Restore(drawn, reversalRef, at); err != nil {
			return decimal.Zero, err
		}
		restored = restored.Add(drawn)
	}
	return restored, nil
}

// LoadBackorders hydrates the variant's backorders from storage
func (v *Variant) LoadBackorders(backorders []*Backorder) {
	v.backorders = make([]*Backorder, len(backorders))
	copy(v.backorders, backorders)
}

// Backorders returns every backorder, cancelled ones included
func (v *Variant) Backorders() []*Backorder {
	out := make([]*Backorder, len(v.backorders))
	copy(out, v.backorders)
	return out
}

// BackorderedQuantity is the sum of the open backorders
func (v *Variant) BackorderedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, b := range v.backorders {
		if b.IsOpen() {
			total = total.Add(b.Quantity)
		}
	}
	return total
}

// OpenBackorder returns what is still backordered for one order
func (v *Variant) OpenBackorder(orderRef string) decimal.Decimal {
	total := decimal.Zero
	for _, b := range v.backorders {
		if b.IsOpen() && b.OrderRef == orderRef {
			total = total.Add(b.Quantity)
		}
	}
	return total
}

// RecordBackorder records a shortfall accepted for orderRef. Non-positive
// quantities are ignored and return nil.
func (v *Variant) RecordBackorder(orderRef string, qty decimal.Decimal, at time.Time) *Backorder {
	if !qty.IsPositive() {
		return nil
	}
	b := &Backorder{
		ID:         uuid.New(),
		VariantID:  v.ID,
		OrderRef:   orderRef,
		Quantity:   qty,
		RecordedAt: at,
	}
	v.backorders = append(v.backorders, b)
	return b
}

// CancelBackorders closes every open backorder of orderRef and returns the
// quantity released
func (v *Variant) CancelBackorders(orderRef string, at time.Time) decimal.Decimal {
	released := decimal.Zero
	for _, b := range v.backorders {
		if !b.IsOpen() || b.OrderRef != orderRef {
			continue
		}
		cancelledAt := at
		b.CancelledAt = &cancelledAt
		released = released.Add(b.Quantity)
	}
	return released
}

// SetReorderPolicy updates the configured reorder point, quantity and lead time
func (v *Variant) SetReorderPolicy(reorderPoint, reorderQuantity int64, leadTimeDays int) error {
	if reorderPoint < 0 || reorderQuantity < 0 || leadTimeDays < 0 {
		return shared.NewDomainError("INVALID_REORDER_POLICY", "Reorder settings cannot be negative")
	}
	v.ReorderPoint = reorderPoint
	v.ReorderQuantity = reorderQuantity
	v.LeadTimeDays = leadTimeDays
	return nil
}

// EffectiveLeadTime returns the variant lead time, or the product default when unset
func (v *Variant) EffectiveLeadTime(p *Product) int {
	if v.LeadTimeDays > 0 || p == nil {
		return v.LeadTimeDays
	}
	return p.DefaultLeadTimeDays
}
