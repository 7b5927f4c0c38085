package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeStockMovementRecorded = "StockMovementRecorded"
	EventTypeStockShortfall        = "StockShortfall"
	EventTypeOrderLedgerReversed   = "OrderLedgerReversed"
	EventTypeCostMethodChanged     = "CostMethodChanged"
)

// StockMovementRecordedEvent is raised once per committed movement
type StockMovementRecordedEvent struct {
	shared.BaseDomainEvent
	MovementID    uuid.UUID       `json:"movement_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Kind          MovementKind    `json:"kind"`
	Quantity      decimal.Decimal `json:"quantity"`
	PreviousStock decimal.Decimal `json:"previous_stock"`
	NewStock      decimal.Decimal `json:"new_stock"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	OrderRef      string          `json:"order_ref,omitempty"`
	MovedAt       time.Time       `json:"moved_at"`
}

// NewStockMovementRecordedEvent creates a StockMovementRecordedEvent
func NewStockMovementRecordedEvent(v *Variant, m *Movement) *StockMovementRecordedEvent {
	return &StockMovementRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockMovementRecorded, AggregateTypeVariant, v.ID),
		MovementID:      m.ID,
		ProductID:       v.ProductID,
		Kind:            m.Kind,
		Quantity:        m.Quantity,
		PreviousStock:   m.PreviousStock,
		NewStock:        m.NewStock,
		UnitCost:        m.UnitCost,
		OrderRef:        m.OrderRef,
		MovedAt:         m.OccurredAt,
	}
}

// StockShortfallEvent is raised when a sale could not be fully served from batches
type StockShortfallEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID       `json:"product_id"`
	SKU         string          `json:"sku"`
	Requested   decimal.Decimal `json:"requested"`
	Unconsumed  decimal.Decimal `json:"unconsumed"`
	Backordered bool            `json:"backordered"`
	OrderRef    string          `json:"order_ref,omitempty"`
	SoldAt      time.Time       `json:"sold_at"`
}

// NewStockShortfallEvent creates a StockShortfallEvent
func NewStockShortfallEvent(v *Variant, requested, unconsumed decimal.Decimal, orderRef string, soldAt time.Time) *StockShortfallEvent {
	return &StockShortfallEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockShortfall, AggregateTypeVariant, v.ID),
		ProductID:       v.ProductID,
		SKU:             v.SKU,
		Requested:       requested,
		Unconsumed:      unconsumed,
		Backordered:     v.AllowBackorder,
		OrderRef:        orderRef,
		SoldAt:          soldAt,
	}
}

// OrderLedgerReversedEvent is raised when a cancelled order's effects on a
// variant are undone. An order that was only ever backordered reverses with
// no movement IDs and a positive ReleasedBackorder.
type OrderLedgerReversedEvent struct {
	shared.BaseDomainEvent
	OrderRef          string          `json:"order_ref"`
	ReversedIDs       []uuid.UUID     `json:"reversed_movement_ids"`
	CompensatingIDs   []uuid.UUID     `json:"compensating_movement_ids"`
	ReleasedBackorder decimal.Decimal `json:"released_backorder"`
}

// NewOrderLedgerReversedEvent creates an OrderLedgerReversedEvent
func NewOrderLedgerReversedEvent(v *Variant, orderRef string, reversed, compensating []uuid.UUID, releasedBackorder decimal.Decimal) *OrderLedgerReversedEvent {
	return &OrderLedgerReversedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeOrderLedgerReversed, AggregateTypeVariant, v.ID),
		OrderRef:          orderRef,
		ReversedIDs:       reversed,
		CompensatingIDs:   compensating,
		ReleasedBackorder: releasedBackorder,
	}
}

// CostMethodChangedEvent is raised when a product switches costing method
type CostMethodChangedEvent struct {
	shared.BaseDomainEvent
	OldMethod strategy.CostMethod `json:"old_method"`
	NewMethod strategy.CostMethod `json:"new_method"`
}

// NewCostMethodChangedEvent creates a CostMethodChangedEvent
func NewCostMethodChangedEvent(p *Product, oldMethod, newMethod strategy.CostMethod) *CostMethodChangedEvent {
	return &CostMethodChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCostMethodChanged, AggregateTypeProduct, p.ID),
		OldMethod:       oldMethod,
		NewMethod:       newMethod,
	}
}
