package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivePurchaseRequest records a supplier delivery as a new batch
type ReceivePurchaseRequest struct {
	VariantID        uuid.UUID       `json:"variant_id" validate:"required"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	ReferenceCode    string          `json:"reference_code" validate:"max=64"`
	Supplier         string          `json:"supplier" validate:"max=128"`
	PurchaseOrderRef string          `json:"purchase_order_ref" validate:"max=64"`
	ReceivedAt       time.Time       `json:"received_at"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	Actor            string          `json:"actor" validate:"max=64"`
}

// RecordSaleRequest consumes stock for a customer order
type RecordSaleRequest struct {
	VariantID  uuid.UUID       `json:"variant_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	OrderRef   string          `json:"order_ref" validate:"required,max=64"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      string          `json:"actor" validate:"max=64"`
}

// RecordAdjustmentRequest corrects stock in either direction.
// UnitCost prices a positive adjustment; when nil the variant's average receipt cost is used.
type RecordAdjustmentRequest struct {
	VariantID uuid.UUID        `json:"variant_id" validate:"required"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason    string           `json:"reason" validate:"required,max=255"`
	Actor     string           `json:"actor" validate:"max=64"`
}

// RecordReturnRequest puts customer-returned units back as a new batch
type RecordReturnRequest struct {
	VariantID uuid.UUID        `json:"variant_id" validate:"required"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
	OrderRef  string           `json:"order_ref" validate:"max=64"`
	Reason    string           `json:"reason" validate:"max=255"`
	Actor     string           `json:"actor" validate:"max=64"`
}

// RecordLossRequest writes off damaged or expired units.
// BatchID pins the write-off to one batch instead of the costing order.
type RecordLossRequest struct {
	VariantID uuid.UUID       `json:"variant_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	BatchID   *uuid.UUID      `json:"batch_id,omitempty"`
	Reason    string          `json:"reason" validate:"required,max=255"`
	Actor     string          `json:"actor" validate:"max=64"`
}

// RecordTransferRequest moves units in or out of this stock location.
// A positive quantity arrives as a new batch; a negative one is consumed.
type RecordTransferRequest struct {
	VariantID   uuid.UUID        `json:"variant_id" validate:"required"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	TransferRef string           `json:"transfer_ref" validate:"required,max=64"`
	Reason      string           `json:"reason" validate:"max=255"`
	Actor       string           `json:"actor" validate:"max=64"`
}

// CancelOrderRequest reverses every ledger effect of an order
type CancelOrderRequest struct {
	OrderRef string `json:"order_ref" validate:"required,max=64"`
	Actor    string `json:"actor" validate:"max=64"`
}

// CreateProductRequest creates a product with its costing and replenishment policy.
// An empty CostMethod or nil BufferDays takes the configured default.
type CreateProductRequest struct {
	Name                 string `json:"name" validate:"required,max=200"`
	CostMethod           string `json:"cost_method" validate:"omitempty,oneof=fifo lifo weighted_average"`
	BufferDays           *int   `json:"buffer_days,omitempty" validate:"omitempty,gte=0"`
	DefaultLeadTimeDays  int    `json:"default_lead_time_days" validate:"gte=0"`
	MinimumOrderQuantity int64  `json:"minimum_order_quantity" validate:"gte=0"`
}

// CreateVariantRequest creates a variant under a product
type CreateVariantRequest struct {
	ProductID       uuid.UUID       `json:"product_id" validate:"required"`
	SKU             string          `json:"sku" validate:"required,max=64"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	ReferenceCost   decimal.Decimal `json:"reference_cost"`
	ReorderPoint    int64           `json:"reorder_point" validate:"gte=0"`
	ReorderQuantity int64           `json:"reorder_quantity" validate:"gte=0"`
	LeadTimeDays    int             `json:"lead_time_days" validate:"gte=0"`
	AllowBackorder  bool            `json:"allow_backorder"`
}

// SetReorderPolicyRequest updates the configured reorder settings of a variant
type SetReorderPolicyRequest struct {
	VariantID       uuid.UUID `json:"variant_id" validate:"required"`
	ReorderPoint    int64     `json:"reorder_point" validate:"gte=0"`
	ReorderQuantity int64     `json:"reorder_quantity" validate:"gte=0"`
	LeadTimeDays    int       `json:"lead_time_days" validate:"gte=0"`
	AllowBackorder  *bool     `json:"allow_backorder,omitempty"`
}

// SetReplenishmentPolicyRequest updates buffer, lead time and MOQ of a product
type SetReplenishmentPolicyRequest struct {
	ProductID            uuid.UUID `json:"product_id" validate:"required"`
	BufferDays           int       `json:"buffer_days" validate:"gte=0"`
	DefaultLeadTimeDays  int       `json:"default_lead_time_days" validate:"gte=0"`
	MinimumOrderQuantity int64     `json:"minimum_order_quantity" validate:"gte=0"`
}

// ChangeCostMethodRequest switches a product's costing method
type ChangeCostMethodRequest struct {
	ProductID  uuid.UUID `json:"product_id" validate:"required"`
	CostMethod string    `json:"cost_method" validate:"required,oneof=fifo lifo weighted_average"`
}

// MovementResponse represents a ledger entry in responses
type MovementResponse struct {
	ID            uuid.UUID       `json:"id"`
	VariantID     uuid.UUID       `json:"variant_id"`
	Sequence      int64           `json:"sequence"`
	Kind          string          `json:"kind"`
	Quantity      decimal.Decimal `json:"quantity"`
	PreviousStock decimal.Decimal `json:"previous_stock"`
	NewStock      decimal.Decimal `json:"new_stock"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	OrderRef      string          `json:"order_ref,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	BatchID       *uuid.UUID      `json:"batch_id,omitempty"`
	ReversalOf    *uuid.UUID      `json:"reversal_of,omitempty"`
	Actor         string          `json:"actor,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// ToMovementResponse converts a domain movement
func ToMovementResponse(m *inventory.Movement) MovementResponse {
	return MovementResponse{
		ID:            m.ID,
		VariantID:     m.VariantID,
		Sequence:      m.Sequence,
		Kind:          m.Kind.String(),
		Quantity:      m.Quantity,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		UnitCost:      m.UnitCost,
		OrderRef:      m.OrderRef,
		Reason:        m.Reason,
		BatchID:       m.BatchID,
		ReversalOf:    m.ReversalOf,
		Actor:         m.Actor,
		OccurredAt:    m.OccurredAt,
	}
}

// ToMovementResponses converts a list of movements
func ToMovementResponses(movements []*inventory.Movement) []MovementResponse {
	out := make([]MovementResponse, len(movements))
	for i, m := range movements {
		out[i] = ToMovementResponse(m)
	}
	return out
}

// SaleResult is the outcome of RecordSale. Movement is nil when nothing
// could be consumed and the whole quantity went to backorder.
type SaleResult struct {
	Movement   *inventory.Movement `json:"movement,omitempty"`
	Consumed   decimal.Decimal     `json:"consumed"`
	Unconsumed decimal.Decimal     `json:"unconsumed"`
}

// HasShortfall reports whether part of the sale could not be served from stock
func (r SaleResult) HasShortfall() bool {
	return r.Unconsumed.IsPositive()
}

// CancelResult lists the compensating movements written for an order and
// the backordered quantity the cancellation released
type CancelResult struct {
	OrderRef          string                `json:"order_ref"`
	Compensating      []*inventory.Movement `json:"compensating"`
	BackorderReleased decimal.Decimal       `json:"backorder_released"`
}

// ReorderMetricsResponse is the reorder calculation for one variant with its inputs
type ReorderMetricsResponse struct {
	VariantID    uuid.UUID                `json:"variant_id"`
	SKU          string                   `json:"sku"`
	RateSource   inventory.RateSource     `json:"rate_source"`
	LeadTimeDays int                      `json:"lead_time_days"`
	BufferDays   int                      `json:"buffer_days"`
	Metrics      inventory.ReorderMetrics `json:"metrics"`
}
