package models

import (
	"sort"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product aggregate root.
type ProductModel struct {
	AggregateModel
	Name                 string `gorm:"type:varchar(200);not null"`
	CostMethod           string `gorm:"type:varchar(32);not null;default:'fifo'"`
	BufferDays           int    `gorm:"not null;default:0"`
	DefaultLeadTimeDays  int    `gorm:"not null;default:0"`
	MinimumOrderQuantity int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
// An unknown stored method is kept as-is; the domain falls back to FIFO when reading it.
func (m *ProductModel) ToDomain() *inventory.Product {
	return &inventory.Product{
		BaseAggregateRoot:    m.ToDomainAggregateRoot(),
		Name:                 m.Name,
		CostMethod:           strategy.CostMethod(m.CostMethod),
		BufferDays:           m.BufferDays,
		DefaultLeadTimeDays:  m.DefaultLeadTimeDays,
		MinimumOrderQuantity: m.MinimumOrderQuantity,
	}
}

// FromDomain populates the persistence model from a domain Product.
func (m *ProductModel) FromDomain(p *inventory.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Name = p.Name
	m.CostMethod = p.CostMethod.String()
	m.BufferDays = p.BufferDays
	m.DefaultLeadTimeDays = p.DefaultLeadTimeDays
	m.MinimumOrderQuantity = p.MinimumOrderQuantity
}

// ProductModelFromDomain creates a new persistence model from a domain Product.
func ProductModelFromDomain(p *inventory.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// VariantModel is the persistence model for the Variant aggregate root.
// Stock on hand is not a column; it is the sum of the batch quantities.
type VariantModel struct {
	AggregateModel
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU               string          `gorm:"column:sku;type:varchar(64);not null;uniqueIndex"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReferenceCost     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReorderPoint      int64           `gorm:"not null;default:0"`
	ReorderQuantity   int64           `gorm:"not null;default:0"`
	LeadTimeDays      int             `gorm:"not null;default:0"`
	AllowBackorder    bool            `gorm:"not null;default:false"`
	CommittedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	IncomingQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status            string          `gorm:"type:varchar(20);not null;default:'active'"`
	// Associations
	Batches    []BatchModel     `gorm:"foreignKey:VariantID;references:ID"`
	Backorders []BackorderModel `gorm:"foreignKey:VariantID;references:ID"`
}

// TableName returns the table name for GORM
func (VariantModel) TableName() string {
	return "variants"
}

// ToDomain converts the persistence model to a domain Variant, batches included.
func (m *VariantModel) ToDomain() *inventory.Variant {
	v := &inventory.Variant{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ProductID:         m.ProductID,
		SKU:               m.SKU,
		UnitPrice:         m.UnitPrice,
		ReferenceCost:     m.ReferenceCost,
		ReorderPoint:      m.ReorderPoint,
		ReorderQuantity:   m.ReorderQuantity,
		LeadTimeDays:      m.LeadTimeDays,
		AllowBackorder:    m.AllowBackorder,
		CommittedQuantity: m.CommittedQuantity,
		IncomingQuantity:  m.IncomingQuantity,
		Status:            inventory.VariantStatus(m.Status),
	}

	batches := make([]*inventory.Batch, len(m.Batches))
	for i := range m.Batches {
		batches[i] = m.Batches[i].ToDomain()
	}
	sort.SliceStable(batches, func(i, j int) bool { return batches[i].Sequence < batches[j].Sequence })
	v.LoadBatches(batches)

	backorders := make([]*inventory.Backorder, len(m.Backorders))
	for i := range m.Backorders {
		backorders[i] = m.Backorders[i].ToDomain()
	}
	sort.SliceStable(backorders, func(i, j int) bool { return backorders[i].RecordedAt.Before(backorders[j].RecordedAt) })
	v.LoadBackorders(backorders)
	return v
}

// FromDomain populates the variant row only; batches and backorders are written separately.
func (m *VariantModel) FromDomain(v *inventory.Variant) {
	m.FromDomainAggregateRoot(v.BaseAggregateRoot)
	m.ProductID = v.ProductID
	m.SKU = v.SKU
	m.UnitPrice = v.UnitPrice
	m.ReferenceCost = v.ReferenceCost
	m.ReorderPoint = v.ReorderPoint
	m.ReorderQuantity = v.ReorderQuantity
	m.LeadTimeDays = v.LeadTimeDays
	m.AllowBackorder = v.AllowBackorder
	m.CommittedQuantity = v.CommittedQuantity
	m.IncomingQuantity = v.IncomingQuantity
	m.Status = string(v.Status)
}

// VariantModelFromDomain creates a new persistence model from a domain Variant.
func VariantModelFromDomain(v *inventory.Variant) *VariantModel {
	m := &VariantModel{}
	m.FromDomain(v)
	return m
}

// BackorderModel is one order's unserved sale quantity on a variant.
// Cancelling the order stamps CancelledAt; rows are never deleted.
type BackorderModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	VariantID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderRef    string          `gorm:"type:varchar(64);not null;index"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RecordedAt  time.Time       `gorm:"not null"`
	CancelledAt *time.Time
}

// TableName returns the table name for GORM
func (BackorderModel) TableName() string {
	return "backorders"
}

// ToDomain converts the persistence model to a domain Backorder.
func (m *BackorderModel) ToDomain() *inventory.Backorder {
	return &inventory.Backorder{
		ID:          m.ID,
		VariantID:   m.VariantID,
		OrderRef:    m.OrderRef,
		Quantity:    m.Quantity,
		RecordedAt:  m.RecordedAt,
		CancelledAt: m.CancelledAt,
	}
}

// BackorderModelFromDomain creates a new persistence model from a domain Backorder.
func BackorderModelFromDomain(b *inventory.Backorder) BackorderModel {
	return BackorderModel{
		ID:          b.ID,
		VariantID:   b.VariantID,
		OrderRef:    b.OrderRef,
		Quantity:    b.Quantity,
		RecordedAt:  b.RecordedAt,
		CancelledAt: b.CancelledAt,
	}
}

// BatchModel is the persistence model for a receipt lot. Drained batches stay
// as zero-quantity rows.
type BatchModel struct {
	BaseModel
	VariantID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_batch_variant_seq,priority:1"`
	Sequence         int64           `gorm:"not null;uniqueIndex:idx_batch_variant_seq,priority:2"`
	ReferenceCode    string          `gorm:"type:varchar(64)"`
	Supplier         string          `gorm:"type:varchar(128)"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	InitialQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityConsumed decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReceivedAt       time.Time       `gorm:"not null"`
	ExpiresAt        *time.Time
	PurchaseOrderRef string `gorm:"type:varchar(64);index"`
	// Associations
	Consumptions []BatchConsumptionModel `gorm:"foreignKey:BatchID;references:ID"`
}

// TableName returns the table name for GORM
func (BatchModel) TableName() string {
	return "batches"
}

// ToDomain converts the persistence model to a domain Batch with its history.
func (m *BatchModel) ToDomain() *inventory.Batch {
	entries := make([]BatchConsumptionModel, len(m.Consumptions))
	copy(entries, m.Consumptions)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Ordinal < entries[j].Ordinal })

	history := make([]inventory.ConsumptionEntry, len(entries))
	for i := range entries {
		history[i] = entries[i].ToDomain()
	}
	return &inventory.Batch{
		BaseEntity:       m.BaseModel.ToDomain(),
		VariantID:        m.VariantID,
		Sequence:         m.Sequence,
		ReferenceCode:    m.ReferenceCode,
		Supplier:         m.Supplier,
		UnitCost:         m.UnitCost,
		InitialQuantity:  m.InitialQuantity,
		Quantity:         m.Quantity,
		QuantityConsumed: m.QuantityConsumed,
		History:          history,
		ReceivedAt:       m.ReceivedAt,
		ExpiresAt:        m.ExpiresAt,
		PurchaseOrderRef: m.PurchaseOrderRef,
	}
}

// FromDomain populates the batch row and its consumption rows.
func (m *BatchModel) FromDomain(b *inventory.Batch) {
	m.FromDomainBaseEntity(b.BaseEntity)
	m.VariantID = b.VariantID
	m.Sequence = b.Sequence
	m.ReferenceCode = b.ReferenceCode
	m.Supplier = b.Supplier
	m.UnitCost = b.UnitCost
	m.InitialQuantity = b.InitialQuantity
	m.Quantity = b.Quantity
	m.QuantityConsumed = b.QuantityConsumed
	m.ReceivedAt = b.ReceivedAt
	m.ExpiresAt = b.ExpiresAt
	m.PurchaseOrderRef = b.PurchaseOrderRef
	m.Consumptions = make([]BatchConsumptionModel, len(b.History))
	for i, e := range b.History {
		m.Consumptions[i] = BatchConsumptionModelFromDomain(e, i)
	}
}

// BatchModelFromDomain creates a new persistence model from a domain Batch.
func BatchModelFromDomain(b *inventory.Batch) *BatchModel {
	m := &BatchModel{}
	m.FromDomain(b)
	return m
}

// BatchConsumptionModel is one draw or reversal against a batch. Rows are
// insert-only; Ordinal keeps the history in the order it was written.
type BatchConsumptionModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	BatchID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Ordinal        int             `gorm:"not null"`
	TransactionRef string          `gorm:"type:varchar(64);not null;index"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ConsumedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BatchConsumptionModel) TableName() string {
	return "batch_consumptions"
}

// ToDomain converts the persistence model to a domain ConsumptionEntry.
func (m *BatchConsumptionModel) ToDomain() inventory.ConsumptionEntry {
	return inventory.ConsumptionEntry{
		ID:             m.ID,
		BatchID:        m.BatchID,
		TransactionRef: m.TransactionRef,
		Quantity:       m.Quantity,
		ConsumedAt:     m.ConsumedAt,
	}
}

// BatchConsumptionModelFromDomain creates a persistence model for the entry at position ordinal.
func BatchConsumptionModelFromDomain(e inventory.ConsumptionEntry, ordinal int) BatchConsumptionModel {
	return BatchConsumptionModel{
		ID:             e.ID,
		BatchID:        e.BatchID,
		Ordinal:        ordinal,
		TransactionRef: e.TransactionRef,
		Quantity:       e.Quantity,
		ConsumedAt:     e.ConsumedAt,
	}
}

// MovementModel is the persistence model for an immutable ledger entry.
// (variant_id, sequence) is unique so two writers cannot extend the chain
// from the same predecessor.
type MovementModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	VariantID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_movement_variant_seq,priority:1"`
	Sequence      int64           `gorm:"not null;uniqueIndex:idx_movement_variant_seq,priority:2"`
	Kind          string          `gorm:"type:varchar(20);not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PreviousStock decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NewStock      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OrderRef      string          `gorm:"type:varchar(64);index"`
	Reason        string          `gorm:"type:varchar(255)"`
	BatchID       *uuid.UUID      `gorm:"type:uuid"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Actor         string          `gorm:"type:varchar(64)"`
	ReversalOf    *uuid.UUID      `gorm:"type:uuid;index"`
	OccurredAt    time.Time       `gorm:"not null"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MovementModel) TableName() string {
	return "movements"
}

// ToDomain converts the persistence model to a domain Movement.
func (m *MovementModel) ToDomain() *inventory.Movement {
	return &inventory.Movement{
		ID:            m.ID,
		VariantID:     m.VariantID,
		Sequence:      m.Sequence,
		Kind:          inventory.MovementKind(m.Kind),
		Quantity:      m.Quantity,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		OrderRef:      m.OrderRef,
		Reason:        m.Reason,
		BatchID:       m.BatchID,
		UnitCost:      m.UnitCost,
		Actor:         m.Actor,
		ReversalOf:    m.ReversalOf,
		OccurredAt:    m.OccurredAt,
		CreatedAt:     m.CreatedAt,
	}
}

// MovementModelFromDomain creates a new persistence model from a domain Movement.
func MovementModelFromDomain(mv *inventory.Movement) *MovementModel {
	createdAt := mv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &MovementModel{
		ID:            mv.ID,
		VariantID:     mv.VariantID,
		Sequence:      mv.Sequence,
		Kind:          mv.Kind.String(),
		Quantity:      mv.Quantity,
		PreviousStock: mv.PreviousStock,
		NewStock:      mv.NewStock,
		OrderRef:      mv.OrderRef,
		Reason:        mv.Reason,
		BatchID:       mv.BatchID,
		UnitCost:      mv.UnitCost,
		Actor:         mv.Actor,
		ReversalOf:    mv.ReversalOf,
		OccurredAt:    mv.OccurredAt,
		CreatedAt:     createdAt,
	}
}
