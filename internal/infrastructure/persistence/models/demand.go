package models

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DemandTransactionModel is one row of the demand history
type DemandTransactionModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	VariantID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_demand_variant_time,priority:1"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OccurredAt time.Time       `gorm:"not null;index:idx_demand_variant_time,priority:2"`
	OrderRef   string          `gorm:"type:varchar(64);index"`
	Cancelled  bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (DemandTransactionModel) TableName() string {
	return "demand_transactions"
}

// ToDomain converts the persistence model to a domain DemandTransaction
func (m *DemandTransactionModel) ToDomain() inventory.DemandTransaction {
	return inventory.DemandTransaction{
		ID:         m.ID,
		VariantID:  m.VariantID,
		Quantity:   m.Quantity,
		OccurredAt: m.OccurredAt,
		OrderRef:   m.OrderRef,
		Cancelled:  m.Cancelled,
	}
}

// DemandTransactionModelFromDomain creates a new persistence model from a domain DemandTransaction
func DemandTransactionModelFromDomain(tx inventory.DemandTransaction) *DemandTransactionModel {
	id := tx.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &DemandTransactionModel{
		ID:         id,
		VariantID:  tx.VariantID,
		Quantity:   tx.Quantity,
		OccurredAt: tx.OccurredAt,
		OrderRef:   tx.OrderRef,
		Cancelled:  tx.Cancelled,
	}
}
