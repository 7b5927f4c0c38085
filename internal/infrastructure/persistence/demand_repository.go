package persistence

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDemandRepository stores the demand history read by reorder analysis
type GormDemandRepository struct {
	db *gorm.DB
}

// NewGormDemandRepository creates a new GormDemandRepository
func NewGormDemandRepository(db *gorm.DB) *GormDemandRepository {
	return &GormDemandRepository{db: db}
}

// FindByVariant returns demand after since, oldest first, cancelled rows included
func (r *GormDemandRepository) FindByVariant(ctx context.Context, variantID uuid.UUID, since time.Time) ([]inventory.DemandTransaction, error) {
	var rows []models.DemandTransactionModel
	if err := r.db.WithContext(ctx).
		Where("variant_id = ? AND occurred_at > ?", variantID, since).
		Order("occurred_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	txns := make([]inventory.DemandTransaction, len(rows))
	for i := range rows {
		txns[i] = rows[i].ToDomain()
	}
	return txns, nil
}

// Record inserts a demand row. Replays of a known ID are ignored.
func (r *GormDemandRepository) Record(ctx context.Context, tx inventory.DemandTransaction) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.DemandTransactionModelFromDomain(tx)).Error
}

// MarkOrderCancelled flags all demand of an order as cancelled
func (r *GormDemandRepository) MarkOrderCancelled(ctx context.Context, orderRef string) error {
	return r.db.WithContext(ctx).
		Model(&models.DemandTransactionModel{}).
		Where("order_ref = ? AND cancelled = ?", orderRef, false).
		Update("cancelled", true).Error
}

// Ensure GormDemandRepository implements DemandLog
var _ inventory.DemandLog = (*GormDemandRepository)(nil)
