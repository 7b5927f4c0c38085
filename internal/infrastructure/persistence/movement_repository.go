package persistence

import (
	"context"
	"errors"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMovementRepository implements MovementRepository using GORM.
// Rows are only ever inserted.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Append inserts a movement. A second writer extending the chain from the
// same predecessor hits the (variant_id, sequence) index and gets a
// concurrency conflict.
func (r *GormMovementRepository) Append(ctx context.Context, m *inventory.Movement) error {
	ctx = forVariant(ctx, m.VariantID)
	if m.OrderRef != "" {
		ctx = logger.WithOrderRef(ctx, m.OrderRef)
	}
	if err := r.db.WithContext(ctx).Create(models.MovementModelFromDomain(m)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrConcurrencyConflict.Withf("movement %d of variant %s already exists", m.Sequence, m.VariantID)
		}
		return err
	}
	return nil
}

// FindLatestByVariant returns the movement with the highest sequence, or nil
func (r *GormMovementRepository) FindLatestByVariant(ctx context.Context, variantID uuid.UUID) (*inventory.Movement, error) {
	var model models.MovementModel
	err := r.db.WithContext(forVariant(ctx, variantID)).
		Where("variant_id = ?", variantID).
		Order("sequence DESC").
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByVariant returns one page of the variant's movements
func (r *GormMovementRepository) FindByVariant(ctx context.Context, variantID uuid.UUID, filter shared.Filter) ([]*inventory.Movement, int64, error) {
	query := r.db.WithContext(forVariant(ctx, variantID)).Model(&models.MovementModel{}).Where("variant_id = ?", variantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.MovementModel
	if err := query.Order("sequence " + ValidateSortOrder(filter.OrderDir, "ASC")).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toMovements(rows), total, nil
}

// FindAllByVariant returns the whole chain in sequence order
func (r *GormMovementRepository) FindAllByVariant(ctx context.Context, variantID uuid.UUID) ([]*inventory.Movement, error) {
	var rows []models.MovementModel
	if err := r.db.WithContext(forVariant(ctx, variantID)).
		Where("variant_id = ?", variantID).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMovements(rows), nil
}

// FindByOrderRef returns every movement of an order
func (r *GormMovementRepository) FindByOrderRef(ctx context.Context, orderRef string) ([]*inventory.Movement, error) {
	var rows []models.MovementModel
	if err := r.db.WithContext(logger.WithOrderRef(ctx, orderRef)).
		Where("order_ref = ?", orderRef).
		Order("variant_id ASC, sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMovements(rows), nil
}

// ListVariantIDs returns the variants that have a ledger
func (r *GormMovementRepository) ListVariantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.MovementModel{}).
		Distinct("variant_id").
		Order("variant_id ASC").
		Pluck("variant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func toMovements(rows []models.MovementModel) []*inventory.Movement {
	movements := make([]*inventory.Movement, len(rows))
	for i := range rows {
		movements[i] = rows[i].ToDomain()
	}
	return movements
}

// Ensure GormMovementRepository implements MovementRepository
var _ inventory.MovementRepository = (*GormMovementRepository)(nil)
