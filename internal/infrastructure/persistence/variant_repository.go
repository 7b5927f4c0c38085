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
	"gorm.io/gorm/clause"
)

// GormVariantRepository implements VariantRepository using GORM.
// A variant is stored as its own row plus its batch, consumption and
// backorder rows.
type GormVariantRepository struct {
	db *gorm.DB
}

// NewGormVariantRepository creates a new GormVariantRepository
func NewGormVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

// forVariant tags queries about one variant so the SQL log carries its id
func forVariant(ctx context.Context, id uuid.UUID) context.Context {
	return logger.WithVariant(ctx, id.String())
}

func withBatches(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Batches", func(tx *gorm.DB) *gorm.DB { return tx.Order("sequence ASC") }).
		Preload("Batches.Consumptions", func(tx *gorm.DB) *gorm.DB { return tx.Order("ordinal ASC") }).
		Preload("Backorders", func(tx *gorm.DB) *gorm.DB { return tx.Order("recorded_at ASC") })
}

// FindByID finds a variant by its ID
func (r *GormVariantRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Variant, error) {
	var model models.VariantModel
	if err := withBatches(r.db.WithContext(forVariant(ctx, id))).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate locks the variant row with SELECT ... FOR UPDATE, then
// loads it. The lock is held until the surrounding transaction ends.
func (r *GormVariantRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Variant, error) {
	if !isSQLite(r.db) {
		var locked models.VariantModel
		err := r.db.WithContext(forVariant(ctx, id)).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&locked, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, shared.ErrNotFound
			}
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

// FindByProduct finds all variants of a product ordered by SKU
func (r *GormVariantRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]*inventory.Variant, error) {
	var rows []models.VariantModel
	if err := withBatches(r.db.WithContext(ctx)).
		Where("product_id = ?", productID).
		Order("sku ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	variants := make([]*inventory.Variant, len(rows))
	for i := range rows {
		variants[i] = rows[i].ToDomain()
	}
	return variants, nil
}

// Create inserts a new variant and any batches it already carries
func (r *GormVariantRepository) Create(ctx context.Context, v *inventory.Variant) error {
	ctx = forVariant(ctx, v.ID)
	model := models.VariantModelFromDomain(v)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists.Withf("variant with SKU %q already exists", v.SKU)
		}
		return err
	}
	if err := r.saveBatches(ctx, v); err != nil {
		return err
	}
	return r.saveBackorders(ctx, v)
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormVariantRepository) SaveWithLock(ctx context.Context, v *inventory.Variant) error {
	ctx = forVariant(ctx, v.ID)
	result := r.db.WithContext(ctx).
		Model(&models.VariantModel{}).
		Where("id = ? AND version = ?", v.ID, v.Version-1).
		Updates(map[string]any{
			"unit_price":         v.UnitPrice,
			"reference_cost":     v.ReferenceCost,
			"reorder_point":      v.ReorderPoint,
			"reorder_quantity":   v.ReorderQuantity,
			"lead_time_days":     v.LeadTimeDays,
			"allow_backorder":    v.AllowBackorder,
			"committed_quantity": v.CommittedQuantity,
			"incoming_quantity":  v.IncomingQuantity,
			"status":             string(v.Status),
			"version":            v.Version,
			"updated_at":         v.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.Withf("variant %s was modified by another transaction", v.ID)
	}
	if err := r.saveBatches(ctx, v); err != nil {
		return err
	}
	return r.saveBackorders(ctx, v)
}

// saveBatches upserts every batch and inserts consumption entries not yet stored.
// Consumption rows are never updated.
func (r *GormVariantRepository) saveBatches(ctx context.Context, v *inventory.Variant) error {
	batches := v.Batches()
	if len(batches) == 0 {
		return nil
	}

	rows := make([]*models.BatchModel, len(batches))
	var entries []models.BatchConsumptionModel
	for i, b := range batches {
		rows[i] = models.BatchModelFromDomain(b)
		entries = append(entries, rows[i].Consumptions...)
	}

	if err := r.db.WithContext(ctx).
		Omit("Consumptions").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "quantity_consumed", "updated_at"}),
		}).
		Create(&rows).Error; err != nil {
		return err
	}

	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(entries, 200).Error
}

// saveBackorders upserts every backorder. Only the cancellation stamp ever
// changes after insert.
func (r *GormVariantRepository) saveBackorders(ctx context.Context, v *inventory.Variant) error {
	backorders := v.Backorders()
	if len(backorders) == 0 {
		return nil
	}
	rows := make([]models.BackorderModel, len(backorders))
	for i, b := range backorders {
		rows[i] = models.BackorderModelFromDomain(b)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"cancelled_at"}),
		}).
		Create(&rows).Error
}

// FindBackordersByOrderRef returns every backorder of an order across
// variants, cancelled ones included
func (r *GormVariantRepository) FindBackordersByOrderRef(ctx context.Context, orderRef string) ([]*inventory.Backorder, error) {
	var rows []models.BackorderModel
	if err := r.db.WithContext(logger.WithOrderRef(ctx, orderRef)).
		Where("order_ref = ?", orderRef).
		Order("recorded_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	backorders := make([]*inventory.Backorder, len(rows))
	for i := range rows {
		backorders[i] = rows[i].ToDomain()
	}
	return backorders, nil
}

// AnyConsumptionForProduct reports whether any batch of the product was drawn from
func (r *GormVariantRepository) AnyConsumptionForProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BatchConsumptionModel{}).
		Joins("JOIN batches ON batches.id = batch_consumptions.batch_id").
		Joins("JOIN variants ON variants.id = batches.variant_id").
		Where("variants.product_id = ?", productID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormVariantRepository implements VariantRepository
var _ inventory.VariantRepository = (*GormVariantRepository)(nil)
