package inventory

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// VariantRepository persists variants together with their batch arena
type VariantRepository interface {
	// FindByID loads a variant and its batches
	FindByID(ctx context.Context, id uuid.UUID) (*Variant, error)

	// FindByIDForUpdate loads a variant while holding its row lock until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Variant, error)

	// FindByProduct loads every variant of a product, batches included
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]*Variant, error)

	// Create inserts a new variant
	Create(ctx context.Context, v *Variant) error

	// SaveWithLock writes the variant, its batches and its backorders. The caller has already
	// bumped the version; the write only applies when the stored row is one
	// version behind, otherwise shared.ErrConcurrencyConflict is returned.
	SaveWithLock(ctx context.Context, v *Variant) error

	// AnyConsumptionForProduct reports whether any batch of the product was drawn from
	AnyConsumptionForProduct(ctx context.Context, productID uuid.UUID) (bool, error)

	// FindBackordersByOrderRef returns the order's backorders on every variant
	FindBackordersByOrderRef(ctx context.Context, orderRef string) ([]*Backorder, error)
}

// ProductRepository persists products. SaveWithLock follows the same
// version rule as VariantRepository.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindAll(ctx context.Context) ([]*Product, error)
	Create(ctx context.Context, p *Product) error
	SaveWithLock(ctx context.Context, p *Product) error
}

// MovementRepository is the append-only movement store
type MovementRepository interface {
	// Append inserts a movement; existing movements are never updated
	Append(ctx context.Context, m *Movement) error

	// FindLatestByVariant returns the newest movement, or nil when the variant has none
	FindLatestByVariant(ctx context.Context, variantID uuid.UUID) (*Movement, error)

	// FindByVariant returns one page of the chronological history
	FindByVariant(ctx context.Context, variantID uuid.UUID, filter shared.Filter) ([]*Movement, int64, error)

	// FindAllByVariant returns the full chronological history
	FindAllByVariant(ctx context.Context, variantID uuid.UUID) ([]*Movement, error)

	// FindByOrderRef returns every movement carrying the order reference
	FindByOrderRef(ctx context.Context, orderRef string) ([]*Movement, error)

	// ListVariantIDs returns every variant that has at least one movement
	ListVariantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// DemandSource supplies historical sales from the order history
type DemandSource interface {
	// FindByVariant returns demand for the variant that occurred after since.
	// Cancelled transactions may be included; callers filter them.
	FindByVariant(ctx context.Context, variantID uuid.UUID, since time.Time) ([]DemandTransaction, error)
}

// DemandLog is the writable side of the demand history
type DemandLog interface {
	DemandSource

	// Record stores a demand transaction; a transaction with a known ID is ignored
	Record(ctx context.Context, tx DemandTransaction) error

	// MarkOrderCancelled flags every transaction of the order as cancelled
	MarkOrderCancelled(ctx context.Context, orderRef string) error
}
