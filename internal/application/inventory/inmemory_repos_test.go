package inventory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// memStore backs the in-memory repositories used by the service tests.
// Everything is cloned on the way in and out, like a database round trip.
type memStore struct {
	mu        sync.Mutex
	products  map[uuid.UUID]*inventory.Product
	variants  map[uuid.UUID]*inventory.Variant
	movements []*inventory.Movement
	demand    []inventory.DemandTransaction
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[uuid.UUID]*inventory.Product),
		variants: make(map[uuid.UUID]*inventory.Variant),
	}
}

func (s *memStore) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(&memVariantRepo{s}, &memProductRepo{s}, &memMovementRepo{s})
}

func cloneVariant(v *inventory.Variant) *inventory.Variant {
	c := *v
	c.ClearDomainEvents()
	batches := v.Batches()
	cloned := make([]*inventory.Batch, len(batches))
	for i, b := range batches {
		bc := *b
		bc.History = slices.Clone(b.History)
		cloned[i] = &bc
	}
	c.LoadBatches(cloned)
	c.LoadBackorders(cloneBackorders(v.Backorders()))
	return &c
}

func cloneBackorders(backorders []*inventory.Backorder) []*inventory.Backorder {
	out := make([]*inventory.Backorder, len(backorders))
	for i, b := range backorders {
		bc := *b
		if b.CancelledAt != nil {
			at := *b.CancelledAt
			bc.CancelledAt = &at
		}
		out[i] = &bc
	}
	return out
}

func cloneProduct(p *inventory.Product) *inventory.Product {
	c := *p
	c.ClearDomainEvents()
	return &c
}

func cloneMovement(m *inventory.Movement) *inventory.Movement {
	c := *m
	return &c
}

type memVariantRepo struct{ s *memStore }

func (r *memVariantRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Variant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.variants[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneVariant(v), nil
}

func (r *memVariantRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Variant, error) {
	return r.FindByID(ctx, id)
}

func (r *memVariantRepo) FindByProduct(_ context.Context, productID uuid.UUID) ([]*inventory.Variant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*inventory.Variant
	for _, v := range r.s.variants {
		if v.ProductID == productID {
			out = append(out, cloneVariant(v))
		}
	}
	slices.SortFunc(out, func(a, b *inventory.Variant) int {
		if a.SKU < b.SKU {
			return -1
		}
		if a.SKU > b.SKU {
			return 1
		}
		return 0
	})
	return out, nil
}

func (r *memVariantRepo) Create(_ context.Context, v *inventory.Variant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.variants[v.ID]; ok {
		return shared.ErrAlreadyExists
	}
	r.s.variants[v.ID] = cloneVariant(v)
	return nil
}

func (r *memVariantRepo) SaveWithLock(_ context.Context, v *inventory.Variant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.variants[v.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != v.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.s.variants[v.ID] = cloneVariant(v)
	return nil
}

func (r *memVariantRepo) FindBackordersByOrderRef(_ context.Context, orderRef string) ([]*inventory.Backorder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*inventory.Backorder
	for _, v := range r.s.variants {
		for _, b := range v.Backorders() {
			if b.OrderRef == orderRef {
				out = append(out, b)
			}
		}
	}
	return cloneBackorders(out), nil
}

func (r *memVariantRepo) AnyConsumptionForProduct(_ context.Context, productID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.variants {
		if v.ProductID == productID && v.HasConsumptionHistory() {
			return true, nil
		}
	}
	return false, nil
}

type memProductRepo struct{ s *memStore }

func (r *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r *memProductRepo) FindAll(_ context.Context) ([]*inventory.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*inventory.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, cloneProduct(p))
	}
	slices.SortFunc(out, func(a, b *inventory.Product) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return out, nil
}

func (r *memProductRepo) Create(_ context.Context, p *inventory.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[p.ID] = cloneProduct(p)
	return nil
}

func (r *memProductRepo) SaveWithLock(_ context.Context, p *inventory.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.products[p.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != p.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.s.products[p.ID] = cloneProduct(p)
	return nil
}

type memMovementRepo struct{ s *memStore }

func (r *memMovementRepo) Append(_ context.Context, m *inventory.Movement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.movements {
		if existing.VariantID == m.VariantID && existing.Sequence == m.Sequence {
			return shared.ErrAlreadyExists
		}
	}
	r.s.movements = append(r.s.movements, cloneMovement(m))
	return nil
}

func (r *memMovementRepo) variantMovements(variantID uuid.UUID) []*inventory.Movement {
	var out []*inventory.Movement
	for _, m := range r.s.movements {
		if m.VariantID == variantID {
			out = append(out, cloneMovement(m))
		}
	}
	slices.SortFunc(out, func(a, b *inventory.Movement) int { return int(a.Sequence - b.Sequence) })
	return out
}

func (r *memMovementRepo) FindLatestByVariant(_ context.Context, variantID uuid.UUID) (*inventory.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.variantMovements(variantID)
	if len(all) == 0 {
		return nil, nil
	}
	return all[len(all)-1], nil
}

func (r *memMovementRepo) FindByVariant(_ context.Context, variantID uuid.UUID, filter shared.Filter) ([]*inventory.Movement, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.variantMovements(variantID)
	if filter.OrderDir == "desc" {
		slices.Reverse(all)
	}
	total := int64(len(all))
	start := min(filter.Offset(), len(all))
	end := min(start+filter.PageSize, len(all))
	return all[start:end], total, nil
}

func (r *memMovementRepo) FindAllByVariant(_ context.Context, variantID uuid.UUID) ([]*inventory.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.variantMovements(variantID), nil
}

func (r *memMovementRepo) FindByOrderRef(_ context.Context, orderRef string) ([]*inventory.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*inventory.Movement
	for _, m := range r.s.movements {
		if m.OrderRef == orderRef {
			out = append(out, cloneMovement(m))
		}
	}
	return out, nil
}

func (r *memMovementRepo) ListVariantIDs(_ context.Context) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []uuid.UUID
	for _, m := range r.s.movements {
		if !slices.Contains(ids, m.VariantID) {
			ids = append(ids, m.VariantID)
		}
	}
	return ids, nil
}

// corrupt replaces a stored movement, for audit tests
func (r *memMovementRepo) corrupt(id uuid.UUID, fn func(m *inventory.Movement)) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.movements {
		if m.ID == id {
			fn(m)
		}
	}
}

type memDemand struct{ s *memStore }

func (d *memDemand) FindByVariant(_ context.Context, variantID uuid.UUID, since time.Time) ([]inventory.DemandTransaction, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var out []inventory.DemandTransaction
	for _, tx := range d.s.demand {
		if tx.VariantID == variantID && tx.OccurredAt.After(since) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (d *memDemand) Record(_ context.Context, tx inventory.DemandTransaction) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for _, existing := range d.s.demand {
		if existing.ID == tx.ID {
			return nil
		}
	}
	d.s.demand = append(d.s.demand, tx)
	return nil
}

func (d *memDemand) MarkOrderCancelled(_ context.Context, orderRef string) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for i := range d.s.demand {
		if d.s.demand[i].OrderRef == orderRef {
			d.s.demand[i].Cancelled = true
		}
	}
	return nil
}

var (
	_ inventory.VariantRepository  = (*memVariantRepo)(nil)
	_ inventory.ProductRepository  = (*memProductRepo)(nil)
	_ inventory.MovementRepository = (*memMovementRepo)(nil)
	_ inventory.DemandLog          = (*memDemand)(nil)
)
