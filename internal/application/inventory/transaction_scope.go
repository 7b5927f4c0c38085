package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
)

// TransactionScope runs ledger writes atomically. Every repository handed to
// fn shares one database transaction that is committed when fn returns nil
// and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories bound to the running transaction.
//
// Batches and their consumption history are children of the variant and are
// written through VariantRepo; they have no repository of their own.
type TransactionalRepositories interface {
	VariantRepo() inventory.VariantRepository
	ProductRepo() inventory.ProductRepository
	MovementRepo() inventory.MovementRepository
}

// NoOpTransactionScope calls fn directly with plain repositories.
// Tests use it with in-memory repositories.
type NoOpTransactionScope struct {
	variantRepo  inventory.VariantRepository
	productRepo  inventory.ProductRepository
	movementRepo inventory.MovementRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(
	variantRepo inventory.VariantRepository,
	productRepo inventory.ProductRepository,
	movementRepo inventory.MovementRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		variantRepo:  variantRepo,
		productRepo:  productRepo,
		movementRepo: movementRepo,
	}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) VariantRepo() inventory.VariantRepository {
	return s.variantRepo
}

func (s *NoOpTransactionScope) ProductRepo() inventory.ProductRepository {
	return s.productRepo
}

func (s *NoOpTransactionScope) MovementRepo() inventory.MovementRepository {
	return s.movementRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
