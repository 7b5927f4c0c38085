package inventory

import "github.com/erp/stockledger/internal/domain/shared"

// Ledger domain errors. Compare with errors.Is; messages may be specialized with Withf.
var (
	ErrInvalidQuantity       = shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	ErrInvalidUnitCost       = shared.NewDomainError("INVALID_UNIT_COST", "Unit cost cannot be negative")
	ErrInvalidMovementKind   = shared.NewDomainError("INVALID_MOVEMENT_KIND", "Unknown movement kind")
	ErrInvalidMovementSign   = shared.NewDomainError("INVALID_MOVEMENT_SIGN", "Quantity sign does not match movement kind")
	ErrInsufficientStock     = shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrLedgerChainBroken     = shared.NewDomainError("LEDGER_CHAIN_BROKEN", "Movement does not continue the variant ledger")
	ErrStockMismatch         = shared.NewDomainError("STOCK_MISMATCH", "Ledger balance does not match batch quantities")
	ErrBatchNotFound         = shared.NewDomainError("BATCH_NOT_FOUND", "Batch not found on variant")
	ErrRestoreExceedsDrawn   = shared.NewDomainError("RESTORE_EXCEEDS_DRAWN", "Cannot restore more than was consumed from the batch")
	ErrReceiptConsumed       = shared.NewDomainError("RECEIPT_CONSUMED", "Receipt batch has already been drawn from")
	ErrOrderAlreadyCancelled = shared.NewDomainError("ORDER_ALREADY_CANCELLED", "Order has no ledger effects left to reverse")
	ErrCostMethodLocked      = shared.NewDomainError("COST_METHOD_LOCKED", "Costing method cannot change once batches have been consumed")
	ErrInvalidCostMethod     = shared.NewDomainError("INVALID_COST_METHOD", "Unsupported costing method")
	ErrAllocationMismatch    = shared.NewDomainError("ALLOCATION_MISMATCH", "Allocated units do not add up to the target")
	ErrNoReplenishmentPool   = shared.NewDomainError("NO_REPLENISHMENT_POOL", "No variants available to absorb the order quantity")
	ErrVariantInactive       = shared.NewDomainError("VARIANT_INACTIVE", "Variant is not active")
)
