package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultMaxRetries is how often a write is retried after a version conflict
const DefaultMaxRetries = 3

// StockLedgerService is the single entry point for stock mutations.
// Every operation locks the variant, changes its batches, appends the
// matching movement and commits, all in one transaction.
type StockLedgerService struct {
	scope          TransactionScope
	movementRepo   inventory.MovementRepository
	eventPublisher shared.EventPublisher
	metrics        LedgerRecorder
	logger         *zap.Logger
	maxRetries     int
	now            func() time.Time
}

// NewStockLedgerService creates a new StockLedgerService
func NewStockLedgerService(
	scope TransactionScope,
	movementRepo inventory.MovementRepository,
	logger *zap.Logger,
) *StockLedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockLedgerService{
		scope:        scope,
		movementRepo: movementRepo,
		metrics:      noopRecorder{},
		logger:       logger,
		maxRetries:   DefaultMaxRetries,
		now:          time.Now,
	}
}

// SetEventPublisher sets the publisher that receives events after commit
func (s *StockLedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the ledger metrics recorder
func (s *StockLedgerService) SetMetrics(recorder LedgerRecorder) {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	s.metrics = recorder
}

// SetMaxRetries sets how many times a version conflict is retried
func (s *StockLedgerService) SetMaxRetries(n int) {
	s.maxRetries = max(n, 0)
}

// SetClock replaces the time source used when a request carries no timestamp
func (s *StockLedgerService) SetClock(now func() time.Time) {
	s.now = now
}

// ledgerWrite is the working state of one variant inside a transaction
type ledgerWrite struct {
	repos     TransactionalRepositories
	variant   *inventory.Variant
	product   *inventory.Product
	latest    *inventory.Movement
	movements []*inventory.Movement

	backorderReleased decimal.Decimal
}

// record chains a movement after the latest one and queues its event
func (w *ledgerWrite) record(kind inventory.MovementKind, qty decimal.Decimal, opts inventory.MovementOptions) (*inventory.Movement, error) {
	m, err := inventory.NextMovement(w.latest, w.variant, kind, qty, opts)
	if err != nil {
		return nil, err
	}
	w.latest = m
	w.movements = append(w.movements, m)
	w.variant.AddDomainEvent(inventory.NewStockMovementRecordedEvent(w.variant, m))
	return m, nil
}

// addBatch receives a new lot and records the movement that brought it in
func (w *ledgerWrite) addBatch(kind inventory.MovementKind, receipt inventory.BatchReceipt, opts inventory.MovementOptions) (*inventory.Movement, error) {
	b, err := w.variant.ReceiveBatch(receipt)
	if err != nil {
		return nil, err
	}
	opts.BatchID = &b.ID
	opts.UnitCost = b.UnitCost
	return w.record(kind, receipt.Quantity, opts)
}

// drain consumes qty, either in costing order or from one batch, and records
// the movement. It refuses to go below zero.
func (w *ledgerWrite) drain(kind inventory.MovementKind, qty decimal.Decimal, batchID *uuid.UUID, opts inventory.MovementOptions) (*inventory.Movement, error) {
	v := w.variant
	available := v.StockOnHand()
	if batchID != nil {
		b, ok := v.BatchByID(*batchID)
		if !ok {
			return nil, inventory.ErrBatchNotFound.Withf("batch %s not found on variant %s", *batchID, v.SKU)
		}
		available = b.Quantity
	}
	if qty.GreaterThan(available) {
		return nil, inventory.ErrInsufficientStock.Withf("variant %s: requested %s, available %s", v.SKU, qty, available)
	}

	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	var (
		res inventory.ConsumptionResult
		err error
	)
	if batchID != nil {
		res, err = v.ConsumeFromBatch(*batchID, qty, opts.ID.String(), opts.OccurredAt)
	} else {
		res, err = v.Consume(w.product.EffectiveCostMethod(), qty, opts.ID.String(), opts.OccurredAt)
	}
	if err != nil {
		return nil, err
	}
	opts.BatchID = res.SingleBatch()
	opts.UnitCost = res.UnitCost()
	return w.record(kind, res.Consumed.Neg(), opts)
}

func (w *ledgerWrite) costOrAverage(unitCost *decimal.Decimal) decimal.Decimal {
	if unitCost != nil {
		return *unitCost
	}
	return w.variant.AverageReceiptCost()
}

// mutate runs fn on each variant inside one transaction and retries the
// whole transaction on version conflicts. Variants are locked in ID order.
func (s *StockLedgerService) mutate(ctx context.Context, op string, variantIDs []uuid.UUID, allowInactive bool, fn func(w *ledgerWrite) error) ([]*ledgerWrite, error) {
	ids := slices.Clone(variantIDs)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	var writes []*ledgerWrite
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		writes = writes[:0]
		err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			for _, id := range ids {
				w, err := s.load(ctx, repos, id, allowInactive)
				if err != nil {
					return err
				}
				if err := fn(w); err != nil {
					return err
				}
				w.variant.IncrementVersion()
				if err := repos.VariantRepo().SaveWithLock(ctx, w.variant); err != nil {
					return err
				}
				for _, m := range w.movements {
					if err := repos.MovementRepo().Append(ctx, m); err != nil {
						return fmt.Errorf("append movement %s: %w", m.ID, err)
					}
				}
				writes = append(writes, w)
			}
			return nil
		})
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			break
		}
		s.metrics.RecordConflictRetry(ctx, op)
		s.logger.Warn("Version conflict, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
		)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	for _, w := range writes {
		for _, m := range w.movements {
			s.metrics.RecordMovement(ctx, m.Kind.String(), m.Quantity)
		}
		s.publishDomainEvents(ctx, w.variant)
	}
	return writes, nil
}

func (s *StockLedgerService) load(ctx context.Context, repos TransactionalRepositories, variantID uuid.UUID, allowInactive bool) (*ledgerWrite, error) {
	v, err := repos.VariantRepo().FindByIDForUpdate(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if !allowInactive && !v.IsActive() {
		return nil, inventory.ErrVariantInactive.Withf("variant %s is %s", v.SKU, v.Status)
	}
	p, err := repos.ProductRepo().FindByID(ctx, v.ProductID)
	if err != nil {
		return nil, err
	}
	latest, err := repos.MovementRepo().FindLatestByVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	return &ledgerWrite{
		repos:   repos,
		variant: v,
		product: p,
		latest:  latest,
	}, nil
}

func (s *StockLedgerService) mutateOne(ctx context.Context, op string, variantID uuid.UUID, fn func(w *ledgerWrite) error) (*ledgerWrite, error) {
	writes, err := s.mutate(ctx, op, []uuid.UUID{variantID}, false, fn)
	if err != nil {
		return nil, err
	}
	return writes[0], nil
}

// publishDomainEvents publishes and clears the variant's queued events
func (s *StockLedgerService) publishDomainEvents(ctx context.Context, v *inventory.Variant) {
	events := v.GetDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		v.ClearDomainEvents()
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish ledger events",
			zap.String("variant_id", v.ID.String()),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
	v.ClearDomainEvents()
}

func (s *StockLedgerService) at(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

// ReceivePurchase adds a supplier delivery as a new batch
func (s *StockLedgerService) ReceivePurchase(ctx context.Context, req ReceivePurchaseRequest) (*inventory.Movement, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	at := s.at(req.ReceivedAt)

	var movement *inventory.Movement
	_, err := s.mutateOne(ctx, "receive_purchase", req.VariantID, func(w *ledgerWrite) error {
		m, err := w.addBatch(inventory.MovementInbound, inventory.BatchReceipt{
			ReferenceCode:    req.ReferenceCode,
			Supplier:         req.Supplier,
			Quantity:         req.Quantity,
			UnitCost:         req.UnitCost,
			ReceivedAt:       at,
			ExpiresAt:        req.ExpiresAt,
			PurchaseOrderRef: req.PurchaseOrderRef,
		}, inventory.MovementOptions{
			OrderRef:   req.PurchaseOrderRef,
			Reason:     "purchase receipt",
			Actor:      req.Actor,
			OccurredAt: at,
		})
		if err != nil {
			return err
		}
		if v := w.variant; v.IncomingQuantity.IsPositive() {
			v.IncomingQuantity = decimal.Max(v.IncomingQuantity.Sub(req.Quantity), decimal.Zero)
		}
		movement = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Purchase received",
		zap.String("variant_id", req.VariantID.String()),
		zap.String("quantity", req.Quantity.String()),
		zap.String("unit_cost", req.UnitCost.String()),
	)
	return movement, nil
}

// RecordSale consumes stock in the product's costing order.
//
// Without backorder a sale larger than stock on hand fails with
// ErrInsufficientStock and nothing changes. With backorder whatever is on
// hand is consumed and the rest is returned as Unconsumed and recorded as a
// backorder of the order. It stays open until the order is cancelled.
func (s *StockLedgerService) RecordSale(ctx context.Context, req RecordSaleRequest) (*SaleResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !req.Quantity.IsPositive() {
		return nil, inventory.ErrInvalidQuantity
	}
	at := s.at(req.OccurredAt)

	var result SaleResult
	_, err := s.mutateOne(ctx, "record_sale", req.VariantID, func(w *ledgerWrite) error {
		result = SaleResult{Consumed: decimal.Zero, Unconsumed: req.Quantity}
		v := w.variant
		stock := v.StockOnHand()
		if req.Quantity.GreaterThan(stock) && !v.AllowBackorder {
			return inventory.ErrInsufficientStock.Withf("variant %s: requested %s, on hand %s", v.SKU, req.Quantity, stock)
		}

		if stock.IsPositive() {
			id := uuid.New()
			res, err := v.Consume(w.product.EffectiveCostMethod(), req.Quantity, id.String(), at)
			if err != nil {
				return err
			}
			m, err := w.record(inventory.MovementOutbound, res.Consumed.Neg(), inventory.MovementOptions{
				ID:         id,
				OrderRef:   req.OrderRef,
				Reason:     "sale",
				BatchID:    res.SingleBatch(),
				UnitCost:   res.UnitCost(),
				Actor:      req.Actor,
				OccurredAt: at,
			})
			if err != nil {
				return err
			}
			result.Movement = m
			result.Consumed = res.Consumed
			result.Unconsumed = res.Unconsumed
		}

		if result.Unconsumed.IsPositive() {
			v.RecordBackorder(req.OrderRef, result.Unconsumed, at)
			v.AddDomainEvent(inventory.NewStockShortfallEvent(v, req.Quantity, result.Unconsumed, req.OrderRef, at))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.HasShortfall() {
		s.metrics.RecordShortfall(ctx, result.Unconsumed)
		s.logger.Info("Sale backordered",
			zap.String("variant_id", req.VariantID.String()),
			zap.String("order_ref", req.OrderRef),
			zap.String("unconsumed", result.Unconsumed.String()),
		)
	}
	return &result, nil
}

// RecordAdjustment corrects stock. A positive quantity arrives as a new
// batch priced at the given cost or the variant's average receipt cost; a
// negative quantity is consumed in costing order.
func (s *StockLedgerService) RecordAdjustment(ctx context.Context, req RecordAdjustmentRequest) (*inventory.Movement, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Quantity.IsZero() {
		return nil, inventory.ErrInvalidQuantity
	}
	at := s.now()

	var movement *inventory.Movement
	_, err := s.mutateOne(ctx, "record_adjustment", req.VariantID, func(w *ledgerWrite) error {
		var err error
		movement, err = s.signedChange(w, inventory.MovementAdjustment, req.Quantity, req.UnitCost, inventory.MovementOptions{
			Reason:     req.Reason,
			Actor:      req.Actor,
			OccurredAt: at,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// RecordTransfer moves units in (positive) or out (negative) under a transfer reference
func (s *StockLedgerService) RecordTransfer(ctx context.Context, req RecordTransferRequest) (*inventory.Movement, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Quantity.IsZero() {
		return nil, inventory.ErrInvalidQuantity
	}
	at := s.now()

	var movement *inventory.Movement
	_, err := s.mutateOne(ctx, "record_transfer", req.VariantID, func(w *ledgerWrite) error {
		var err error
		movement, err = s.signedChange(w, inventory.MovementTransfer, req.Quantity, req.UnitCost, inventory.MovementOptions{
			OrderRef:   req.TransferRef,
			Reason:     req.Reason,
			Actor:      req.Actor,
			OccurredAt: at,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

func (s *StockLedgerService) signedChange(w *ledgerWrite, kind inventory.MovementKind, qty decimal.Decimal, unitCost *decimal.Decimal, opts inventory.MovementOptions) (*inventory.Movement, error) {
	if qty.IsNegative() {
		return w.drain(kind, qty.Abs(), nil, opts)
	}
	opts.ID = uuid.New()
	return w.addBatch(kind, inventory.BatchReceipt{
		ReferenceCode: fmt.Sprintf("%s:%s", kind, opts.ID),
		Quantity:      qty,
		UnitCost:      w.costOrAverage(unitCost),
		ReceivedAt:    opts.OccurredAt,
	}, opts)
}

// RecordReturn puts returned units back as a new batch. Without an explicit
// cost the units are priced at what the original sale consumed, falling
// back to the variant's average receipt cost.
func (s *StockLedgerService) RecordReturn(ctx context.Context, req RecordReturnRequest) (*inventory.Movement, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !req.Quantity.IsPositive() {
		return nil, inventory.ErrInvalidQuantity
	}
	at := s.now()

	var movement *inventory.Movement
	_, err := s.mutateOne(ctx, "record_return", req.VariantID, func(w *ledgerWrite) error {
		unitCost := req.UnitCost
		if unitCost == nil && req.OrderRef != "" {
			saleCost, err := s.saleUnitCost(ctx, w, req.OrderRef)
			if err != nil {
				return err
			}
			unitCost = saleCost
		}

		id := uuid.New()
		reason := req.Reason
		if reason == "" {
			reason = "customer return"
		}
		m, err := w.addBatch(inventory.MovementReturn, inventory.BatchReceipt{
			ReferenceCode: fmt.Sprintf("%s:%s", inventory.MovementReturn, id),
			Quantity:      req.Quantity,
			UnitCost:      w.costOrAverage(unitCost),
			ReceivedAt:    at,
		}, inventory.MovementOptions{
			ID:         id,
			OrderRef:   req.OrderRef,
			Reason:     reason,
			Actor:      req.Actor,
			OccurredAt: at,
		})
		movement = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// saleUnitCost returns the unit cost of the newest standing sale of the order, or nil
func (s *StockLedgerService) saleUnitCost(ctx context.Context, w *ledgerWrite, orderRef string) (*decimal.Decimal, error) {
	movements, err := w.repos.MovementRepo().FindByOrderRef(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	var sale *inventory.Movement
	for _, m := range inventory.ExcludeReversed(movements) {
		if m.VariantID != w.variant.ID || m.Kind != inventory.MovementOutbound {
			continue
		}
		if sale == nil || m.Sequence > sale.Sequence {
			sale = m
		}
	}
	if sale == nil {
		return nil, nil
	}
	cost := sale.UnitCost
	return &cost, nil
}

// RecordDamage writes off damaged units
func (s *StockLedgerService) RecordDamage(ctx context.Context, req RecordLossRequest) (*inventory.Movement, error) {
	return s.recordLoss(ctx, "record_damage", inventory.MovementDamage, req)
}

// RecordExpiry writes off expired units, usually from one named batch
func (s *StockLedgerService) RecordExpiry(ctx context.Context, req RecordLossRequest) (*inventory.Movement, error) {
	return s.recordLoss(ctx, "record_expiry", inventory.MovementExpired, req)
}

func (s *StockLedgerService) recordLoss(ctx context.Context, op string, kind inventory.MovementKind, req RecordLossRequest) (*inventory.Movement, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !req.Quantity.IsPositive() {
		return nil, inventory.ErrInvalidQuantity
	}
	at := s.now()

	var movement *inventory.Movement
	_, err := s.mutateOne(ctx, op, req.VariantID, func(w *ledgerWrite) error {
		var err error
		movement, err = w.drain(kind, req.Quantity, req.BatchID, inventory.MovementOptions{
			Reason:     req.Reason,
			Actor:      req.Actor,
			OccurredAt: at,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// CancelOrder reverses every standing movement of an order with
// compensating adjustments and closes the order's open backorders.
// Consumed units go back to the exact batches they came from; a receipt is
// only reversed while its batch is untouched. All variants of the order are
// reversed in one transaction.
func (s *StockLedgerService) CancelOrder(ctx context.Context, req CancelOrderRequest) (*CancelResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	movements, err := s.movementRepo.FindByOrderRef(ctx, req.OrderRef)
	if err != nil {
		return nil, err
	}
	var backorders []*inventory.Backorder
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		backorders, err = repos.VariantRepo().FindBackordersByOrderRef(ctx, req.OrderRef)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(movements) == 0 && len(backorders) == 0 {
		return nil, shared.ErrNotFound.Withf("nothing recorded for order %s", req.OrderRef)
	}

	var variantIDs []uuid.UUID
	for _, m := range inventory.ExcludeReversed(movements) {
		variantIDs = append(variantIDs, m.VariantID)
	}
	for _, b := range backorders {
		if b.IsOpen() {
			variantIDs = append(variantIDs, b.VariantID)
		}
	}
	if len(variantIDs) == 0 {
		return nil, inventory.ErrOrderAlreadyCancelled.Withf("order %s has already been cancelled", req.OrderRef)
	}

	at := s.now()
	writes, err := s.mutate(ctx, "cancel_order", variantIDs, true, func(w *ledgerWrite) error {
		return s.reverseOrder(ctx, w, req, at)
	})
	if err != nil {
		return nil, err
	}

	result := &CancelResult{OrderRef: req.OrderRef, BackorderReleased: decimal.Zero}
	for _, w := range writes {
		result.Compensating = append(result.Compensating, w.movements...)
		result.BackorderReleased = result.BackorderReleased.Add(w.backorderReleased)
	}
	s.logger.Info("Order ledger reversed",
		zap.String("order_ref", req.OrderRef),
		zap.Int("variants", len(writes)),
		zap.Int("compensating", len(result.Compensating)),
		zap.String("backorder_released", result.BackorderReleased.String()),
	)
	return result, nil
}

func (s *StockLedgerService) reverseOrder(ctx context.Context, w *ledgerWrite, req CancelOrderRequest, at time.Time) error {
	v := w.variant
	all, err := w.repos.MovementRepo().FindByOrderRef(ctx, req.OrderRef)
	if err != nil {
		return err
	}
	var originals []*inventory.Movement
	for _, m := range inventory.ExcludeReversed(all) {
		if m.VariantID == v.ID {
			originals = append(originals, m)
		}
	}
	if len(originals) == 0 && v.OpenBackorder(req.OrderRef).IsZero() {
		return inventory.ErrOrderAlreadyCancelled.Withf("order %s has nothing standing on variant %s", req.OrderRef, v.SKU)
	}
	// Newest first, so a receipt is only checked after later draws on it are restored.
	slices.SortFunc(originals, func(a, b *inventory.Movement) int {
		return int(b.Sequence - a.Sequence)
	})

	reversed := make([]uuid.UUID, 0, len(originals))
	compensating := make([]uuid.UUID, 0, len(originals))
	for _, orig := range originals {
		origID := orig.ID
		opts := inventory.MovementOptions{
			ID:         uuid.New(),
			OrderRef:   req.OrderRef,
			Reason:     fmt.Sprintf("reversal of %s %s", orig.Kind, orig.ID),
			BatchID:    orig.BatchID,
			UnitCost:   orig.UnitCost,
			Actor:      req.Actor,
			ReversalOf: &origID,
			OccurredAt: at,
		}

		var qty decimal.Decimal
		if orig.Quantity.IsNegative() {
			restored, err := v.RestoreDraws(orig.ID.String(), opts.ID.String(), at)
			if err != nil {
				return err
			}
			if !restored.Equal(orig.Quantity.Abs()) {
				return inventory.ErrStockMismatch.Withf("movement %s took %s but batches hold draws of %s", orig.ID, orig.Quantity.Abs(), restored)
			}
			qty = restored
		} else {
			if orig.BatchID == nil {
				return inventory.ErrReceiptConsumed.Withf("movement %s has no batch to reverse", orig.ID)
			}
			b, ok := v.BatchByID(*orig.BatchID)
			if !ok {
				return inventory.ErrBatchNotFound.Withf("batch %s not found on variant %s", *orig.BatchID, v.SKU)
			}
			if !b.IsIntact() {
				return inventory.ErrReceiptConsumed.Withf("batch %s of movement %s has %s of %s left", b.ID, orig.ID, b.Quantity, b.InitialQuantity)
			}
			res, err := v.ConsumeFromBatch(b.ID, b.Quantity, opts.ID.String(), at)
			if err != nil {
				return err
			}
			qty = res.Consumed.Neg()
		}

		if _, err := w.record(inventory.MovementAdjustment, qty, opts); err != nil {
			return err
		}
		reversed = append(reversed, orig.ID)
		compensating = append(compensating, opts.ID)
	}

	w.backorderReleased = v.CancelBackorders(req.OrderRef, at)
	v.AddDomainEvent(inventory.NewOrderLedgerReversedEvent(v, req.OrderRef, reversed, compensating, w.backorderReleased))
	return nil
}
