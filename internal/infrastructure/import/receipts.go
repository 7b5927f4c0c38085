package csvimport

import (
	"context"
	"fmt"
	"io"
	"time"

	appinventory "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Receipt columns. variant_id, quantity and unit_cost are required.
const (
	ColVariantID   = "variant_id"
	ColQuantity    = "quantity"
	ColUnitCost    = "unit_cost"
	ColReference   = "reference_code"
	ColSupplier    = "supplier"
	ColPurchaseRef = "purchase_order_ref"
	ColReceivedAt  = "received_at"
	ColExpiresAt   = "expires_at"
)

// RequiredReceiptColumns must appear in the header
var RequiredReceiptColumns = []string{ColVariantID, ColQuantity, ColUnitCost}

// dateLayouts are tried in order for received_at and expires_at
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// Receiver records one purchase receipt
type Receiver interface {
	ReceivePurchase(ctx context.Context, req appinventory.ReceivePurchaseRequest) (*inventory.Movement, error)
}

// ReceiptImportOptions tunes an import run
type ReceiptImportOptions struct {
	// ContinueOnError writes the valid rows even when some rows fail
	// validation, and keeps going after a rejected receipt
	ContinueOnError bool
	MaxErrors       int
	Actor           string
}

// ReceiptImportResult summarizes an import run
type ReceiptImportResult struct {
	TotalRows   int        `json:"total_rows"`
	Imported    int        `json:"imported"`
	Rejected    int        `json:"rejected"`
	Errors      []RowError `json:"errors,omitempty"`
	ErrorCount  int        `json:"error_count"`
	MovementIDs []string   `json:"movement_ids,omitempty"`
}

type parsedReceipt struct {
	line int
	req  appinventory.ReceivePurchaseRequest
}

// ReceiptImporter loads opening stock and purchase receipts from CSV. Every
// row becomes its own ledger transaction; the file is validated in full
// before the first row is written.
type ReceiptImporter struct {
	receiver Receiver
	logger   *zap.Logger
}

// NewReceiptImporter creates a new ReceiptImporter
func NewReceiptImporter(receiver Receiver, logger *zap.Logger) *ReceiptImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptImporter{receiver: receiver, logger: logger}
}

// Import parses r and receives every valid row. Without ContinueOnError a
// single invalid row aborts the run before anything is written and the
// result is returned with ErrValidationFailed.
func (imp *ReceiptImporter) Import(ctx context.Context, r io.Reader, opts ReceiptImportOptions) (*ReceiptImportResult, error) {
	parser, err := NewCSVParser(r)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.MissingHeaders(RequiredReceiptColumns); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %v", ErrMissingHeader, missing)
	}

	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}

	errs := NewErrorCollection(opts.MaxErrors)
	receipts := make([]parsedReceipt, 0, len(rows))
	for _, row := range rows {
		if req, ok := parseReceiptRow(row, opts.Actor, errs); ok {
			receipts = append(receipts, parsedReceipt{line: row.LineNumber, req: req})
		}
	}

	result := &ReceiptImportResult{TotalRows: len(rows)}
	if errs.HasErrors() && !opts.ContinueOnError {
		result.Rejected = len(rows)
		result.Errors = errs.Errors()
		result.ErrorCount = errs.TotalCount()
		return result, ErrValidationFailed
	}
	result.Rejected = len(rows) - len(receipts)

	for _, rec := range receipts {
		m, err := imp.receiver.ReceivePurchase(ctx, rec.req)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			errs.Add(RowError{Row: rec.line, Code: ErrCodeRejected, Message: err.Error()})
			result.Rejected++
			if !opts.ContinueOnError {
				break
			}
			continue
		}
		result.Imported++
		result.MovementIDs = append(result.MovementIDs, m.ID.String())
	}

	result.Errors = errs.Errors()
	result.ErrorCount = errs.TotalCount()
	imp.logger.Info("Receipt import finished",
		zap.Int("rows", result.TotalRows),
		zap.Int("imported", result.Imported),
		zap.Int("rejected", result.Rejected),
	)
	if result.Imported < len(receipts) && !opts.ContinueOnError {
		return result, ErrImportStopped
	}
	return result, nil
}

func parseReceiptRow(row *Row, actor string, errs *ErrorCollection) (appinventory.ReceivePurchaseRequest, bool) {
	req := appinventory.ReceivePurchaseRequest{
		ReferenceCode:    row.Get(ColReference),
		Supplier:         row.Get(ColSupplier),
		PurchaseOrderRef: row.Get(ColPurchaseRef),
		Actor:            actor,
	}
	before := errs.TotalCount()

	if raw := row.Get(ColVariantID); raw == "" {
		errs.AddRequired(row.LineNumber, ColVariantID)
	} else if id, err := uuid.Parse(raw); err != nil {
		errs.AddType(row.LineNumber, ColVariantID, "UUID", raw)
	} else {
		req.VariantID = id
	}

	var ok bool
	if req.Quantity, ok = parseDecimal(row, ColQuantity, errs); ok && !req.Quantity.IsPositive() {
		errs.Add(RowError{Row: row.LineNumber, Column: ColQuantity, Code: ErrCodeInvalidRange, Message: "quantity must be positive", Value: row.Get(ColQuantity)})
	}
	if req.UnitCost, ok = parseDecimal(row, ColUnitCost, errs); ok && req.UnitCost.IsNegative() {
		errs.Add(RowError{Row: row.LineNumber, Column: ColUnitCost, Code: ErrCodeInvalidRange, Message: "unit cost cannot be negative", Value: row.Get(ColUnitCost)})
	}

	if t, ok := parseDate(row, ColReceivedAt, errs); ok && t != nil {
		req.ReceivedAt = *t
	}
	if t, ok := parseDate(row, ColExpiresAt, errs); ok {
		req.ExpiresAt = t
	}

	return req, errs.TotalCount() == before
}

func parseDecimal(row *Row, column string, errs *ErrorCollection) (decimal.Decimal, bool) {
	raw := row.Get(column)
	if raw == "" {
		errs.AddRequired(row.LineNumber, column)
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		errs.AddType(row.LineNumber, column, "decimal", raw)
		return decimal.Zero, false
	}
	return d, true
}

// parseDate returns nil for a blank optional column
func parseDate(row *Row, column string, errs *ErrorCollection) (*time.Time, bool) {
	raw := row.Get(column)
	if raw == "" {
		return nil, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	errs.AddType(row.LineNumber, column, "date (YYYY-MM-DD or RFC3339)", raw)
	return nil, false
}
