package csvimport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	appinventory "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeReceiver struct {
	received []appinventory.ReceivePurchaseRequest
	reject   map[uuid.UUID]error
}

func (f *fakeReceiver) ReceivePurchase(_ context.Context, req appinventory.ReceivePurchaseRequest) (*inventory.Movement, error) {
	if err := f.reject[req.VariantID]; err != nil {
		return nil, err
	}
	f.received = append(f.received, req)
	return &inventory.Movement{ID: uuid.New(), VariantID: req.VariantID}, nil
}

func TestReceiptImporter_ValidFile(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	input := fmt.Sprintf(`variant_id,quantity,unit_cost,reference_code,supplier,purchase_order_ref,received_at,expires_at
%s,100,10.50,LOT-1,Acme,PO-9,2026-03-01,2027-03-01
%s,5,0,,,,,
`, a, b)

	recv := &fakeReceiver{}
	res, err := NewReceiptImporter(recv, zaptest.NewLogger(t)).Import(context.Background(), strings.NewReader(input), ReceiptImportOptions{Actor: "import"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, 2, res.Imported)
	assert.Zero(t, res.Rejected)
	assert.Len(t, res.MovementIDs, 2)

	require.Len(t, recv.received, 2)
	first := recv.received[0]
	assert.Equal(t, a, first.VariantID)
	assert.True(t, first.Quantity.Equal(decimal.NewFromInt(100)))
	assert.True(t, first.UnitCost.Equal(decimal.RequireFromString("10.50")))
	assert.Equal(t, "LOT-1", first.ReferenceCode)
	assert.Equal(t, "Acme", first.Supplier)
	assert.Equal(t, "PO-9", first.PurchaseOrderRef)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), first.ReceivedAt)
	require.NotNil(t, first.ExpiresAt)
	assert.Equal(t, 2027, first.ExpiresAt.Year())
	assert.Equal(t, "import", first.Actor)

	assert.True(t, recv.received[1].ReceivedAt.IsZero())
	assert.Nil(t, recv.received[1].ExpiresAt)
}

func TestReceiptImporter_ValidationErrors(t *testing.T) {
	good := uuid.New()
	input := fmt.Sprintf(`variant_id,quantity,unit_cost,expires_at
%s,10,2,
not-a-uuid,10,2,
%s,0,2,
%s,abc,-1,
%s,1,1,31/12/2026
`, good, good, good, good)

	tests := []struct {
		name         string
		opts         ReceiptImportOptions
		wantErr      error
		wantImported int
		wantRejected int
	}{
		{"aborts before writing", ReceiptImportOptions{}, ErrValidationFailed, 0, 5},
		{"continue writes valid rows", ReceiptImportOptions{ContinueOnError: true}, nil, 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recv := &fakeReceiver{}
			res, err := NewReceiptImporter(recv, nil).Import(context.Background(), strings.NewReader(input), tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NotNil(t, res)
			assert.Equal(t, tt.wantImported, res.Imported)
			assert.Equal(t, tt.wantRejected, res.Rejected)
			assert.Len(t, recv.received, tt.wantImported)

			codes := map[string]int{}
			for _, e := range res.Errors {
				codes[e.Code]++
			}
			assert.Equal(t, 3, codes[ErrCodeInvalidType], "uuid, decimal and date")
			assert.Equal(t, 2, codes[ErrCodeInvalidRange], "zero quantity and negative cost")
		})
	}
}

func TestReceiptImporter_LedgerRejection(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	input := fmt.Sprintf("variant_id,quantity,unit_cost\n%s,1,1\n%s,1,1\n%s,1,1\n", a, b, c)
	rejected := errors.New("variant is inactive")

	t.Run("stops at the rejected row", func(t *testing.T) {
		recv := &fakeReceiver{reject: map[uuid.UUID]error{b: rejected}}
		res, err := NewReceiptImporter(recv, nil).Import(context.Background(), strings.NewReader(input), ReceiptImportOptions{})
		assert.ErrorIs(t, err, ErrImportStopped)
		assert.Equal(t, 1, res.Imported)
		assert.Equal(t, 1, res.Rejected)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 3, res.Errors[0].Row)
		assert.Equal(t, ErrCodeRejected, res.Errors[0].Code)
	})

	t.Run("continues past it", func(t *testing.T) {
		recv := &fakeReceiver{reject: map[uuid.UUID]error{b: rejected}}
		res, err := NewReceiptImporter(recv, nil).Import(context.Background(), strings.NewReader(input), ReceiptImportOptions{ContinueOnError: true})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Imported)
		assert.Equal(t, 1, res.Rejected)
	})
}

func TestReceiptImporter_FileErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", ErrEmptyFile},
		{"missing required column", "variant_id,quantity\nx,1\n", ErrMissingHeader},
		{"header only", "variant_id,quantity,unit_cost\n", ErrNoDataRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReceiptImporter(&fakeReceiver{}, nil).Import(context.Background(), strings.NewReader(tt.input), ReceiptImportOptions{})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
