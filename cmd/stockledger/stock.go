package main

import (
	"errors"
	"os"

	appinventory "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	csvimport "github.com/erp/stockledger/internal/infrastructure/import"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func stockCommand() *cli.Command {
	return &cli.Command{
		Name:  "stock",
		Usage: "Record stock movements",
		Subcommands: []*cli.Command{
			{
				Name:  "receive",
				Usage: "Receive a purchase as a new batch",
				Flags: []cli.Flag{
					variantFlag(true),
					quantityFlag(),
					unitCostFlag(true),
					&cli.StringFlag{Name: "ref", Usage: "Batch reference code"},
					&cli.StringFlag{Name: "supplier", Usage: "Supplier name"},
					&cli.StringFlag{Name: "po", Usage: "Purchase order reference"},
					&cli.TimestampFlag{Name: "expires", Usage: "Batch expiry date", Layout: "2006-01-02"},
				},
				Action: withApp(runReceive),
			},
			{
				Name:  "sell",
				Usage: "Record a sale, consuming batches by the product's cost method",
				Flags: []cli.Flag{
					variantFlag(true),
					quantityFlag(),
					&cli.StringFlag{Name: "order", Usage: "Order reference", Required: true},
				},
				Action: withApp(runSell),
			},
			{
				Name:  "adjust",
				Usage: "Correct stock by a signed quantity",
				Flags: []cli.Flag{
					variantFlag(true),
					quantityFlag(),
					unitCostFlag(false),
					reasonFlag(true),
				},
				Action: withApp(runAdjust),
			},
			{
				Name:  "return",
				Usage: "Put returned units back into stock",
				Flags: []cli.Flag{
					variantFlag(true),
					quantityFlag(),
					unitCostFlag(false),
					&cli.StringFlag{Name: "order", Usage: "Order the units were sold on"},
					reasonFlag(false),
				},
				Action: withApp(runReturn),
			},
			{
				Name:   "damage",
				Usage:  "Write off damaged units",
				Flags:  lossFlags(),
				Action: withApp(runLoss(inventory.MovementDamage)),
			},
			{
				Name:   "expire",
				Usage:  "Write off expired units",
				Flags:  lossFlags(),
				Action: withApp(runLoss(inventory.MovementExpired)),
			},
			{
				Name:  "transfer",
				Usage: "Move units in or out by a signed quantity",
				Flags: []cli.Flag{
					variantFlag(true),
					quantityFlag(),
					unitCostFlag(false),
					&cli.StringFlag{Name: "ref", Usage: "Transfer reference", Required: true},
					reasonFlag(false),
				},
				Action: withApp(runTransfer),
			},
			{
				Name:      "import",
				Usage:     "Receive purchases from a CSV file",
				ArgsUsage: "<file.csv>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "continue-on-error", Usage: "Write valid rows even when others fail"},
					&cli.IntFlag{Name: "max-errors", Value: 100, Usage: "Row errors to report"},
				},
				Action: withApp(runImport),
			},
			{
				Name:  "cancel",
				Usage: "Cancel an order and reverse its sales",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "order", Usage: "Order reference", Required: true},
				},
				Action: withApp(runCancel),
			},
		},
	}
}

func lossFlags() []cli.Flag {
	return []cli.Flag{
		variantFlag(true),
		quantityFlag(),
		&cli.StringFlag{Name: "batch", Usage: "Write off from this batch only"},
		reasonFlag(true),
	}
}

func runReceive(c *cli.Context, app *application) error {
	variantID, err := uuidArg(c, "variant")
	if err != nil {
		return err
	}
	qty, err := decimalArg(c, "qty")
	if err != nil {
		return err
	}
	cost, err := decimalArg(c, "cost")
	if err != nil {
		return err
	}
	m, err := app.ledger.ReceivePurchase(c.Context, appinventory.ReceivePurchaseRequest{
		VariantID:        variantID,
		Quantity:         qty,
		UnitCost:         cost,
		ReferenceCode:    c.String("ref"),
		Supplier:         c.String("supplier"),
		PurchaseOrderRef: c.String("po"),
		ExpiresAt:        c.Timestamp("expires"),
		Actor:            c.String("actor"),
	})
	if err != nil {
		return err
	}
	return printJSON(appinventory.ToMovementResponse(m))
}

func runSell(c *cli.Context, app *application) error {
	variantID, err := uuidArg(c, "variant")
	if err != nil {
		return err
	}
	qty, err := decimalArg(c, "qty")
	if err != nil {
		return err
	}
	result, err := app.ledger.RecordSale(c.Context, appinventory.RecordSaleRequest{
		VariantID: variantID,
		Quantity:  qty,
		OrderRef:  c.String("order"),
		Actor:     c.String("actor"),
	})
	if err != nil {
		return err
	}
	if result.HasShortfall() {
		app.logger.Warn("Sale left units unfilled",
			zap.String("order_ref", c.String("order")),
			zap.String("unconsumed", result.Unconsumed.String()),
		)
	}
	return printJSON(result)
}

func runAdjust(c *cli.Context, app *application) error {
	variantID, err := uuidArg(c, "variant")
	if err != nil {
		return err
	}
	qty, err := decimalArg(c, "qty")
	if err != nil {
		return err
	}
	cost, err := optionalDecimalArg(c, "cost")
	if err != nil {
		return err
	}
	m, err := app.ledger.RecordAdjustment(c.Context, appinventory.RecordAdjustmentRequest{
		VariantID: variantID,
		Quantity:  qty,
		UnitCost:  cost,
		Reason:    c.String("reason"),
		Actor:     c.String("actor"),
	})
	if err != nil {
		return err
	}
	return printJSON(appinventory.ToMovementResponse(m))
}

func runReturn(c *cli.Context, app *application) error {
	variantID, err := uuidArg(c, "variant")
	if err != nil {
		return err
	}
	qty, err := decimalArg(c, "qty")
	if err != nil {
		return err
	}
	cost, err := optionalDecimalArg(c, "cost")
	if err != nil {
		return err
	}
	m, err := app.ledger.RecordReturn(c.Context, appinventory.RecordReturnRequest{
		VariantID: variantID,
		Quantity:  qty,
		UnitCost:  cost,
		OrderRef:  c.String("order"),
		Reason:    c.String("reason"),
		Actor:     c.String("actor"),
	})
	if err != nil {
		return err
	}
	return printJSON(appinventory.ToMovementResponse(m))
}

func runLoss(kind inventory.MovementKind) func(*cli.Context, *application) error {
	return func(c *cli.Context, app *application) error {
		variantID, err := uuidArg(c, "variant")
		if err != nil {
			return err
		}
		qty, err := decimalArg(c, "qty")
		if err != nil {
			return err
		}
		batchID, err := optionalUUIDArg(c, "batch")
		if err != nil {
			return err
		}
		req := appinventory.RecordLossRequest{
			VariantID: variantID,
			Quantity:  qty,
			BatchID:   batchID,
			Reason:    c.String("reason"),
			Actor:     c.String("actor"),
		}

		record := app.ledger.RecordDamage
		if kind == inventory.MovementExpired {
			record = app.ledger.RecordExpiry
		}
		m, err := record(c.Context, req)
		if err != nil {
			return err
		}
		return printJSON(appinventory.ToMovementResponse(m))
	}
}

func runTransfer(c *cli.Context, app *application) error {
	variantID, err := uuidArg(c, "variant")
	if err != nil {
		return err
	}
	qty, err := decimalArg(c, "qty")
	if err != nil {
		return err
	}
	cost, err := optionalDecimalArg(c, "cost")
	if err != nil {
		return err
	}
	m, err := app.ledger.RecordTransfer(c.Context, appinventory.RecordTransferRequest{
		VariantID:   variantID,
		Quantity:    qty,
		UnitCost:    cost,
		TransferRef: c.String("ref"),
		Reason:      c.String("reason"),
		Actor:       c.String("actor"),
	})
	if err != nil {
		return err
	}
	return printJSON(appinventory.ToMovementResponse(m))
}

func runCancel(c *cli.Context, app *application) error {
	result, err := app.ledger.CancelOrder(c.Context, appinventory.CancelOrderRequest{
		OrderRef: c.String("order"),
		Actor:    c.String("actor"),
	})
	if err != nil {
		return err
	}
	return printJSON(struct {
		OrderRef          string                          `json:"order_ref"`
		Compensating      []appinventory.MovementResponse `json:"compensating"`
		BackorderReleased string                          `json:"backorder_released"`
	}{result.OrderRef, appinventory.ToMovementResponses(result.Compensating), result.BackorderReleased.String()})
}

func runImport(c *cli.Context, app *application) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one CSV file")
	}
	f, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	importer := csvimport.NewReceiptImporter(app.ledger, app.logger)
	result, err := importer.Import(c.Context, f, csvimport.ReceiptImportOptions{
		ContinueOnError: c.Bool("continue-on-error"),
		MaxErrors:       c.Int("max-errors"),
		Actor:           c.String("actor"),
	})
	if result != nil {
		if perr := printJSON(result); perr != nil {
			return perr
		}
	}
	return err
}
