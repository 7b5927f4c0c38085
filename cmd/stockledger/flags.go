package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func variantFlag(required bool) cli.Flag {
	return &cli.StringFlag{Name: "variant", Usage: "Variant ID", Required: required}
}

func productFlag(required bool) cli.Flag {
	return &cli.StringFlag{Name: "product", Usage: "Product ID", Required: required}
}

func quantityFlag() cli.Flag {
	return &cli.StringFlag{Name: "qty", Usage: "Quantity as a decimal", Required: true}
}

func unitCostFlag(required bool) cli.Flag {
	return &cli.StringFlag{Name: "cost", Usage: "Unit cost as a decimal", Required: required}
}

func reasonFlag(required bool) cli.Flag {
	return &cli.StringFlag{Name: "reason", Usage: "Reason recorded on the movement", Required: required}
}

// withApp opens the application for one command and closes it afterwards
func withApp(fn func(c *cli.Context, app *application) error) cli.ActionFunc {
	return func(c *cli.Context) (err error) {
		app, err := newApplication(c.Context, c.String("log-level"))
		if err != nil {
			return err
		}
		defer func() {
			if cerr := app.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		c.Context = tagCommand(c)
		return fn(c, app)
	}
}

// tagCommand labels the command's context so every log line it produces,
// SQL included, names the operation and the order or variant it touches
func tagCommand(c *cli.Context) context.Context {
	ctx := logger.WithOperation(c.Context, c.Command.Name)
	if actor := c.String("actor"); actor != "" {
		ctx = logger.WithActor(ctx, actor)
	}
	if order := c.String("order"); order != "" {
		ctx = logger.WithOrderRef(ctx, order)
	}
	if variant := c.String("variant"); variant != "" {
		ctx = logger.WithVariant(ctx, variant)
	}
	return ctx
}

func uuidArg(c *cli.Context, name string) (uuid.UUID, error) {
	raw := c.String(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--%s: invalid id %q", name, raw)
	}
	return id, nil
}

func optionalUUIDArg(c *cli.Context, name string) (*uuid.UUID, error) {
	if !c.IsSet(name) {
		return nil, nil
	}
	id, err := uuidArg(c, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func decimalArg(c *cli.Context, name string) (decimal.Decimal, error) {
	raw := c.String(name)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: invalid decimal %q", name, raw)
	}
	return d, nil
}

func optionalDecimalArg(c *cli.Context, name string) (*decimal.Decimal, error) {
	if !c.IsSet(name) {
		return nil, nil
	}
	d, err := decimalArg(c, name)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// printJSON writes v to stdout as indented JSON
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
