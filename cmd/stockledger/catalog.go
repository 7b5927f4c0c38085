package main

import (
	appinventory "github.com/erp/stockledger/internal/application/inventory"
	"github.com/urfave/cli/v2"
)

func productCommand() *cli.Command {
	return &cli.Command{
		Name:  "product",
		Usage: "Manage products and their replenishment policy",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a product",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "cost-method", Usage: "fifo, lifo or weighted_average (default: ledger.default_cost_method)"},
					&cli.IntFlag{Name: "buffer-days", Usage: "Safety stock in days of demand (default: ledger.default_buffer_days)"},
					&cli.IntFlag{Name: "lead-time", Usage: "Default supplier lead time in days"},
					&cli.Int64Flag{Name: "moq", Usage: "Minimum order quantity"},
				},
				Action: withApp(runCreateProduct),
			},
			{
				Name:  "set-policy",
				Usage: "Change buffer days, default lead time and MOQ",
				Flags: []cli.Flag{
					productFlag(true),
					&cli.IntFlag{Name: "buffer-days", Required: true},
					&cli.IntFlag{Name: "lead-time"},
					&cli.Int64Flag{Name: "moq"},
				},
				Action: withApp(runSetReplenishmentPolicy),
			},
			{
				Name:  "cost-method",
				Usage: "Change the costing method; rejected once stock has been consumed",
				Flags: []cli.Flag{
					productFlag(true),
					&cli.StringFlag{Name: "method", Required: true},
				},
				Action: withApp(runChangeCostMethod),
			},
		},
	}
}

func variantCommand() *cli.Command {
	return &cli.Command{
		Name:  "variant",
		Usage: "Manage variants and their reorder policy",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a variant under a product",
				Flags: append([]cli.Flag{
					productFlag(true),
					&cli.StringFlag{Name: "sku", Required: true},
					&cli.StringFlag{Name: "price", Value: "0"},
					&cli.StringFlag{Name: "reference-cost", Value: "0"},
				}, reorderFlags()...),
				Action: withApp(runCreateVariant),
			},
			{
				Name:   "reorder-policy",
				Usage:  "Change reorder point, quantity, lead time and backorder flag",
				Flags:  append([]cli.Flag{variantFlag(true)}, reorderFlags()...),
				Action: withApp(runSetReorderPolicy),
			},
		},
	}
}

func reorderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{Name: "reorder-point"},
		&cli.Int64Flag{Name: "reorder-qty"},
		&cli.IntFlag{Name: "lead-time", Usage: "Lead time in days; zero falls back to the product default"},
		&cli.BoolFlag{Name: "backorder", Usage: "Allow sales beyond stock on hand"},
	}
}

func runCreateProduct(c *cli.Context, app *application) error {
	req := appinventory.CreateProductRequest{
		Name:                 c.String("name"),
		CostMethod:           c.String("cost-method"),
		DefaultLeadTimeDays:  c.Int("lead-time"),
		MinimumOrderQuantity: c.Int64("moq"),
	}
	if c.IsSet("buffer-days") {
		days := c.Int("buffer-days")
		req.BufferDays = &days
	}
	p, err := app.products.CreateProduct(c.Context, req)
	if err != nil {
		return err
	}
	return printJSON(p)
}

func runSetReplenishmentPolicy(c *cli.Context, app *application) error {
	productID, err := uuidArg(c, "product")
	if err != nil {
		return err
	}
	p, err := app.products.SetReplenishmentPolicy(c.Context, appinventory.SetReplenishmentPolicyRequest{
		ProductID:            productID,
		BufferDays:           c.Int("buffer-days"),
		DefaultLeadTimeDays:  c.Int("lead-time"),
		MinimumOrderQuantity: c.Int64("moq"),
	})
	if err != nil {
		return err
	}
	return printJSON(p)
}

func runChangeCostMethod(c *cli.Context, app *application) error {
	productID, err := uuidArg(c, "product")
	if err != nil {
		return err
	}
	p, err := app.products.ChangeCostMethod(c.Context, appinventory.ChangeCostMethodRequest{
		ProductID:  productID,
		CostMethod: c.String("method"),
	})
	if err != nil {
		return err
	}
	return printJSON(p)
}

func runCreateVariant(c *cli.Context, app *application) error {
	productID, err := uuidArg(c, "product")
	if err != nil {
		return err
	}
	price, err := decimalArg(c, "price")
	if err != nil {
		return err
	}
	refCost, err := decimalArg(c, "reference-cost")
	if err != nil {
		return err
	}
	v, err := app.products.CreateVariant(c.Context, appinventory.CreateVariantRequest{
		ProductID:       productID,
		SKU:             c.String("sku"),
		UnitPrice:       price,
		ReferenceCost:   refCost,
		ReorderPoint:    c.Int64("reorder-point"),
		ReorderQuantity: c.Int64("reorder-qty"),
		LeadTimeDays:    c.Int("lead-time"),
		AllowBackorder:  c.Bool("backorder"),
	})
	if err != nil {
		return err
	}
	return printJSON(v)
}

func runSetReorderPolicy(c *cli.Context, app *application) error {
	variantID, err := uuidArg(c, "variant")
	if err != nil {
		return err
	}
	req := appinventory.SetReorderPolicyRequest{
		VariantID:       variantID,
		ReorderPoint:    c.Int64("reorder-point"),
		ReorderQuantity: c.Int64("reorder-qty"),
		LeadTimeDays:    c.Int("lead-time"),
	}
	if c.IsSet("backorder") {
		allow := c.Bool("backorder")
		req.AllowBackorder = &allow
	}
	v, err := app.products.SetReorderPolicy(c.Context, req)
	if err != nil {
		return err
	}
	return printJSON(v)
}
