package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/scheduler"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func historyFlags() []cli.Flag {
	return []cli.Flag{
		variantFlag(true),
		&cli.IntFlag{Name: "page", Value: 1},
		&cli.IntFlag{Name: "page-size", Value: shared.DefaultFilter().PageSize},
		&cli.StringFlag{Name: "sort", Usage: "asc or desc", Value: "asc"},
	}
}

func runHistory(c *cli.Context, app *application) error {
	variantID, err := uuidArg(c, "variant")
	if err != nil {
		return err
	}
	page, err := app.analysis.MovementHistory(c.Context, variantID, shared.Filter{
		Page:     c.Int("page"),
		PageSize: c.Int("page-size"),
		OrderDir: c.String("sort"),
	})
	if err != nil {
		return err
	}
	return printJSON(page)
}

func runValuate(c *cli.Context, app *application) error {
	switch {
	case c.IsSet("variant"):
		variantID, err := uuidArg(c, "variant")
		if err != nil {
			return err
		}
		val, err := app.analysis.ValuateInventory(c.Context, variantID)
		if err != nil {
			return err
		}
		return printJSON(val)
	case c.IsSet("product"):
		productID, err := uuidArg(c, "product")
		if err != nil {
			return err
		}
		val, err := app.analysis.ValuateProduct(c.Context, productID)
		if err != nil {
			return err
		}
		return printJSON(val)
	default:
		return errors.New("one of --variant or --product is required")
	}
}

func runMetrics(c *cli.Context, app *application) error {
	variantID, err := uuidArg(c, "variant")
	if err != nil {
		return err
	}
	metrics, err := app.analysis.ReorderMetrics(c.Context, variantID)
	if err != nil {
		return err
	}
	return printJSON(metrics)
}

func runAlerts(c *cli.Context, app *application) error {
	var (
		alerts []inventory.Alert
		err    error
	)
	if c.IsSet("product") {
		productID, perr := uuidArg(c, "product")
		if perr != nil {
			return perr
		}
		alerts, err = app.analysis.ProductRiskAlerts(c.Context, productID, c.Int("window"))
	} else {
		alerts, err = app.analysis.RiskAlerts(c.Context, c.Int("window"))
	}
	if err != nil {
		return err
	}
	return printJSON(alerts)
}

func runPlan(c *cli.Context, app *application) error {
	productID, err := uuidArg(c, "product")
	if err != nil {
		return err
	}
	plan, err := app.analysis.ReplenishmentPlan(c.Context, productID)
	if err != nil {
		return err
	}
	return printJSON(plan)
}

func runSweep(c *cli.Context, app *application) error {
	result, err := app.sweep.Sweep(c.Context)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runAudit(c *cli.Context, app *application) error {
	if c.IsSet("variant") {
		variantID, err := uuidArg(c, "variant")
		if err != nil {
			return err
		}
		audit, err := app.audit.AuditVariant(c.Context, variantID)
		if err != nil {
			return err
		}
		if err := printJSON(audit); err != nil {
			return err
		}
		if !audit.Healthy() {
			return cli.Exit("ledger chain is broken", 2)
		}
		return nil
	}

	report, err := app.audit.Audit(c.Context)
	if err != nil {
		return err
	}
	if err := printJSON(report); err != nil {
		return err
	}
	if report.Unhealthy > 0 {
		return cli.Exit("ledger chain is broken", 2)
	}
	return nil
}

// runServe runs the scheduled jobs until SIGINT or SIGTERM
func runServe(c *cli.Context, app *application) error {
	cfg := app.cfg
	sched := scheduler.New(app.logger)

	if cfg.AlertSweep.Enabled {
		if err := sched.Add(scheduler.AlertSweepJob(app.sweep, cfg.AlertSweep.Interval)); err != nil {
			return err
		}
	}
	if cfg.AlertSweep.AuditInterval > 0 {
		if err := sched.Add(scheduler.LedgerAuditJob(app.audit, cfg.AlertSweep.AuditInterval)); err != nil {
			return err
		}
	}
	if len(sched.States()) == 0 {
		return errors.New("nothing to schedule: enable alert_sweep or set alert_sweep.audit_interval")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		return err
	}
	app.logger.Info("Scheduler serving",
		zap.Duration("sweep_interval", cfg.AlertSweep.Interval),
		zap.Duration("audit_interval", cfg.AlertSweep.AuditInterval),
	)

	<-ctx.Done()
	app.logger.Info("Shutting down scheduler...")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		app.logger.Error("Scheduler forced to stop", zap.Error(err))
	}
	for _, st := range sched.States() {
		app.logger.Info("Job summary",
			zap.String("job", st.Name),
			zap.String("status", string(st.Status)),
			zap.Int("runs", st.Runs),
			zap.Int("failures", st.Failures),
		)
	}
	return nil
}
