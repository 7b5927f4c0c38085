// Command stockledger operates the inventory batch ledger: it records stock
// movements, values inventory, plans replenishment and runs the periodic
// alert sweep and chain audit.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "stockledger",
		Usage: "Inventory batch ledger and replenishment engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Override log.level (debug, info, warn, error)",
				EnvVars: []string{"STOCKLEDGER_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "actor",
				Usage:   "Actor recorded on movements",
				Value:   "cli",
				EnvVars: []string{"STOCKLEDGER_ACTOR"},
			},
		},
		Commands: []*cli.Command{
			productCommand(),
			variantCommand(),
			stockCommand(),
			{
				Name:   "history",
				Usage:  "Show the movement history of a variant",
				Flags:  historyFlags(),
				Action: withApp(runHistory),
			},
			{
				Name:   "valuate",
				Usage:  "Value the stock of a variant or a whole product",
				Flags:  []cli.Flag{variantFlag(false), productFlag(false)},
				Action: withApp(runValuate),
			},
			{
				Name:   "metrics",
				Usage:  "Show reorder metrics for a variant",
				Flags:  []cli.Flag{variantFlag(true)},
				Action: withApp(runMetrics),
			},
			{
				Name:  "alerts",
				Usage: "Classify stock risk for every product, or one",
				Flags: []cli.Flag{
					productFlag(false),
					&cli.IntFlag{Name: "window", Usage: "Demand window in days (default: ledger.demand_window_days)"},
				},
				Action: withApp(runAlerts),
			},
			{
				Name:   "plan",
				Usage:  "Build the replenishment plan for a product",
				Flags:  []cli.Flag{productFlag(true)},
				Action: withApp(runPlan),
			},
			{
				Name:   "sweep",
				Usage:  "Run one alert sweep and deliver the alerts",
				Action: withApp(runSweep),
			},
			{
				Name:   "audit",
				Usage:  "Verify movement chains against batch quantities",
				Flags:  []cli.Flag{variantFlag(false)},
				Action: withApp(runAudit),
			},
			{
				Name:   "serve",
				Usage:  "Run the alert sweep and chain audit on a schedule until interrupted",
				Action: withApp(runServe),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
