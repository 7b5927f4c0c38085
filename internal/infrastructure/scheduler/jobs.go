package scheduler

import (
	"context"
	"fmt"
	"time"

	appinventory "github.com/erp/stockledger/internal/application/inventory"
)

// Job names
const (
	JobAlertSweep  = "alert_sweep"
	JobLedgerAudit = "ledger_audit"
)

// Sweeper is the part of AlertSweepService the sweep job needs
type Sweeper interface {
	Sweep(ctx context.Context) (*appinventory.SweepResult, error)
}

// Auditor is the part of LedgerAuditService the audit job needs
type Auditor interface {
	Audit(ctx context.Context) (*appinventory.AuditReport, error)
}

// AlertSweepJob classifies every product and delivers alerts each interval.
// Failed deliveries do not fail the job; they are retried next sweep.
func AlertSweepJob(sweeper Sweeper, interval time.Duration) Job {
	return Job{
		Name:       JobAlertSweep,
		Interval:   interval,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			_, err := sweeper.Sweep(ctx)
			return err
		},
	}
}

// LedgerAuditJob verifies every movement chain. Unhealthy variants fail the
// run so the job state shows them.
func LedgerAuditJob(auditor Auditor, interval time.Duration) Job {
	return Job{
		Name:     JobLedgerAudit,
		Interval: interval,
		Run: func(ctx context.Context) error {
			report, err := auditor.Audit(ctx)
			if err != nil {
				return err
			}
			if report.Unhealthy > 0 {
				return fmt.Errorf("ledger audit found %d unhealthy variants", report.Unhealthy)
			}
			return nil
		},
	}
}
