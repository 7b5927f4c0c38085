package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	appinventory "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/strategy"
	"github.com/erp/stockledger/internal/infrastructure/cache"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/event"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/messaging"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	infrastrategy "github.com/erp/stockledger/internal/infrastructure/strategy"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 10 * time.Second

// application holds every wired service for one CLI invocation
type application struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Providers
	db        *persistence.Database
	dedup     shared.IdempotencyStore
	closers   []func() error

	products *appinventory.ProductService
	ledger   *appinventory.StockLedgerService
	analysis *appinventory.AnalysisService
	audit    *appinventory.LedgerAuditService
	sweep    *appinventory.AlertSweepService
}

// newApplication loads configuration and builds the service graph
func newApplication(ctx context.Context, logLevel string) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	bootLog, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		return nil, fmt.Errorf("failed to start telemetry: %w", err)
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	log, err := logger.New(logger.FromAppConfig(cfg.Log), providers.Logs.Core(level))
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app := &application{cfg: cfg, logger: log, telemetry: providers}
	if err := app.wire(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *application) wire(ctx context.Context) error {
	cfg := a.cfg
	log := a.logger

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:        log,
		LogLevel:      logger.MapGormLogLevel(cfg.Log.Level),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.DBName),
	)

	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, log); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}

	meter := a.telemetry.Meter.Meter(telemetry.TracerName)
	recorder, err := a.registerMetrics(meter)
	if err != nil {
		return err
	}

	productRepo := persistence.NewGormProductRepository(db.DB)
	variantRepo := persistence.NewGormVariantRepository(db.DB)
	movementRepo := persistence.NewGormMovementRepository(db.DB)
	demandRepo := persistence.NewGormDemandRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	defaultMethod := strategy.CostMethod(cfg.Ledger.DefaultCostMethod)
	strategies, err := infrastrategy.NewRegistryWithDefaults(defaultMethod)
	if err != nil {
		return fmt.Errorf("failed to build valuation strategies: %w", err)
	}

	epsilon, err := decimal.NewFromString(cfg.Ledger.EpsilonRate)
	if err != nil {
		return fmt.Errorf("invalid ledger.epsilon_rate %q: %w", cfg.Ledger.EpsilonRate, err)
	}

	a.dedup, err = cache.NewDeduplicatorFactory(cfg.Redis, cache.WithLogger(log)).Create()
	if err != nil {
		return fmt.Errorf("failed to create alert deduplicator: %w", err)
	}
	dedupCfg := shared.IdempotencyConfig{TTL: cfg.AlertSweep.DedupTTL, Enabled: true}

	notifier := a.alertNotifier()

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(appinventory.NewDemandRecorder(demandRepo, log))
	bus.Subscribe(appinventory.NewStockShortfallHandler(log).
		WithNotifier(notifier).
		WithDeduplicator(a.dedup, dedupCfg))
	if cfg.Kafka.Enabled && cfg.Kafka.EventTopic != "" {
		eventsCfg := cfg.Kafka
		eventsCfg.Topic = cfg.Kafka.EventTopic
		writer := messaging.NewWriter(eventsCfg)
		a.closers = append(a.closers, writer.Close)
		bus.Subscribe(messaging.NewKafkaEventForwarder(writer, nil, log))
	}

	a.ledger = appinventory.NewStockLedgerService(scope, movementRepo, log)
	a.ledger.SetEventPublisher(bus)
	a.ledger.SetMetrics(recorder)
	a.ledger.SetMaxRetries(cfg.Ledger.MaxRetries)

	a.products = appinventory.NewProductService(scope, productRepo, variantRepo, appinventory.ProductDefaults{
		CostMethod: defaultMethod,
		BufferDays: cfg.Ledger.DefaultBufferDays,
	}, log)
	a.products.SetEventPublisher(bus)

	a.analysis = appinventory.NewAnalysisService(variantRepo, productRepo, movementRepo, demandRepo, strategies, appinventory.AnalysisOptions{
		WindowDays:  cfg.Ledger.DemandWindowDays,
		EpsilonRate: epsilon,
		Risk:        inventory.RiskPolicy{CriticalDays: cfg.Ledger.CriticalDays},
	}, log)

	a.audit = appinventory.NewLedgerAuditService(variantRepo, movementRepo, log)
	a.audit.SetMetrics(recorder)

	a.sweep = appinventory.NewAlertSweepService(a.analysis, notifier, a.dedup, appinventory.SweepOptions{
		WindowDays:  cfg.AlertSweep.WindowDays,
		Concurrency: cfg.AlertSweep.Concurrency,
		Dedup:       dedupCfg,
	}, log)
	a.sweep.SetMetrics(recorder)

	return nil
}

// registerMetrics returns nil when metrics export is off, which the
// services treat as a no-op recorder
func (a *application) registerMetrics(meter metric.Meter) (appinventory.LedgerRecorder, error) {
	if !a.telemetry.Meter.IsEnabled() {
		return nil, nil
	}
	recorder, err := telemetry.NewLedgerMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger metrics: %w", err)
	}
	sqlDB, err := a.db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	reg, err := telemetry.RegisterDBPoolMetrics(meter, sqlDB)
	if err != nil {
		return nil, fmt.Errorf("failed to register pool metrics: %w", err)
	}
	a.closers = append(a.closers, reg.Unregister)
	return recorder, nil
}

// alertNotifier publishes to Kafka behind a circuit breaker, or logs
func (a *application) alertNotifier() appinventory.StockAlertNotifier {
	if !a.cfg.Kafka.Enabled {
		return appinventory.NewLoggingStockAlertNotifier(a.logger)
	}
	writer := messaging.NewWriter(a.cfg.Kafka)
	a.closers = append(a.closers, writer.Close)
	a.logger.Info("Publishing stock alerts to Kafka",
		zap.Strings("brokers", a.cfg.Kafka.Brokers),
		zap.String("topic", a.cfg.Kafka.Topic),
	)
	kafkaNotifier := messaging.NewKafkaAlertNotifier(writer, a.logger)
	return messaging.NewBreakerNotifier("kafka-alerts", kafkaNotifier, a.cfg.Breaker, a.logger)
}

// Close releases everything newApplication opened, newest first
func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if a.dedup != nil {
		errs = append(errs, a.dedup.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	errs = append(errs, a.telemetry.Shutdown(ctx))
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
