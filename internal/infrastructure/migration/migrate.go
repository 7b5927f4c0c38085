package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/erp/stockledger/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator applies the ledger schema with golang-migrate
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// Option configures where migrations are read from
type Option func(*options)

type options struct {
	dir    string
	source fs.FS
}

// FromDirectory reads migrations from a directory on disk instead of the
// copy embedded in the binary
func FromDirectory(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// FromFS reads migrations from fsys
func FromFS(fsys fs.FS) Option {
	return func(o *options) { o.source = fsys }
}

// New creates a Migrator on an open postgres connection
func New(db *sql.DB, logger *zap.Logger, opts ...Option) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}
	return newMigrator(logger, opts, func(src source.Driver, sourceURL string) (*migrate.Migrate, error) {
		if src != nil {
			return migrate.NewWithInstance("iofs", src, "postgres", driver)
		}
		return migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	})
}

// NewFromURL creates a Migrator from a database URL
func NewFromURL(databaseURL string, logger *zap.Logger, opts ...Option) (*Migrator, error) {
	return newMigrator(logger, opts, func(src source.Driver, sourceURL string) (*migrate.Migrate, error) {
		if src != nil {
			return migrate.NewWithSourceInstance("iofs", src, databaseURL)
		}
		return migrate.New(sourceURL, databaseURL)
	})
}

// newMigrator resolves the migration source; open receives either a source
// driver or a source URL
func newMigrator(logger *zap.Logger, opts []Option, open func(source.Driver, string) (*migrate.Migrate, error)) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{source: migrations.FS}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		m   *migrate.Migrate
		err error
	)
	if o.dir != "" {
		m, err = open(nil, "file://"+o.dir)
	} else {
		var src source.Driver
		src, err = iofs.New(o.source, ".")
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
		}
		m, err = open(src, "")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return &Migrator{migrate: m, logger: logger}, nil
}

// Up runs all pending migrations
func (m *Migrator) Up() error {
	m.logger.Info("Running migrations up")
	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("Schema is up to date")
			return nil
		}
		return fmt.Errorf("migration up failed: %w", err)
	}
	return m.logVersion("Migrations completed")
}

// Down rolls back every migration
func (m *Migrator) Down() error {
	m.logger.Warn("Rolling back all migrations")
	if err := m.migrate.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Steps applies n migrations; a negative n rolls back
func (m *Migrator) Steps(n int) error {
	m.logger.Info("Running migration steps", zap.Int("steps", n))
	if err := m.migrate.Steps(n); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migration steps failed: %w", err)
	}
	return m.logVersion("Migration steps completed")
}

// Version returns the applied version; zero when nothing was applied
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied without running it. It clears a dirty
// state left by a failed migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and the database driver
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}

func (m *Migrator) logVersion(msg string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
