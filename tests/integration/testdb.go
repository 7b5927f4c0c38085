// Package integration runs the ledger against a real PostgreSQL started with
// testcontainers. The tests are skipped in short mode.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/migration"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	gormlogger "gorm.io/gorm/logger"
)

// TestDB is a migrated database in its own container
type TestDB struct {
	*persistence.Database
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts a fresh PostgreSQL container and applies the embedded
// migrations to it
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stockledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("ledger123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	m, err := migration.New(sqlDB, zaptest.NewLogger(t))
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")

	opts := persistence.Options{}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		opts.Logger = zaptest.NewLogger(t)
		opts.LogLevel = gormlogger.Info
	}
	db, err := persistence.Open(gormpostgres.Open(dsn), opts)
	require.NoError(t, err, "Failed to connect to database")

	pool, err := db.DB.DB()
	require.NoError(t, err)
	pool.SetMaxOpenConns(10)
	pool.SetMaxIdleConns(2)

	tdb := &TestDB{Database: db, SqlDB: sqlDB, Container: container, DSN: dsn, t: t}
	t.Cleanup(tdb.Close)
	return tdb
}

// Close closes both connections and terminates the container
func (tdb *TestDB) Close() {
	_ = tdb.Database.Close()
	_ = tdb.SqlDB.Close()
	if err := tdb.Container.Terminate(context.Background()); err != nil {
		tdb.t.Logf("Warning: Failed to terminate container: %v", err)
	}
}

// Migrator returns a migrator on the test database for schema tests
func (tdb *TestDB) Migrator() *migration.Migrator {
	tdb.t.Helper()
	m, err := migration.New(tdb.SqlDB, zaptest.NewLogger(tdb.t))
	require.NoError(tdb.t, err)
	return m
}

// CountRows returns the number of rows in table
func (tdb *TestDB) CountRows(table string) int64 {
	tdb.t.Helper()
	var n int64
	require.NoError(tdb.t, tdb.DB.Raw(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n).Error)
	return n
}
