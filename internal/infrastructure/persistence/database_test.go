package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
)

// newMockDatabase creates a Database instance with a mocked postgres connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), Options{})
	require.NoError(t, err)

	return db, mock, mockDB
}

// TestDatabase_Stats tests the Stats method
func TestDatabase_Stats(t *testing.T) {
	t.Run("returns ConnectionStats from underlying DB", func(t *testing.T) {
		db, _, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		stats, err := db.Stats()

		assert.NoError(t, err)
		assert.IsType(t, ConnectionStats{}, stats)
		assert.Equal(t, time.Duration(0), stats.WaitDuration)
	})
}

// TestDatabase_Ping tests the Ping method
func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()

	assert.NoError(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestDatabase_Close tests the Close method
func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTransactionScope(t *testing.T) {
	t.Run("commits when fn succeeds", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := NewGormTransactionScope(db.DB).Execute(context.Background(), func(repos appinv.TransactionalRepositories) error {
			assert.NotNil(t, repos.VariantRepo())
			assert.NotNil(t, repos.ProductRepo())
			assert.NotNil(t, repos.MovementRepo())
			return nil
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := NewGormTransactionScope(db.DB).Execute(context.Background(), func(appinv.TransactionalRepositories) error {
			return shared.ErrConcurrencyConflict
		})

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormVariantRepository_SaveWithLock_SQL(t *testing.T) {
	newVariant := func(t *testing.T) *inventory.Variant {
		v, err := inventory.NewVariant(uuid.New(), "W-RED", num("25"), num("10"))
		require.NoError(t, err)
		v.IncrementVersion()
		return v
	}

	t.Run("updates only the expected version", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		v := newVariant(t)

		mock.ExpectExec(`UPDATE "variants" SET .+ WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, NewGormVariantRepository(db.DB).SaveWithLock(context.Background(), v))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row matched is a conflict", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		v := newVariant(t)

		mock.ExpectExec(`UPDATE "variants" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewGormVariantRepository(db.DB).SaveWithLock(context.Background(), v)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormVariantRepository_FindByIDForUpdate_SQL(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM "variants" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewGormVariantRepository(db.DB).FindByIDForUpdate(context.Background(), id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDemandRepository_MarkOrderCancelled_SQL(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectExec(`UPDATE "demand_transactions" SET "cancelled"=\$1 WHERE order_ref = \$2 AND cancelled = \$3`).
		WithArgs(true, "SO-9", false).
		WillReturnResult(sqlmock.NewResult(0, 3))

	assert.NoError(t, NewGormDemandRepository(db.DB).MarkOrderCancelled(context.Background(), "SO-9"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
