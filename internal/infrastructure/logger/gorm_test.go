package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)
	changed, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Info, gl.logLevel)
	assert.Equal(t, gormlogger.Warn, changed.logLevel)
}

func TestGormLogger_Trace(t *testing.T) {
	fc := func() (string, int64) { return "SELECT * FROM variants", 1 }

	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		begin     time.Time
		err       error
		wantMsg   string
		wantLevel zapcore.Level
		wantNone  bool
	}{
		{"query at info", gormlogger.Info, time.Now(), nil, "sql", zapcore.DebugLevel, false},
		{"error", gormlogger.Error, time.Now(), errors.New("boom"), "sql error", zapcore.ErrorLevel, false},
		{"not found ignored", gormlogger.Error, time.Now(), gormlogger.ErrRecordNotFound, "", 0, true},
		{"slow query", gormlogger.Warn, time.Now().Add(-time.Second), nil, "slow sql", zapcore.WarnLevel, false},
		{"silent", gormlogger.Silent, time.Now(), errors.New("boom"), "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl, recorded := newObservedGormLogger(tt.level)
			ctx := WithOperation(context.Background(), "cancel_order")
			ctx = WithVariant(ctx, "7d1c0f3e-2b6a-4f59-8e0d-5a4b3c2d1e0f")
			ctx = WithOrderRef(ctx, "SO-1")
			gl.Trace(ctx, tt.begin, fc, tt.err)

			if tt.wantNone {
				assert.Zero(t, recorded.Len())
				return
			}
			require.Equal(t, 1, recorded.Len())
			entry := recorded.All()[0]
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, tt.wantLevel, entry.Level)
			fields := entry.ContextMap()
			assert.Equal(t, "cancel_order", fields["operation"])
			assert.Equal(t, "7d1c0f3e-2b6a-4f59-8e0d-5a4b3c2d1e0f", fields["variant_id"])
			assert.Equal(t, "SO-1", fields["order_ref"])
			assert.Equal(t, "SELECT", fields["statement"])
			assert.Equal(t, "SELECT * FROM variants", fields["sql"])
		})
	}
}

func TestGormLogger_NotFoundLoggedWhenConfigured(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Error, WithIgnoreRecordNotFoundError(false))
	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 1, recorded.Len())
}

func TestStatementKind(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{`UPDATE "variants" SET "version"=2`, "UPDATE"},
		{"  insert into movements values (1)", "INSERT"},
		{"SELECT", "SELECT"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, statementKind(tt.sql))
		})
	}
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("other"))
}
