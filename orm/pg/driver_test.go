package pg

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/deicod/querystudy/observability/tracing"
	"github.com/deicod/querystudy/orm/runtime"
)

type captureLogger struct {
	mu      sync.Mutex
	entries []runtime.QueryLog
}

func (l *captureLogger) LogQuery(_ context.Context, entry runtime.QueryLog) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func newMockDB(t *testing.T) (*DB, pgxmock.PgxPoolIface, *captureLogger) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
	})
	logger := &captureLogger{}
	db := New(mock)
	db.UseObserver(runtime.QueryObserver{Logger: logger})
	return db, mock, logger
}

func TestDBObservesStatements(t *testing.T) {
	db, mock, logger := newMockDB(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT m.age FROM members AS m").
		WillReturnRows(mock.NewRows([]string{"age"}).AddRow(10))
	mock.ExpectQuery("SELECT COUNT(*) FROM members AS m").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(int64(4)))
	mock.ExpectExec("DELETE FROM members AS m WHERE m.age > $1").WithArgs(18).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	rows, err := db.Query(ctx, runtime.OperationSelect, "members", "SELECT m.age FROM members AS m")
	require.NoError(t, err)
	rows.Close()

	var total int64
	require.NoError(t, db.QueryRow(ctx, runtime.OperationAggregate, "members", "SELECT COUNT(*) FROM members AS m").Scan(&total))
	require.EqualValues(t, 4, total)

	tag, err := db.Exec(ctx, runtime.OperationDelete, "members", "DELETE FROM members AS m WHERE m.age > $1", 18)
	require.NoError(t, err)
	require.EqualValues(t, 2, tag.RowsAffected())

	require.Len(t, logger.entries, 3)
	require.Equal(t, runtime.OperationSelect, logger.entries[0].Operation)
	require.Equal(t, runtime.OperationAggregate, logger.entries[1].Operation)
	require.Equal(t, []any{18}, logger.entries[2].Args)
	for _, entry := range logger.entries {
		require.Equal(t, "members", entry.Table)
		require.NoError(t, entry.Err)
		require.Positive(t, entry.Duration)
	}
}

func TestDBRecordsScanErrors(t *testing.T) {
	db, mock, logger := newMockDB(t)
	boom := errors.New("relation does not exist")
	mock.ExpectQuery("SELECT COUNT(*) FROM missing").WillReturnError(boom)

	var total int64
	err := db.QueryRow(context.Background(), runtime.OperationAggregate, "missing", "SELECT COUNT(*) FROM missing").Scan(&total)
	require.ErrorIs(t, err, boom)
	require.Len(t, logger.entries, 1)
	require.ErrorIs(t, logger.entries[0].Err, boom)
}

func TestInTxCommitsOnSuccess(t *testing.T) {
	db, mock, _ := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE members AS m SET age = (m.age + $1)").WithArgs(1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))
	mock.ExpectCommit()

	err := db.InTx(context.Background(), func(tx *Tx) error {
		_, err := tx.Exec(context.Background(), runtime.OperationUpdate, "members", "UPDATE members AS m SET age = (m.age + $1)", 1)
		return err
	})
	require.NoError(t, err)
}

func TestInTxRollsBackOnError(t *testing.T) {
	db, mock, _ := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	failure := errors.New("abort")
	err := db.InTx(context.Background(), func(*Tx) error { return failure })
	require.ErrorIs(t, err, failure)
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	db, mock, _ := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	require.Panics(t, func() {
		_ = db.InTx(context.Background(), func(*Tx) error { panic("boom") })
	})
}

func TestUnconfiguredDB(t *testing.T) {
	var db DB
	_, err := db.Query(context.Background(), runtime.OperationSelect, "members", "SELECT 1")
	require.Error(t, err)
	require.Error(t, db.QueryRow(context.Background(), runtime.OperationSelect, "members", "SELECT 1").Scan())
	_, err = db.Begin(context.Background())
	require.Error(t, err)
	require.Error(t, db.Ping(context.Background()))
}

func TestPoolConfigOptions(t *testing.T) {
	cfg, err := newPoolConfig("postgres://localhost:5432/querystudy",
		WithMaxConns(20),
		WithPoolConfig(PoolConfig{MinConns: 4, MaxConnIdleTime: time.Minute}),
		nil,
	)
	require.NoError(t, err)
	require.EqualValues(t, 20, cfg.MaxConns)
	require.EqualValues(t, 4, cfg.MinConns)
	require.Equal(t, time.Hour, cfg.MaxConnLifetime)
	require.Equal(t, time.Minute, cfg.MaxConnIdleTime)

	_, err = newPoolConfig("not a url ::")
	require.Error(t, err)
}

func TestTracerOptionsChain(t *testing.T) {
	cfg, err := newPoolConfig("postgres://localhost:5432/querystudy",
		WithTracer(tracing.NoopTracer{}),
		WithQueryLog(zerolog.Nop(), zerolog.DebugLevel),
		WithTracer(nil),
	)
	require.NoError(t, err)
	chained, ok := cfg.ConnConfig.Tracer.(multiTracer)
	require.True(t, ok, "expected chained tracers, got %T", cfg.ConnConfig.Tracer)
	require.Len(t, chained, 2)
	require.IsType(t, &pgxTracer{}, chained[0])
	require.IsType(t, &tracelog.TraceLog{}, chained[1])
}

func TestTraceLogLevel(t *testing.T) {
	require.Equal(t, tracelog.LogLevelDebug, TraceLogLevel(zerolog.DebugLevel))
	require.Equal(t, tracelog.LogLevelInfo, TraceLogLevel(zerolog.InfoLevel))
	require.Equal(t, tracelog.LogLevelError, TraceLogLevel(zerolog.FatalLevel))
	require.Equal(t, tracelog.LogLevelNone, TraceLogLevel(zerolog.Disabled))
}
