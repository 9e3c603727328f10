package pg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deicod/querystudy/orm/runtime"
)

// Pool exposes the subset of pgxpool behaviour the ORM relies on.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// queryer is satisfied by both pools and transactions.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DB wraps a pool and observes every statement routed through it. It
// implements runtime.Executor.
type DB struct {
	Pool     Pool
	Observer runtime.QueryObserver
}

var _ runtime.Executor = (*DB)(nil)

// PoolConfig describes connection pool tuning knobs exposed via configuration.
type PoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// Option configures pgx connections.
type Option func(*pgxpool.Config)

// Connect opens a pgx pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string, opts ...Option) (*DB, error) {
	cfg, err := newPoolConfig(url, opts...)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool Pool) *DB {
	return &DB{Pool: pool}
}

// Close releases the pool.
func (db *DB) Close() {
	if db == nil || db.Pool == nil {
		return
	}
	db.Pool.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return errors.New("pg: database not configured")
	}
	return db.Pool.Ping(ctx)
}

// UseObserver attaches a query observer to the database handle.
func (db *DB) UseObserver(observer runtime.QueryObserver) {
	if db == nil {
		return
	}
	db.Observer = observer
}

func (db *DB) Query(ctx context.Context, op runtime.QueryOperation, table, sql string, args ...any) (pgx.Rows, error) {
	return observedQuery(ctx, db.Observer, db.Pool, op, table, sql, args)
}

func (db *DB) QueryRow(ctx context.Context, op runtime.QueryOperation, table, sql string, args ...any) pgx.Row {
	return observedQueryRow(ctx, db.Observer, db.Pool, op, table, sql, args)
}

func (db *DB) Exec(ctx context.Context, op runtime.QueryOperation, table, sql string, args ...any) (pgconn.CommandTag, error) {
	return observedExec(ctx, db.Observer, db.Pool, op, table, sql, args)
}

// Begin starts a transaction whose statements share the database observer.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	if db == nil || db.Pool == nil {
		return nil, errors.New("pg: database not configured")
	}
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg: begin: %w", err)
	}
	return &Tx{tx: tx, observer: db.Observer}, nil
}

// InTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise.
func (db *DB) InTx(ctx context.Context, fn func(*Tx) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
			return
		}
		err = tx.Commit(ctx)
	}()
	return fn(tx)
}

func observedQuery(ctx context.Context, observer runtime.QueryObserver, q queryer, op runtime.QueryOperation, table, sql string, args []any) (pgx.Rows, error) {
	obs := observer.Observe(ctx, op, table, sql, args)
	if q == nil {
		err := errors.New("pg: database not configured")
		obs.End(err)
		return nil, err
	}
	rows, err := q.Query(obs.Context(), sql, args...)
	obs.End(err)
	return rows, err
}

func observedQueryRow(ctx context.Context, observer runtime.QueryObserver, q queryer, op runtime.QueryOperation, table, sql string, args []any) pgx.Row {
	obs := observer.Observe(ctx, op, table, sql, args)
	if q == nil {
		return &observedRow{obs: obs, err: errors.New("pg: database not configured")}
	}
	return &observedRow{Row: q.QueryRow(obs.Context(), sql, args...), obs: obs}
}

func observedExec(ctx context.Context, observer runtime.QueryObserver, q queryer, op runtime.QueryOperation, table, sql string, args []any) (pgconn.CommandTag, error) {
	obs := observer.Observe(ctx, op, table, sql, args)
	if q == nil {
		err := errors.New("pg: database not configured")
		obs.End(err)
		return pgconn.CommandTag{}, err
	}
	tag, err := q.Exec(obs.Context(), sql, args...)
	obs.End(err)
	return tag, err
}

// observedRow ends its observation once the row has been scanned, since
// QueryRow defers all errors to Scan.
type observedRow struct {
	pgx.Row
	obs  runtime.QueryObservation
	err  error
	once sync.Once
}

func (r *observedRow) Scan(dest ...any) error {
	err := r.err
	if err == nil {
		err = r.Row.Scan(dest...)
	}
	r.once.Do(func() { r.obs.End(err) })
	return err
}

func newPoolConfig(url string, opts ...Option) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("pg: parse config: %w", err)
	}
	applyDefaults(cfg)
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg, nil
}

func applyDefaults(cfg *pgxpool.Config) {
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
}

// WithMaxConns sets the maximum pool size.
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) { cfg.MaxConns = n }
}

// WithMinConns sets the minimum pool size.
func WithMinConns(n int32) Option {
	return func(cfg *pgxpool.Config) { cfg.MinConns = n }
}

// WithPoolConfig applies the non-zero settings of pc.
func WithPoolConfig(pc PoolConfig) Option {
	return func(cfg *pgxpool.Config) {
		if pc.MaxConns > 0 {
			cfg.MaxConns = pc.MaxConns
		}
		if pc.MinConns > 0 {
			cfg.MinConns = pc.MinConns
		}
		if pc.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pc.MaxConnLifetime
		}
		if pc.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pc.MaxConnIdleTime
		}
		if pc.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pc.HealthCheckPeriod
		}
	}
}
