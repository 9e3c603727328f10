package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/deicod/querystudy/orm/runtime"
)

// Tx is an open transaction. It implements runtime.Executor.
type Tx struct {
	tx       pgx.Tx
	observer runtime.QueryObserver
}

var _ runtime.Executor = (*Tx)(nil)

func (t *Tx) Query(ctx context.Context, op runtime.QueryOperation, table, sql string, args ...any) (pgx.Rows, error) {
	return observedQuery(ctx, t.observer, t.tx, op, table, sql, args)
}

func (t *Tx) QueryRow(ctx context.Context, op runtime.QueryOperation, table, sql string, args ...any) pgx.Row {
	return observedQueryRow(ctx, t.observer, t.tx, op, table, sql, args)
}

func (t *Tx) Exec(ctx context.Context, op runtime.QueryOperation, table, sql string, args ...any) (pgconn.CommandTag, error) {
	return observedExec(ctx, t.observer, t.tx, op, table, sql, args)
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("pg: commit: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Rolling back a finished transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("pg: rollback: %w", err)
	}
	return nil
}
