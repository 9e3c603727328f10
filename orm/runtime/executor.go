package runtime

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned by FetchOne when the query matched no rows.
	ErrNotFound = errors.New("runtime: no rows in result")
	// ErrNonUniqueResult is returned by FetchOne when the query matched more than one row.
	ErrNonUniqueResult = errors.New("runtime: query returned more than one row")
)

// Executor runs statements on behalf of queries. The operation and table are
// used for observation only.
type Executor interface {
	Query(ctx context.Context, op QueryOperation, table, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, op QueryOperation, table, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, op QueryOperation, table, sql string, args ...any) (pgconn.CommandTag, error)
}

// IdentityMap is implemented by executors that keep one instance per entity
// key. Attach returns the instance already tracked under key, or tracks and
// returns entity when none is.
type IdentityMap interface {
	Attach(ctx context.Context, key string, entity any) (any, error)
}

// EntityKeyer is implemented by entity projections so that fetched entities
// pass through the executor's IdentityMap.
type EntityKeyer interface {
	EntityKey(entity any) (string, bool)
}

func attachEntity[T any](ctx context.Context, exec Executor, proj Projection[T], item T) (T, error) {
	keyer, ok := proj.(EntityKeyer)
	if !ok {
		return item, nil
	}
	idmap, ok := exec.(IdentityMap)
	if !ok {
		return item, nil
	}
	key, ok := keyer.EntityKey(item)
	if !ok {
		return item, nil
	}
	tracked, err := idmap.Attach(ctx, key, item)
	if err != nil {
		return item, err
	}
	if typed, ok := tracked.(T); ok {
		return typed, nil
	}
	return item, nil
}
