// Package gen holds the entity layer of the study schema: models, query
// paths and typed clients for teams and members.
package gen

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/deicod/querystudy/orm/pg"
	"github.com/deicod/querystudy/orm/runtime"
	"github.com/deicod/querystudy/orm/runtime/cache"
)

// Client routes statements to an executor and keeps an identity map of the
// entities it has loaded or saved. Within one client, two reads of the same
// row return the same instance until Clear is called. Bulk statements write
// past the identity map.
type Client struct {
	exec  runtime.Executor
	store cache.Store
	opts  []ClientOption
}

var (
	_ runtime.Executor    = (*Client)(nil)
	_ runtime.IdentityMap = (*Client)(nil)
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithStore replaces the identity map store. cache.Nop disables tracking.
func WithStore(store cache.Store) ClientOption {
	return func(c *Client) {
		if store != nil {
			c.store = store
		}
	}
}

// WithIdentityMapSize bounds the identity map to n entities, evicting the
// least recently used. Each client gets its own map. It panics when n is not
// positive.
func WithIdentityMapSize(n int) ClientOption {
	if n <= 0 {
		panic(fmt.Sprintf("gen: identity map size must be positive, got %d", n))
	}
	return func(c *Client) {
		store, err := cache.NewLRU(n)
		if err != nil {
			panic(err)
		}
		c.store = store
	}
}

// NewClient builds a client over exec, usually a *pg.DB.
func NewClient(exec runtime.Executor, opts ...ClientOption) *Client {
	c := &Client{exec: exec, store: cache.NewMap(), opts: opts}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Members returns the member client.
func (c *Client) Members() *MemberClient { return &MemberClient{client: c} }

// Teams returns the team client.
func (c *Client) Teams() *TeamClient { return &TeamClient{client: c} }

func (c *Client) Query(ctx context.Context, op runtime.QueryOperation, table, sql string, args ...any) (pgx.Rows, error) {
	return c.exec.Query(ctx, op, table, sql, args...)
}

func (c *Client) QueryRow(ctx context.Context, op runtime.QueryOperation, table, sql string, args ...any) pgx.Row {
	return c.exec.QueryRow(ctx, op, table, sql, args...)
}

func (c *Client) Exec(ctx context.Context, op runtime.QueryOperation, table, sql string, args ...any) (pgconn.CommandTag, error) {
	return c.exec.Exec(ctx, op, table, sql, args...)
}

// Attach implements runtime.IdentityMap.
func (c *Client) Attach(ctx context.Context, key string, entity any) (any, error) {
	tracked, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return entity, err
	}
	if ok {
		return tracked, nil
	}
	return entity, c.store.Set(ctx, key, entity)
}

func (c *Client) lookup(ctx context.Context, key string) (any, bool) {
	v, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	return v, ok
}

func (c *Client) track(ctx context.Context, key string, entity any) error {
	return c.store.Set(ctx, key, entity)
}

func (c *Client) forget(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// Clear detaches every tracked entity, so the next read reloads from the
// database.
func (c *Client) Clear(ctx context.Context) error {
	return c.store.Purge(ctx)
}

type txRunner interface {
	InTx(ctx context.Context, fn func(*pg.Tx) error) error
}

// WithTx returns a client bound to tx with the options of c. A size-bounded
// identity map starts empty; a store passed to WithStore is shared.
func (c *Client) WithTx(tx *pg.Tx) *Client {
	return NewClient(tx, c.opts...)
}

// InTx runs fn with a client bound to a new transaction, configured as WithTx
// does.
func (c *Client) InTx(ctx context.Context, fn func(*Client) error) error {
	runner, ok := c.exec.(txRunner)
	if !ok {
		return errors.New("gen: executor does not support transactions")
	}
	return runner.InTx(ctx, func(tx *pg.Tx) error {
		return fn(c.WithTx(tx))
	})
}
