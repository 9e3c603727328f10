package testkit

import (
	"context"
	stdtesting "testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/deicod/querystudy/orm/pg"
)

// Sandbox pairs a mocked pgx pool with a cancellable context for tests.
type Sandbox struct {
	ctx    context.Context
	cancel context.CancelFunc
	mock   pgxmock.PgxPoolIface
	db     *pg.DB
	orm    *Client
}

// NewPostgresSandbox returns a sandbox backed by pgxmock with QueryMatcherEqual semantics.
//
// Configure expectations through Mock and obtain a client through ORM.
func NewPostgresSandbox(tb stdtesting.TB) *Sandbox {
	tb.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	if err != nil {
		cancel()
		tb.Fatalf("pgxmock.NewPool: %v", err)
	}
	sandbox := &Sandbox{
		ctx:    ctx,
		cancel: cancel,
		mock:   mock,
		db:     pg.New(mock),
	}
	tb.Cleanup(sandbox.Close)
	return sandbox
}

// Context returns the sandbox context.
func (s *Sandbox) Context() context.Context {
	if s == nil {
		return context.Background()
	}
	return s.ctx
}

// Mock exposes the pgxmock pool for expectation management.
func (s *Sandbox) Mock() pgxmock.PgxPoolIface {
	if s == nil {
		return nil
	}
	return s.mock
}

// DB returns the pg.DB bound to the sandbox pool.
func (s *Sandbox) DB() *pg.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Close releases sandbox resources. The registered cleanup calls it.
func (s *Sandbox) Close() {
	if s == nil {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.mock != nil {
		s.mock.Close()
	}
}

// ExpectationsWereMet fails tb if pgxmock expectations remain.
func (s *Sandbox) ExpectationsWereMet(tb stdtesting.TB) {
	if s == nil {
		return
	}
	tb.Helper()
	if err := s.mock.ExpectationsWereMet(); err != nil {
		tb.Fatalf("pgx expectations: %v", err)
	}
}
