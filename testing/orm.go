package testkit

import (
	stdtesting "testing"

	"github.com/deicod/querystudy/orm/gen"
	"github.com/deicod/querystudy/orm/pg"
)

// Client is the entity client handed out by sandboxes.
type Client = gen.Client

// NewORMClient constructs an entity client backed by db.
func NewORMClient(tb stdtesting.TB, db *pg.DB) *gen.Client {
	tb.Helper()
	if db == nil {
		tb.Fatalf("pg.DB is required")
	}
	return gen.NewClient(db)
}

// ORM lazily constructs and memoises the entity client for the sandbox.
func (s *Sandbox) ORM(tb stdtesting.TB) *gen.Client {
	tb.Helper()
	if s == nil {
		tb.Fatalf("sandbox is nil")
	}
	if s.db == nil {
		tb.Fatalf("sandbox database is not initialised")
	}
	if s.orm == nil {
		s.orm = NewORMClient(tb, s.db)
	}
	return s.orm
}
