package runtime

import (
	"sync"

	"github.com/jackc/pgx/v5"
)

// Stream yields query results one row at a time.
type Stream[T any] struct {
	rows   pgx.Rows
	scan   func(pgx.Rows) (T, error)
	once   sync.Once
	err    error
	closed bool
	item   T
}

// NewStream wraps rows, decoding each one with scan.
func NewStream[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) *Stream[T] {
	return &Stream[T]{rows: rows, scan: scan}
}

// Next advances to the next item. It returns false at the end of the rows or
// on the first error, closing the underlying rows either way.
func (s *Stream[T]) Next() bool {
	if s == nil || s.closed || s.err != nil {
		return false
	}
	if !s.rows.Next() {
		s.fail(s.rows.Err())
		return false
	}
	item, err := s.scan(s.rows)
	if err != nil {
		s.fail(err)
		return false
	}
	s.item = item
	return true
}

func (s *Stream[T]) fail(err error) {
	s.err = err
	s.Close()
	var zero T
	s.item = zero
}

// Item returns the current item.
func (s *Stream[T]) Item() T {
	if s == nil {
		var zero T
		return zero
	}
	return s.item
}

// Err returns the error that stopped iteration, if any.
func (s *Stream[T]) Err() error {
	if s == nil {
		return nil
	}
	return s.err
}

// Close releases the rows. It is safe to call more than once.
func (s *Stream[T]) Close() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		s.closed = true
		if s.rows != nil {
			s.rows.Close()
		}
	})
	return s.err
}

// Collect drains the stream into a slice and closes it.
func (s *Stream[T]) Collect() ([]T, error) {
	defer s.Close()
	var out []T
	for s.Next() {
		out = append(out, s.Item())
	}
	return out, s.Err()
}
