package cache

import (
	"context"
	"sync"
)

// Store defines the caching contract consumed by the ORM client. The client
// uses it as its identity map: one tracked instance per entity key.
type Store interface {
	// Get retrieves a cached value by key. The boolean result indicates presence.
	Get(ctx context.Context, key string) (any, bool, error)
	// Set associates a value with the provided key.
	Set(ctx context.Context, key string, value any) error
	// Delete removes the value for the provided key.
	Delete(ctx context.Context, key string) error
	// Purge drops every cached value.
	Purge(ctx context.Context) error
}

// nopStore is a Store implementation that never caches values.
type nopStore struct{}

// Nop returns a Store that disables caching. A client backed by it hands out
// a fresh instance for every fetched row.
func Nop() Store {
	return nopStore{}
}

func (nopStore) Get(context.Context, string) (any, bool, error) { return nil, false, nil }

func (nopStore) Set(context.Context, string, any) error { return nil }

func (nopStore) Delete(context.Context, string) error { return nil }

func (nopStore) Purge(context.Context) error { return nil }

// MapStore is an unbounded, goroutine-safe Store.
type MapStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMap returns an empty MapStore.
func NewMap() *MapStore {
	return &MapStore{values: make(map[string]any)}
}

func (s *MapStore) Get(_ context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MapStore) Set(_ context.Context, key string, value any) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MapStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

func (s *MapStore) Purge(context.Context) error {
	s.mu.Lock()
	s.values = make(map[string]any)
	s.mu.Unlock()
	return nil
}

// Len reports the number of cached values.
func (s *MapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
