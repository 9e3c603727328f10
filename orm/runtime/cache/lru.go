package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUStore is a Store bounded to a fixed number of entries. The least
// recently used entry is evicted first.
type LRUStore struct {
	cache *lru.Cache[string, any]
}

// NewLRU returns an LRUStore holding at most size entries.
func NewLRU(size int) (*LRUStore, error) {
	c, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("cache: new lru: %w", err)
	}
	return &LRUStore{cache: c}, nil
}

func (s *LRUStore) Get(_ context.Context, key string) (any, bool, error) {
	v, ok := s.cache.Get(key)
	return v, ok, nil
}

func (s *LRUStore) Set(_ context.Context, key string, value any) error {
	s.cache.Add(key, value)
	return nil
}

func (s *LRUStore) Delete(_ context.Context, key string) error {
	s.cache.Remove(key)
	return nil
}

func (s *LRUStore) Purge(context.Context) error {
	s.cache.Purge()
	return nil
}

// Len reports the number of cached values.
func (s *LRUStore) Len() int { return s.cache.Len() }
