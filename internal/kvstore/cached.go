package kvstore

import (
	"context"
	"errors"
	"sync"
)

type cachedStore struct {
	backing Store

	mu    sync.RWMutex
	cache map[string][]byte
}

// NewCached wraps backing with a write-through in-process read cache.
// Only safe when this process is the single writer of the backing store.
func NewCached(backing Store) Store {
	return &cachedStore{backing: backing, cache: make(map[string][]byte)}
}

func (s *cachedStore) Read(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	value, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		if value == nil {
			return nil, ErrNotFound
		}
		return clone(value), nil
	}

	value, err := s.backing.Read(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		s.store(key, nil)
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	s.store(key, value)
	return clone(value), nil
}

func (s *cachedStore) Write(ctx context.Context, key string, value []byte) error {
	if err := s.backing.Write(ctx, key, value); err != nil {
		s.invalidate(key)
		return err
	}
	s.store(key, value)
	return nil
}

func (s *cachedStore) Remove(ctx context.Context, key string) error {
	if err := s.backing.Remove(ctx, key); err != nil {
		s.invalidate(key)
		return err
	}
	s.store(key, nil)
	return nil
}

func (s *cachedStore) WriteBatch(ctx context.Context, entries []Entry) error {
	if err := s.backing.WriteBatch(ctx, entries); err != nil {
		for _, e := range entries {
			s.invalidate(e.Key)
		}
		return err
	}
	for _, e := range entries {
		s.store(e.Key, e.Value)
	}
	return nil
}

// store records value for key; a nil value caches the key as absent.
func (s *cachedStore) store(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		s.cache[key] = nil
		return
	}
	s.cache[key] = clone(value)
}

func (s *cachedStore) invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, key)
}
