package memory

import (
	"context"
	"sync"

	"github.com/adeilh/marketcache/storage"
)

// Store is an in-process storage.Storage. It stands in for a browser's local
// storage in tests and single-process deployments.
type Store struct {
	mu    sync.RWMutex
	items map[string]string
	used  int
	quota int
}

type Option func(*Store)

// WithQuota caps the number of bytes (key plus value) the store will hold.
// Zero or negative means unlimited.
func WithQuota(bytes int) Option {
	return func(s *Store) {
		if bytes > 0 {
			s.quota = bytes
		}
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{items: make(map[string]string)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) GetItem(ctx context.Context, key string) (string, error) {
	if err := storage.CtxErr(ctx); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (s *Store) SetItem(ctx context.Context, key, value string) error {
	if err := storage.CtxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	used := s.used + len(key) + len(value)
	if prev, ok := s.items[key]; ok {
		used -= len(key) + len(prev)
	}
	if s.quota > 0 && used > s.quota {
		return storage.ErrQuotaExceeded
	}
	s.items[key] = value
	s.used = used
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if err := storage.CtxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.items[key]; ok {
		s.used -= len(key) + len(prev)
		delete(s.items, key)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := storage.CtxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	if err := storage.CtxErr(ctx); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

var _ storage.Storage = (*Store)(nil)
