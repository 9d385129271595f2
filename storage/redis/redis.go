package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/adeilh/marketcache/storage"
)

// Store implements storage.Storage on top of a single Redis logical
// database. Values are written without a server-side TTL; expiry is tracked
// inside the stored value by the cache layer.
type Store struct {
	opts   Options
	client goredis.UniversalClient
}

// NewStore builds a Redis-backed storage partition.
func NewStore(opts Options) *Store {
	cfg := opts.withDefaults()
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})
	return &Store{opts: cfg, client: client}
}

// NewStoreWithClient wraps an existing client (useful for tests/mocks).
func NewStoreWithClient(client goredis.UniversalClient, opts Options) *Store {
	return &Store{opts: opts.withDefaults(), client: client}
}

// Ping checks that the server answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) GetItem(ctx context.Context, key string) (string, error) {
	if err := storage.CtxErr(ctx); err != nil {
		return "", err
	}
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: GET %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) SetItem(ctx context.Context, key, value string) error {
	if err := storage.CtxErr(ctx); err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return translateError("SET", err)
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if err := storage.CtxErr(ctx); err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: DEL %s: %w", key, err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := storage.CtxErr(ctx); err != nil {
		return nil, err
	}
	var keys []string
	iter := s.client.Scan(ctx, 0, "*", s.opts.ScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis: SCAN: %w", err)
	}
	return keys, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	if err := storage.CtxErr(ctx); err != nil {
		return 0, err
	}
	n, err := s.client.DBSize(ctx).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: DBSIZE: %w", err)
	}
	return int(n), nil
}

// translateError maps maxmemory rejections onto storage.ErrQuotaExceeded.
func translateError(cmd string, err error) error {
	if strings.HasPrefix(err.Error(), "OOM ") {
		return fmt.Errorf("redis: %s: %w: %v", cmd, storage.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("redis: %s: %w", cmd, err)
}

var _ storage.Storage = (*Store)(nil)
