package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/adeilh/marketcache/storage"
)

// Storage persists a storage partition inside the web_storage table. Every
// row is one key; the cache layer keeps expiry inside the value.
type Storage struct {
	db *sql.DB
}

// NewStorage wraps an existing *sql.DB connection. Run Migrate first.
func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) GetItem(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM web_storage WHERE key = $1`
	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", translateError("get item", err)
	}
	return value, nil
}

func (s *Storage) SetItem(ctx context.Context, key, value string) error {
	const query = `INSERT INTO web_storage (key, value, updated_at) VALUES ($1, $2, now())
                   ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return translateError("set item", err)
	}
	return nil
}

func (s *Storage) RemoveItem(ctx context.Context, key string) error {
	const query = `DELETE FROM web_storage WHERE key = $1`
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return translateError("remove item", err)
	}
	return nil
}

func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	const query = `SELECT key FROM web_storage`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, translateError("keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, translateError("keys", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("keys", err)
	}
	return keys, nil
}

func (s *Storage) Len(ctx context.Context) (int, error) {
	const query = `SELECT count(*) FROM web_storage`
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, translateError("len", err)
	}
	return n, nil
}

func translateError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "53100", "53200", "54000": // disk_full, out_of_memory, program_limit_exceeded
			return fmt.Errorf("postgres: %s: %w: %v", op, storage.ErrQuotaExceeded, err)
		}
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

var _ storage.Storage = (*Storage)(nil)
