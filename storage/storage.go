package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("storage: key not found")
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// Storage is a flat, case-sensitive string key/value partition shared by
// every caller that opens it. It mirrors what a browser exposes as local
// storage: single-key reads and writes, removal, enumeration and a count.
// No multi-key atomicity is offered; concurrent writers race and the last
// write wins.
type Storage interface {
	// GetItem returns ErrNotFound when key is absent.
	GetItem(ctx context.Context, key string) (string, error)
	// SetItem overwrites any previous value. Backends that run out of room
	// report ErrQuotaExceeded.
	SetItem(ctx context.Context, key, value string) error
	// RemoveItem is a no-op for absent keys.
	RemoveItem(ctx context.Context, key string) error
	// Keys lists every key in the partition in no particular order.
	Keys(ctx context.Context) ([]string, error)
	Len(ctx context.Context) (int, error)
}

// CtxErr reports ctx cancellation without blocking. A nil ctx is treated as
// never cancelled.
func CtxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
