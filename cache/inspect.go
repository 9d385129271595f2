package cache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/adeilh/marketcache/storage"
)

// Info describes one namespaced entry without decoding its payload.
type Info struct {
	// Key is the caller-facing key, without the namespace prefix.
	Key       string
	CreatedAt time.Time
	ExpiresAt time.Time
	// Size is the length of the stored value in bytes.
	Size      int
	Expired   bool
	Malformed bool
}

// Entries lists the namespace sorted by key. Unlike Get and Sweep it never
// removes anything.
func (c *Cache) Entries(ctx context.Context) ([]Info, error) {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	now := c.clock.Now()
	var out []Info
	for _, skey := range keys {
		if !strings.HasPrefix(skey, c.prefix) {
			continue
		}
		raw, err := c.store.GetItem(ctx, skey)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		info := Info{Key: strings.TrimPrefix(skey, c.prefix), Size: len(raw)}
		expiresAt, ok := peekExpiry(raw)
		if !ok {
			info.Malformed = true
		} else {
			info.ExpiresAt = time.UnixMilli(expiresAt)
			if created := gjson.Get(raw, "createdAt"); created.Type == gjson.Number {
				info.CreatedAt = time.UnixMilli(created.Int())
			}
			info.Expired = now.UnixMilli() > expiresAt
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
