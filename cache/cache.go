package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adeilh/marketcache/storage"
)

// Cache keeps search results in a storage partition for a fixed TTL. Every
// entry records its creation and absolute expiry time when written; reads
// never extend it. Caching is best effort: no method returns an error, and
// every storage or encoding failure degrades to a no-op or a miss.
type Cache struct {
	store   storage.Storage
	prefix  string
	ttl     time.Duration
	clock   Clock
	log     zerolog.Logger
	metrics Metrics
}

func New(store storage.Storage, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		prefix:  DefaultPrefix,
		ttl:     DefaultTTL,
		clock:   SystemClock{},
		log:     zerolog.Nop(),
		metrics: NoopMetrics{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Cache) Prefix() string     { return c.prefix }
func (c *Cache) TTL() time.Duration { return c.ttl }

// StorageKey returns the namespaced key under which key is stored.
func (c *Cache) StorageKey(key string) string { return c.prefix + key }

// Save stores payload under key, replacing any previous entry. An empty key
// or a nil payload is silently ignored.
func (c *Cache) Save(ctx context.Context, key string, payload any) {
	if key == "" || isNil(payload) {
		return
	}
	skey := c.StorageKey(key)

	body, err := json.Marshal(payload)
	if err != nil {
		c.metrics.SaveFailure()
		c.log.Error().Err(err).Str("key", skey).Msg("error saving to cache")
		return
	}
	if bytes.Equal(body, jsonNull) {
		return
	}
	raw, err := json.Marshal(newEntry(c.clock.Now(), c.ttl, body))
	if err != nil {
		c.metrics.SaveFailure()
		c.log.Error().Err(err).Str("key", skey).Msg("error saving to cache")
		return
	}
	if err := c.store.SetItem(ctx, skey, string(raw)); err != nil {
		c.metrics.SaveFailure()
		c.log.Error().Err(err).Str("key", skey).Msg("error saving to cache")
		return
	}
	c.metrics.Saved()
	c.log.Debug().Str("key", skey).Msg("saved results to cache")
}

// Get returns the stored payload for key. Expired and malformed entries are
// removed and reported as absent.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	if key == "" {
		return nil, false
	}
	skey := c.StorageKey(key)

	raw, err := c.store.GetItem(ctx, skey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.Error().Err(err).Str("key", skey).Msg("error retrieving from cache")
		}
		c.metrics.Miss()
		return nil, false
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		c.log.Warn().Str("key", skey).Msg("removing malformed cache entry")
		c.remove(ctx, skey)
		c.metrics.Miss()
		return nil, false
	}

	if entry.Expired(c.clock.Now()) {
		c.remove(ctx, skey)
		c.metrics.Expire()
		c.metrics.Miss()
		c.log.Debug().Str("key", skey).Msg("cache expired")
		return nil, false
	}

	c.metrics.Hit()
	c.log.Debug().Str("key", skey).Msg("retrieved results from cache")
	return entry.Payload, true
}

// Load decodes the payload stored under key into T. A payload that does not
// decode into T counts as a miss and is left in place.
func Load[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var out T
	raw, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		c.log.Warn().Err(err).Str("key", c.StorageKey(key)).Msg("cached payload has unexpected shape")
		var zero T
		return zero, false
	}
	return out, true
}

// Sweep removes every namespaced entry that is expired or cannot be parsed
// and returns how many were removed. Keys outside the namespace are never
// read. It is meant to run once at startup, not on a timer.
func (c *Cache) Sweep(ctx context.Context) int {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("error cleaning cache")
		return 0
	}

	now := c.clock.Now().UnixMilli()
	removed := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, c.prefix) {
			continue
		}
		raw, err := c.store.GetItem(ctx, key)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				c.log.Warn().Err(err).Str("key", key).Msg("skipping unreadable cache entry")
			}
			continue
		}
		expiresAt, ok := peekExpiry(raw)
		if ok && now <= expiresAt {
			continue
		}
		if err := c.store.RemoveItem(ctx, key); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("failed to remove cache entry")
			continue
		}
		if ok {
			c.metrics.Expire()
		}
		removed++
	}

	c.metrics.Swept(removed)
	if removed > 0 {
		c.log.Info().Int("count", removed).Msg("cleaned expired cache entries")
	}
	return removed
}

func (c *Cache) remove(ctx context.Context, skey string) {
	if err := c.store.RemoveItem(ctx, skey); err != nil {
		c.log.Warn().Err(err).Str("key", skey).Msg("failed to remove cache entry")
	}
}

var jsonNull = []byte("null")

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
