package cache

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultPrefix namespaces cache keys inside a shared storage partition.
	DefaultPrefix = "search_"
	// DefaultTTL is the lifetime of every entry.
	DefaultTTL = 60 * time.Minute
)

type Option func(*Cache)

// WithPrefix overrides the namespace prefix. An empty prefix is ignored: the
// sweep must never be able to reach keys it does not own.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(clock Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.log = logger.With().Str("component", "cache").Logger()
	}
}

func WithMetrics(m Metrics) Option {
	return func(c *Cache) {
		if m != nil {
			c.metrics = m
		}
	}
}
