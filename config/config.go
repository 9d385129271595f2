// Package config loads marketcache settings from an optional YAML file, a
// .env file and MARKETCACHE_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix   = "MARKETCACHE"
	Production  = "production"
	DefaultName = "marketcache"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

type Config struct {
	Env     string        `mapstructure:"env"`
	Log     LogConfig     `mapstructure:"log"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Storage StorageConfig `mapstructure:"storage"`
	Admin   AdminConfig   `mapstructure:"admin"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // zerolog level name
	Format string `mapstructure:"format"` // "json" or "console"
}

type HTTPConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second per client, 0 disables
	RateBurst       int           `mapstructure:"rate_burst"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type CacheConfig struct {
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type StorageConfig struct {
	Backend    string         `mapstructure:"backend"`
	QuotaBytes int            `mapstructure:"quota_bytes"` // memory backend only
	Redis      RedisConfig    `mapstructure:"redis"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
	Remote     RemoteConfig   `mapstructure:"remote"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type PostgresConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	Migrate      bool   `mapstructure:"migrate"`
}

type RemoteConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

type AdminConfig struct {
	// TokenHash is a bcrypt hash produced by `marketcache hash-token`.
	TokenHash string `mapstructure:"token_hash"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("http.address", ":8080")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.shutdown_timeout", "5s")
	v.SetDefault("http.rate_limit", 0)
	v.SetDefault("http.rate_burst", 0)
	v.SetDefault("http.cors_origins", []string{})

	v.SetDefault("cache.prefix", "search_")
	v.SetDefault("cache.ttl", "60m")

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.quota_bytes", 5<<20) // typical browser local storage limit
	v.SetDefault("storage.redis.addr", "127.0.0.1:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 8)
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.postgres.max_open_conns", 5)
	v.SetDefault("storage.postgres.migrate", true)
	v.SetDefault("storage.remote.url", "")
	v.SetDefault("storage.remote.timeout", "10s")
	v.SetDefault("storage.remote.retries", 2)

	v.SetDefault("admin.token_hash", "")
}

// Load reads configuration. An explicit path must exist; otherwise
// marketcache.yaml is looked up in the working directory and /etc/marketcache
// and skipped when absent. Outside production a .env file in the working
// directory is loaded into the process environment first.
func Load(path string) (*Config, error) {
	if os.Getenv(EnvPrefix+"_ENV") != Production {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/" + DefaultName)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the wiring cannot act on.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return errors.New("config: storage.postgres.dsn is required for the postgres backend")
		}
	case BackendRemote:
		if c.Storage.Remote.URL == "" {
			return errors.New("config: storage.remote.url is required for the remote backend")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Cache.Prefix == "" {
		return errors.New("config: cache.prefix must not be empty")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Env == Production }
