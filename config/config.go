package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Worker      WorkerConfig      `mapstructure:"worker"`
	Log         LogConfig         `mapstructure:"log"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Isolation       string        `mapstructure:"isolation"` // serializable, repeatable_read
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LedgerConfig tunes the transfer engine.
type LedgerConfig struct {
	DefaultCurrency  string        `mapstructure:"default_currency"`
	RetryAttempts    int           `mapstructure:"retry_attempts"` // total attempts, including the first
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

type CacheConfig struct {
	WalletTTL  time.Duration `mapstructure:"wallet_ttl"`
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
}

type IdempotencyConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`         // replay cache lifetime
	StaleAfter time.Duration `mapstructure:"stale_after"` // processing keys older than this are reclaimable
}

type WorkerConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: WLT_.
// Nested keys use underscore: WLT_DATABASE_HOST, WLT_LEDGER_RETRY_ATTEMPTS, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "wallet_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.isolation", "serializable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ledger.default_currency", "USD")
	v.SetDefault("ledger.retry_attempts", 3)
	v.SetDefault("ledger.retry_backoff", "200ms")
	v.SetDefault("ledger.operation_timeout", "10s")
	v.SetDefault("cache.wallet_ttl", "5m")
	v.SetDefault("cache.history_ttl", "5m")
	v.SetDefault("idempotency.ttl", "24h")
	v.SetDefault("idempotency.stale_after", "5m")
	v.SetDefault("worker.pool_size", 16)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: WLT_DATABASE_HOST -> database.host
	v.SetEnvPrefix("WLT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Ledger.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("ledger.retry_attempts must be >= 1, got %d", c.Ledger.RetryAttempts))
	}
	if c.Ledger.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("ledger.retry_backoff must not be negative"))
	}
	switch c.Database.Isolation {
	case "serializable", "repeatable_read":
	default:
		errs = append(errs, fmt.Errorf("database.isolation %q is not supported", c.Database.Isolation))
	}
	if c.Worker.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("worker.pool_size must be >= 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
