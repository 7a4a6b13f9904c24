package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/openmeet/openmeet-api/internal/infrastructure/db/cassandra"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=1h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	// RepairWorkers sizes the email index repair dispatcher.
	RepairWorkers int `env:"INDEX_REPAIR_WORKERS, default=4"`

	Cassandra CassandraConfig
	Redis     RedisConfig
}

type CassandraConfig struct {
	ContactPoints  []string      `env:"CASSANDRA_CONTACT_POINTS"`
	Username       string        `env:"CASSANDRA_USERNAME"`
	Password       string        `env:"CASSANDRA_PASSWORD"`
	Keyspace       string        `env:"CASSANDRA_KEYSPACE,        default=openmeet"`
	Consistency    string        `env:"CASSANDRA_CONSISTENCY,     default=QUORUM"`
	PoolSize       int           `env:"CASSANDRA_POOL_SIZE,       default=8"`
	AcquireTimeout time.Duration `env:"CASSANDRA_ACQUIRE_TIMEOUT, default=5s"`
	ConnectTimeout time.Duration `env:"CASSANDRA_CONNECT_TIMEOUT, default=10s"`
	QueryTimeout   time.Duration `env:"CASSANDRA_QUERY_TIMEOUT,   default=5s"`
	EnsureSchema   bool          `env:"CASSANDRA_ENSURE_SCHEMA,   default=false"`
}

// RedisConfig is optional; an empty Addr disables email reservations.
type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR"`
	DB             int           `env:"REDIS_DB,              default=0"`
	ReservationTTL time.Duration `env:"EMAIL_RESERVATION_TTL, default=10s"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that must stop the process before it serves.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.Cassandra.PoolSize < 1 {
		return fmt.Errorf("config: CASSANDRA_POOL_SIZE must be at least 1, got %d", c.Cassandra.PoolSize)
	}
	if err := c.Pool().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Pool converts the Cassandra settings into the session pool's configuration.
func (c *Config) Pool() cassandra.PoolConfig {
	return cassandra.PoolConfig{
		ContactPoints:  c.Cassandra.ContactPoints,
		Username:       c.Cassandra.Username,
		Password:       c.Cassandra.Password,
		Keyspace:       c.Cassandra.Keyspace,
		Consistency:    c.Cassandra.Consistency,
		Size:           c.Cassandra.PoolSize,
		AcquireTimeout: c.Cassandra.AcquireTimeout,
		ConnectTimeout: c.Cassandra.ConnectTimeout,
		QueryTimeout:   c.Cassandra.QueryTimeout,
	}
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
