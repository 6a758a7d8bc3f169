// Package storage selects and opens the order item backend.
package storage

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/order-invoice/internal/domain/order"
	"github.com/xenking/order-invoice/internal/storage/memory"
	"github.com/xenking/order-invoice/internal/storage/postgres"
	"github.com/xenking/order-invoice/internal/storage/redis"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config selects the storage backend.
type Config struct {
	Driver        string `default:"postgres" usage:"Storage backend: postgres, redis or memory"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (INVOICE_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisAddr     string `default:"localhost:6379" usage:"Redis address" flag:"redis-addr"`
	RedisPassword string `usage:"Redis password" flag:"redis-password"`
	RedisDB       int    `default:"0" usage:"Redis logical database" flag:"redis-db"`
}

// Validate reports configuration that cannot be opened.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set INVOICE_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return errors.New("redis address is required")
		}
	case DriverMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.Driver)
	}
	return nil
}

// Store is an opened backend.
type Store struct {
	Orders order.Repository
	// Ping reports backend health for readiness probes.
	Ping  func(ctx context.Context) error
	Close func()
}

// Open connects to the backend named by cfg.Driver. The postgres schema is
// applied before returning.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		return &Store{
			Orders: postgres.NewOrderRepository(pool),
			Ping:   pool.Ping,
			Close:  pool.Close,
		}, nil
	case DriverRedis:
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, errors.Wrap(err, "connect redis")
		}
		return &Store{
			Orders: redis.NewOrderRepository(client),
			Ping: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
			Close: func() { _ = client.Close() },
		}, nil
	default:
		return &Store{
			Orders: memory.NewOrderRepository(),
			Ping:   func(context.Context) error { return nil },
			Close:  func() {},
		}, nil
	}
}
