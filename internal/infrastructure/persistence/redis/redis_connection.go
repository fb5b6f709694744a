// Package redis provides the Redis connection and the user lookup cache
// used by the identity store.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/pkg/errors"
	"github.com/turtacn/perimeter/pkg/logger"
)

// RedisConnection manages the client lifecycle.
type RedisConnection struct {
	client *redis.Client
	logger logger.Logger
}

// NewRedisConnection creates a client from configuration. It does not dial;
// call Ping to verify connectivity.
func NewRedisConnection(cfg *config.RedisConfig, log logger.Logger) *RedisConnection {
	return NewRedisConnectionFromClient(redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}), log)
}

// NewRedisConnectionFromClient wraps an existing client.
func NewRedisConnectionFromClient(client *redis.Client, log logger.Logger) *RedisConnection {
	return &RedisConnection{client: client, logger: log}
}

// Client returns the underlying go-redis client.
func (c *RedisConnection) Client() *redis.Client {
	return c.client
}

// Ping verifies the server answers.
func (c *RedisConnection) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.ErrServiceUnavailable.WithMessage("redis ping failed").WithCause(err)
	}
	return nil
}

// Name identifies this dependency in health reports.
func (c *RedisConnection) Name() string {
	return "redis"
}

// Close releases the pool.
func (c *RedisConnection) Close() error {
	c.logger.Info(context.Background(), "Closing redis connection")
	return c.client.Close()
}
