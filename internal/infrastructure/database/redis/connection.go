// internal/infrastructure/database/redis/connection.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
)

const (
	dialTimeout   = 5 * time.Second
	ioTimeout     = 3 * time.Second
	poolTimeout   = 4 * time.Second
	healthTimeout = 2 * time.Second
)

// Client holds the Redis connection shared by the rate limiter and the
// cross-instance event relay.
type Client struct {
	Redis  *redis.Client
	logger *logrus.Entry
}

// NewConnection dials Redis and fails fast when the server does not answer
func NewConnection(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	log := logger.WithFields(logrus.Fields{
		"component": "redis",
		"addr":      cfg.GetRedisAddr(),
		"db":        cfg.Redis.DB,
	})

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
		PoolTimeout:  poolTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.GetRedisAddr(), err)
	}

	log.WithFields(logrus.Fields{
		"pool_size":      cfg.Redis.PoolSize,
		"min_idle_conns": cfg.Redis.MinIdleConns,
	}).Info("Redis connection established")

	return &Client{Redis: rdb, logger: log}, nil
}

// Close logs final pool stats and closes the client
func (c *Client) Close() error {
	stats := c.Redis.PoolStats()
	c.logger.WithFields(logrus.Fields{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
	}).Info("Closing Redis connection")
	return c.Redis.Close()
}

// GetClient returns the underlying go-redis client
func (c *Client) GetClient() *redis.Client {
	return c.Redis
}

// Health pings Redis for /health
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
