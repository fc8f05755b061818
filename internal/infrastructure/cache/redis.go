// Package cache holds Redis-backed stores: the shared client, the session
// credential store, and the import drain lock.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"atendo/internal/shared/config"
	appLogger "atendo/internal/shared/logger"
)

var (
	client   *redis.Client
	clientMu sync.RWMutex
)

// Init initializes the shared Redis client.
func Init(cfg *config.RedisConfig) error {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	clientMu.Lock()
	client = c
	clientMu.Unlock()

	appLogger.Info("redis connection established", "addr", cfg.GetAddr())
	return nil
}

// Get returns the shared Redis client.
func Get() *redis.Client {
	clientMu.RLock()
	defer clientMu.RUnlock()
	return client
}

// Close closes the shared Redis client.
func Close() error {
	clientMu.RLock()
	c := client
	clientMu.RUnlock()

	if c == nil {
		return nil
	}
	return c.Close()
}
