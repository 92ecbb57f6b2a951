// Package redis holds the shared connection used by the job queue and the OTP store.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is a connected go-redis client. The embedded *redis.Client is what queue and OTP
// code take.
type Client struct {
	*redis.Client
}

// NewClient dials addr and fails unless PING succeeds, so processes refuse to start
// without their queue.
func NewClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: unreachable at %s (db %d): %w", addr, db, err)
	}

	logger.Info("redis ready", zap.String("addr", addr), zap.Int("db", db))
	return &Client{Client: rdb}, nil
}
