// internal/status/builder.go
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	cfg "github.com/tamzrod/beacon-guard/internal/config"
)

const pingTimeout = 5 * time.Second

// Build returns the configured Store and its closer.
// An unreachable Redis is a startup fault.
func Build(ctx context.Context, c cfg.StateConfig) (Store, func() error, error) {
	if c.Backend != cfg.StateRedis {
		return NewMemoryStore(), func() error { return nil }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: c.RedisAddr,
		DB:   c.RedisDB,
	})

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("status: redis %s unavailable: %w", c.RedisAddr, err)
	}

	return NewRedisStore(rdb, c.KeyPrefix), rdb.Close, nil
}
