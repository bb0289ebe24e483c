// internal/status/redis.go
package status

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	valueStolen = "1"
	valueSafe   = "0"
)

// RedisStore persists reported status under <prefix>status:<serial> so a
// restart does not re-report an unchanged asset.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(serial string) string {
	return s.prefix + "status:" + serial
}

func (s *RedisStore) Load(ctx context.Context, serials []string) (map[string]bool, error) {
	out := make(map[string]bool, len(serials))
	if len(serials) == 0 {
		return out, nil
	}

	keys := make([]string, len(serials))
	for i, serial := range serials {
		keys[i] = s.key(serial)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("status: redis mget: %w", err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // nil: never reported
		}
		if b, ok := decode(str); ok {
			out[serials[i]] = b
		}
	}
	return out, nil
}

func (s *RedisStore) Save(ctx context.Context, serial string, stolen bool) error {
	v := valueSafe
	if stolen {
		v = valueStolen
	}
	if err := s.client.Set(ctx, s.key(serial), v, 0).Err(); err != nil {
		return fmt.Errorf("status: redis set %s: %w", serial, err)
	}
	return nil
}

func decode(v string) (bool, bool) {
	switch v {
	case valueStolen:
		return true, true
	case valueSafe:
		return false, true
	}
	return false, false
}
