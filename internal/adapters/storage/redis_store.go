package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/itory/itory/internal/logging"
	"github.com/itory/itory/internal/ports"
)

// RedisKeyPrefix namespaces snapshot keys in a shared Redis
const RedisKeyPrefix = "itory:snapshot:"

// RedisStore implements ports.SnapshotStore on Redis. Expiry is delegated to
// Redis key TTLs.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ ports.SnapshotStore = (*RedisStore)(nil)

// NewRedisStore connects to addr and verifies the connection
func NewRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logging.Logger.Debug("Redis snapshot store connected", "addr", addr, "ttl", ttl)
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

// Load implements SnapshotStore.Load
func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, RedisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Save implements SnapshotStore.Save. A zero TTL keeps the key forever.
func (s *RedisStore) Save(ctx context.Context, key string, payload []byte) error {
	if err := s.rdb.Set(ctx, RedisKeyPrefix+key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements SnapshotStore.Delete
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, RedisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection pool
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
