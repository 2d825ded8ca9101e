package repository

import (
	"context"
	"fmt"
	"time"

	"roomly/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisRoomLocker implements a per-room advisory write lock with SET NX.
// The TTL bounds how long a crashed request can keep a room locked.
type RedisRoomLocker struct {
	client *redis.Client
}

// NewRedisClient builds a client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisRoomLocker(client *redis.Client) *RedisRoomLocker {
	return &RedisRoomLocker{client: client}
}

func (r *RedisRoomLocker) AcquireRoomLock(ctx context.Context, roomID int64, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	ok, err := r.client.SetNX(ctx, roomLockKey(roomID), "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire room lock: %w", err)
	}
	return ok, nil
}

func (r *RedisRoomLocker) ReleaseRoomLock(ctx context.Context, roomID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, roomLockKey(roomID)).Err(); err != nil {
		return fmt.Errorf("release room lock: %w", err)
	}
	return nil
}

func roomLockKey(roomID int64) string {
	return fmt.Sprintf("lock:room:%d", roomID)
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
