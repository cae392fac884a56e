package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/depositry/backend/internal/application/publication"
	infraconfig "github.com/depositry/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// RedisReleaseLock serializes publication attempts per release using a
// Redis SETNX lease. Suitable for distributed deployments where multiple
// workers may receive the same release event.
type RedisReleaseLock struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisReleaseLock creates a new Redis-backed release lock
func NewRedisReleaseLock(cfg *infraconfig.RedisConfig) (*RedisReleaseLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisReleaseLock{
		client:    client,
		keyPrefix: "publication:lock:",
	}, nil
}

// NewRedisReleaseLockWithClient creates a lock with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisReleaseLockWithClient(client *redis.Client, keyPrefix string) *RedisReleaseLock {
	if keyPrefix == "" {
		keyPrefix = "publication:lock:"
	}
	return &RedisReleaseLock{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire takes the lease for key. Returns false if another worker holds it.
// SETNX with TTL is a single atomic operation, so the lease cannot leak
// even if the holder crashes.
func (l *RedisReleaseLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := l.client.SetNX(ctx, l.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire release lock: %w", err)
	}
	return acquired, nil
}

// Release drops the lease for key. Releasing a lease that already expired
// is a no-op.
func (l *RedisReleaseLock) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release release lock: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisReleaseLock) Close() error {
	return l.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (l *RedisReleaseLock) GetClient() *redis.Client {
	return l.client
}

// Ensure RedisReleaseLock implements ReleaseLock
var _ publication.ReleaseLock = (*RedisReleaseLock)(nil)
