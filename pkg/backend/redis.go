package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores entries as plain Redis string values. The persistence
// contract is synchronous and carries no deadline, so operations run
// under context.Background(); a hanging server stalls the caller, which
// matches the contract's stated failure model.
type Redis struct {
	rdb *redis.Client
}

// NewRedis creates a Redis backend from connection options.
func NewRedis(opts *redis.Options) *Redis {
	return &Redis{rdb: redis.NewClient(opts)}
}

// Ping verifies connectivity. Useful for health checks before trusting
// the backend with saves.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying connection. Implements io.Closer.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// GetItem returns the value stored at key, or ok=false if absent.
func (r *Redis) GetItem(key string) (string, bool, error) {
	value, err := r.rdb.Get(context.Background(), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read entry from Redis: %w", err)
	}
	return value, true, nil
}

// SetItem stores value under key with no expiry.
func (r *Redis) SetItem(key, value string) error {
	if err := r.rdb.Set(context.Background(), key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write entry to Redis: %w", err)
	}
	return nil
}

// RemoveItem deletes key. Removing an absent key is not an error.
func (r *Redis) RemoveItem(key string) error {
	if err := r.rdb.Del(context.Background(), key).Err(); err != nil {
		return fmt.Errorf("failed to remove entry from Redis: %w", err)
	}
	return nil
}
