package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "vapor:retrieve:failures:"

// AttemptRepository counts failed retrieval attempts per client in Redis. A nil client
// disables counting.
type AttemptRepository struct {
	client *redis.Client
}

// NewAttemptRepository constructs an attempt repository.
func NewAttemptRepository(client *redis.Client) *AttemptRepository {
	return &AttemptRepository{client: client}
}

// Enabled reports whether a Redis client is configured.
func (r *AttemptRepository) Enabled() bool {
	return r != nil && r.client != nil
}

// Count returns the failures recorded for the client in the current window.
func (r *AttemptRepository) Count(ctx context.Context, clientKey string) (int64, error) {
	if !r.Enabled() {
		return 0, nil
	}
	n, err := r.client.Get(ctx, attemptKeyPrefix+clientKey).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get attempts %s: %w", clientKey, err)
	}
	return n, nil
}

// Increment records one failure. The window starts with the first failure.
func (r *AttemptRepository) Increment(ctx context.Context, clientKey string, window time.Duration) (int64, error) {
	if !r.Enabled() {
		return 0, nil
	}
	key := attemptKeyPrefix + clientKey

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr attempts %s: %w", clientKey, err)
	}
	return incr.Val(), nil
}

// Close releases the underlying Redis connection if present.
func (r *AttemptRepository) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Close()
}
