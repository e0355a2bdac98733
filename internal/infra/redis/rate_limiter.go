package redis

import (
	"context"
	"time"

	"coach-connect/internal/domain/ports/repository"
)

var _ repository.RateLimiter = (*RateLimiter)(nil)

// RateLimiter is a fixed-window counter: the first hit in a window sets the
// expiry atomically with the increment and every hit past limit is refused
// until the key expires.
type RateLimiter struct {
	client RedisClient
	limit  int
	window time.Duration
}

func NewRateLimiter(client RedisClient, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := r.client.IncrWindow(ctx, key, r.window)
	if err != nil {
		return false, err
	}

	if count > int64(r.limit) {
		return false, nil
	}

	return true, nil
}
