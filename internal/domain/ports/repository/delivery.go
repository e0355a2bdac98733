package repository

import (
	"context"
	"time"

	"coach-connect/internal/domain/model"
)

// DeliveryRepository stores the forward audit log.
type DeliveryRepository interface {
	Save(ctx context.Context, tx Tx, d *model.Delivery) error
}

// DeliveryGuard suppresses repeated deliveries of the same payload.
// Acquire returns ok=false when key was already claimed within ttl; the token
// releases the claim, e.g. after a failed delivery.
type DeliveryGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// RateLimiter is a fixed-window request limiter keyed by caller.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
