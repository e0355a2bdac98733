// File: internal/infra/redis/delivery_guard.go
package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"coach-connect/internal/domain/ports/repository"
)

var _ repository.DeliveryGuard = (*DeliveryGuard)(nil)

// DeliveryGuard claims a payload key for ttl so identical questionnaires
// posted twice in a row reach the fitness API once.
type DeliveryGuard struct {
	cli *redis.Client
}

func NewDeliveryGuard(c *Client) *DeliveryGuard {
	return &DeliveryGuard{cli: c.cli}
}

// Acquire returns ok=false when the key is already held.
func (g *DeliveryGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.cli.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

var luaRelease = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

// Release drops the key only if it still holds token.
func (g *DeliveryGuard) Release(ctx context.Context, key, token string) error {
	_, err := luaRelease.Run(ctx, g.cli, []string{key}, token).Result()
	return err
}
