package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/redis/go-redis/v9"
	"time"
)

type CachedStatus struct {
	OrderID   int64         `json:"order_id"`
	UserID    int64         `json:"user_id"`
	Status    orders.Status `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// StatusCache keeps the latest known status per order. The database stays the
// source of truth; a miss or a stale entry only costs a query.
type StatusCache struct {
	R   redis.Cmdable
	TTL time.Duration
}

func NewStatusCache(r redis.Cmdable) *StatusCache {
	return &StatusCache{R: r, TTL: TTLStatusCache}
}

func (c *StatusCache) Get(ctx context.Context, orderID int64) (CachedStatus, bool, error) {
	s, err := c.R.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return CachedStatus{}, false, nil
	}
	if err != nil {
		return CachedStatus{}, false, err
	}
	var cs CachedStatus
	if err := json.Unmarshal([]byte(s), &cs); err != nil {
		return CachedStatus{}, false, fmt.Errorf("decode cached status: %w", err)
	}
	return cs, true, nil
}

func (c *StatusCache) Set(ctx context.Context, cs CachedStatus) error {
	b, err := json.Marshal(cs)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, fmt.Sprintf(KeyOrderStatus, cs.OrderID), b, c.TTL).Err()
}

// Seen reports whether a consumer already processed the event.
func (c *StatusCache) Seen(ctx context.Context, service, eventID string) (bool, error) {
	return Exists(ctx, c.R, fmt.Sprintf(KeyDedup, service, eventID))
}

func (c *StatusCache) MarkSeen(ctx context.Context, service, eventID string) error {
	return c.R.Set(ctx, fmt.Sprintf(KeyDedup, service, eventID), "1", TTLDedup).Err()
}
