package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AvailabilityCache keeps computed slot lists for a provider/date pair for a
// short TTL. Every mutation that can change a provider's day must call
// Invalidate for that pair, so a booked slot never survives in a cached
// response past the mutation.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func key(providerID uuid.UUID, date string) string {
	return fmt.Sprintf("availability:%s:%s", providerID.String(), date)
}

// Get returns the cached JSON payload and whether it was present.
func (c *AvailabilityCache) Get(ctx context.Context, providerID uuid.UUID, date string) ([]byte, bool, error) {
	raw, err := c.client.Get(ctx, key(providerID, date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("availability cache get: %w", err)
	}
	return raw, true, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, providerID uuid.UUID, date string, payload []byte) error {
	if err := c.client.Set(ctx, key(providerID, date), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("availability cache set: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, providerID uuid.UUID, date string) error {
	if err := c.client.Del(ctx, key(providerID, date)).Err(); err != nil {
		return fmt.Errorf("availability cache invalidate: %w", err)
	}
	return nil
}
