package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// keyOwnerPrefix is the Redis key prefix for token digest to account ID.
	keyOwnerPrefix = "auth:key:"
	// keyOwnerTTL is the time-to-live for cached key resolutions.
	keyOwnerTTL = 5 * time.Minute
)

// GetKeyOwner returns the account ID cached for a token digest.
// Returns "" on a cache miss.
func (c *Cache) GetKeyOwner(ctx context.Context, digest string) (string, error) {
	accountID, err := c.client.Get(ctx, keyOwnerPrefix+digest).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return accountID, nil
}

// SetKeyOwner caches a successful key resolution.
// Keys are never revoked, so a cached binding cannot go stale.
func (c *Cache) SetKeyOwner(ctx context.Context, digest, accountID string) error {
	return c.client.Set(ctx, keyOwnerPrefix+digest, accountID, keyOwnerTTL).Err()
}
