package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moodmeter/moodmeter/internal/auth"
)

// sessionPrefix is the Redis key prefix for browser sessions.
const sessionPrefix = "session:"

// CreateSession stores a new session for accountID and returns its ID.
func (c *Cache) CreateSession(ctx context.Context, accountID string, ttl time.Duration) (string, error) {
	token, err := auth.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}

	ok, err := c.client.SetNX(ctx, sessionPrefix+token.Plaintext, accountID, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return "", errors.New("session id collision")
	}

	return token.Plaintext, nil
}

// GetSession returns the account ID bound to sessionID.
// Returns "" when the session does not exist or has expired.
func (c *Cache) GetSession(ctx context.Context, sessionID string) (string, error) {
	if !auth.ValidateTokenFormat(sessionID) {
		return "", nil
	}

	accountID, err := c.client.Get(ctx, sessionPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	return accountID, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (c *Cache) DeleteSession(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, sessionPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
