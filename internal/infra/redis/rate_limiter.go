package redis

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RateLimiter is a fixed-window counter. The window starts with the first hit.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.IncrWindow(ctx, key, window)
	if err != nil {
		return false, err
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// LinkRequestKey scopes self-service link requests to one merchant and one address.
func LinkRequestKey(userID, email string) string {
	return fmt.Sprintf("rate_limit:link_request:%s:%s", userID, strings.ToLower(strings.TrimSpace(email)))
}
