package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPingTimeout bounds connection checks.
const DefaultPingTimeout = 5 * time.Second

// New creates a Redis client and verifies the connection. The same address backs the
// asynq broker.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := Ping(ctx, client, DefaultPingTimeout); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Ping checks that client answers within timeout.
func Ping(ctx context.Context, client redis.UniversalClient, timeout time.Duration) error {
	if client == nil {
		return fmt.Errorf("platform/cache: client not configured")
	}
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("platform/cache: ping: %w", err)
	}
	return nil
}
