package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"transport-register/internal/models"

	"github.com/redis/go-redis/v9"
)

// ListCache holds the last full, sorted registration list so page flips
// do not walk every cursor page of the remote store again.
type ListCache interface {
	Get(ctx context.Context) ([]models.Registration, bool, error)
	Set(ctx context.Context, regs []models.Registration) error
	Invalidate(ctx context.Context) error
}

// Noop is used when no cache is configured
type Noop struct{}

func (Noop) Get(context.Context) ([]models.Registration, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, []models.Registration) error         { return nil }
func (Noop) Invalidate(context.Context) error                         { return nil }

const registrationsKey = "transport-register:registrations:all"

// RedisListCache stores the list as a JSON blob with a TTL
type RedisListCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to redis and verifies the connection
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*RedisListCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisListCache{client: client, ttl: ttl}, nil
}

// Get returns the cached list, if any
func (c *RedisListCache) Get(ctx context.Context) ([]models.Registration, bool, error) {
	b, err := c.client.Get(ctx, registrationsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached registrations: %w", err)
	}

	var regs []models.Registration
	if err := json.Unmarshal(b, &regs); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached registrations: %w", err)
	}
	return regs, true, nil
}

// Set replaces the cached list
func (c *RedisListCache) Set(ctx context.Context, regs []models.Registration) error {
	b, err := json.Marshal(regs)
	if err != nil {
		return fmt.Errorf("failed to encode registrations: %w", err)
	}
	if err := c.client.Set(ctx, registrationsKey, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache registrations: %w", err)
	}
	return nil
}

// Invalidate drops the cached list
func (c *RedisListCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, registrationsKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate registrations cache: %w", err)
	}
	return nil
}

// Close closes the redis connection
func (c *RedisListCache) Close() error {
	return c.client.Close()
}
