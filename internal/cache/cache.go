// Package cache mirrors broker state into Redis.
//
// The broker is the single-process authority for presence and session state;
// the mirror exists for operational visibility and as the seam a future
// multi-instance deployment would replace the in-process registries through.
// Writes are best-effort with TTLs: a Redis outage never affects signaling.
//
// Implementation Details:
// - Uses go-redis client with connection pooling
// - 3 retry attempts with 8-512ms exponential backoff
// - 5-second dial timeout, 3-second read/write timeouts
// - Values stored as JSON
//
// Thread Safety:
// - Redis client is thread-safe
// - Safe for concurrent access across goroutines
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotMirrored is returned by Get when the key has no mirrored value.
// A disabled mirror reports every key as not mirrored.
var ErrNotMirrored = errors.New("not mirrored")

// Cache provides the Redis-backed state mirror
type Cache struct {
	client *redis.Client
}

// Config holds cache configuration
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// NewCache creates a new Redis cache client
func NewCache(config Config) (*Cache, error) {
	if !config.Enabled {
		return &Cache{client: nil}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,

		PoolSize:        25,
		MinIdleConns:    5,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// IsEnabled returns whether the mirror is enabled
func (c *Cache) IsEnabled() bool {
	return c.client != nil
}

// Get reads a mirrored value into target. Returns ErrNotMirrored on a miss
// or when the mirror is disabled, so read-back callers treat both as absence.
func (c *Cache) Get(ctx context.Context, key string, target interface{}) error {
	if !c.IsEnabled() {
		return ErrNotMirrored
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotMirrored
	}
	if err != nil {
		return fmt.Errorf("mirror read %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode mirrored value for %s: %w", key, err)
	}

	return nil
}

// Set stores a value with the given TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.IsEnabled() {
		return nil // Silently skip if mirror disabled
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}

	return nil
}

// Delete removes keys
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.IsEnabled() {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}

	return nil
}

// DeletePattern removes every mirrored key matching pattern. Used to purge
// stale state left behind by a previous broker run.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	if !c.IsEnabled() {
		return nil
	}

	var stale []string
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		stale = append(stale, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan mirror keys %s: %w", pattern, err)
	}

	if len(stale) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, stale...).Err(); err != nil {
		return fmt.Errorf("purge mirror keys %s: %w", pattern, err)
	}
	return nil
}

// Exists reports whether a key is mirrored. A disabled mirror holds nothing.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if !c.IsEnabled() {
		return false, nil
	}

	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("mirror existence check %s: %w", key, err)
	}
	return n > 0, nil
}
