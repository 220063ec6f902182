// Package cache provides the Redis-backed session lookup cache and the
// distributed lock the ledger needs in front of release_escrow. Adapted
// from the teacher's pool-stats/user-stats Redis cache (same client
// construction, same Get/Set/Delete primitives) but repurposed to this
// domain: instead of caching aggregate pool statistics, it caches the
// order-code → region mapping the proxy consults to route a connecting
// rig, and it layers a mutex on top for cross-instance serialization.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config mirrors the teacher's CacheConfig, trimmed to the fields this
// domain's cache actually uses.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	SessionTTL time.Duration
	LockTTL    time.Duration
}

// DefaultConfig returns sensible defaults, matching the teacher's
// DefaultCacheConfig shape.
func DefaultConfig() *Config {
	return &Config{
		RedisAddr:  "localhost:6379",
		RedisDB:    0,
		KeyPrefix:  "hashmarket:",
		SessionTTL: 10 * time.Minute,
		LockTTL:    5 * time.Second,
	}
}

// RedisCache implements the session-routing cache and the distributed
// lock over a single Redis client.
type RedisCache struct {
	client *redis.Client
	config *Config
}

// NewRedisCache dials Redis and verifies connectivity, same as the
// teacher's NewRedisCache.
func NewRedisCache(config *Config) (*RedisCache, error) {
	if config == nil {
		config = DefaultConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.RedisAddr,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		PoolSize:     50,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, config: config}, nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// HealthCheck checks if Redis is healthy.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) sessionKey(orderCode string) string {
	return c.config.KeyPrefix + "session:" + orderCode
}

// SessionRoute is the small piece of routing state the proxy consults on
// handshake: which region/proxy instance is currently serving this order
// code, set when a session is established so a reconnect is steered back
// to the same region (spec.md §4.3).
type SessionRoute struct {
	Region    string    `json:"region"`
	ProxyID   string    `json:"proxy_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PutSessionRoute caches the region a proxy instance claimed for
// orderCode.
func (c *RedisCache) PutSessionRoute(ctx context.Context, orderCode string, route SessionRoute) error {
	route.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("marshal session route: %w", err)
	}
	if err := c.client.Set(ctx, c.sessionKey(orderCode), data, c.config.SessionTTL).Err(); err != nil {
		return fmt.Errorf("cache session route for %s: %w", orderCode, err)
	}
	return nil
}

// GetSessionRoute returns the cached route, or nil on a cache miss.
func (c *RedisCache) GetSessionRoute(ctx context.Context, orderCode string) (*SessionRoute, error) {
	val, err := c.client.Get(ctx, c.sessionKey(orderCode)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session route for %s: %w", orderCode, err)
	}
	var route SessionRoute
	if err := json.Unmarshal(val, &route); err != nil {
		return nil, fmt.Errorf("unmarshal session route for %s: %w", orderCode, err)
	}
	return &route, nil
}

// DeleteSessionRoute removes the routing entry, called on disconnect.
func (c *RedisCache) DeleteSessionRoute(ctx context.Context, orderCode string) error {
	if err := c.client.Del(ctx, c.sessionKey(orderCode)).Err(); err != nil {
		return fmt.Errorf("delete session route for %s: %w", orderCode, err)
	}
	return nil
}
