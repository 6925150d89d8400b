// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ===============================
// CACHE INTERFACE
// ===============================

// Cache defines the caching interface used by the services layer.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
	Health(ctx context.Context) error
	Close() error
}

// Config holds cache configuration
type Config struct {
	Provider string        // "memory", "redis"
	TTL      time.Duration // default TTL when callers pass zero
	MaxKeys  int           // max keys in memory cache

	RedisURL      string
	RedisDB       int
	RedisPassword string
	PoolSize      int
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: "memory",
		TTL:      15 * time.Minute,
		MaxKeys:  10000,
		PoolSize: 10,
	}
}

// New creates a cache instance for the configured provider.
func New(cfg *Config, logger *zap.Logger) (Cache, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	switch cfg.Provider {
	case "redis":
		return newRedisCache(cfg, logger)
	case "memory", "":
		return newMemoryCache(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache provider: %s", cfg.Provider)
	}
}

// ===============================
// MEMORY CACHE IMPLEMENTATION
// ===============================

type cacheItem struct {
	value     interface{}
	expiresAt time.Time
}

func (i *cacheItem) expired() bool {
	return !i.expiresAt.IsZero() && time.Now().After(i.expiresAt)
}

// memoryCache implements Cache using in-memory storage
type memoryCache struct {
	mu      sync.RWMutex
	items   map[string]*cacheItem
	maxKeys int
	logger  *zap.Logger
}

func newMemoryCache(cfg *Config, logger *zap.Logger) *memoryCache {
	c := &memoryCache{
		items:   make(map[string]*cacheItem),
		maxKeys: cfg.MaxKeys,
		logger:  logger,
	}

	// Periodic sweep for expired entries.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			c.sweep()
		}
	}()

	return c
}

func (c *memoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || item.expired() {
		return nil, false
	}
	return item.value, true
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxKeys > 0 && len(c.items) >= c.maxKeys {
		// Drop expired entries first; if still full, refuse quietly.
		for k, item := range c.items {
			if item.expired() {
				delete(c.items, k)
			}
		}
		if len(c.items) >= c.maxKeys {
			c.logger.Warn("Memory cache full, dropping set", zap.String("key", key))
			return nil
		}
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.items[key] = &cacheItem{value: value, expiresAt: expiresAt}
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) bool {
	_, ok := c.Get(ctx, key)
	return ok
}

func (c *memoryCache) Health(ctx context.Context) error {
	return nil
}

func (c *memoryCache) Close() error {
	return nil
}

func (c *memoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, item := range c.items {
		if item.expired() {
			delete(c.items, k)
		}
	}
}

// ===============================
// REDIS CACHE IMPLEMENTATION
// ===============================

// redisCache implements Cache backed by Redis with JSON serialization.
type redisCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

func newRedisCache(cfg *Config, logger *zap.Logger) (*redisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB != 0 {
		opts.DB = cfg.RedisDB
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis cache initialized", zap.Int("pool_size", opts.PoolSize))

	return &redisCache{client: client, logger: logger, ttl: cfg.TTL}, nil
}

// Get returns the raw JSON payload for the key. Callers that stored typed
// values unmarshal the returned bytes themselves.
func (c *redisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize cache value: %w", err)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key: %w", err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *redisCache) Exists(ctx context.Context, key string) bool {
	n, err := c.client.Exists(ctx, key).Result()
	return err == nil && n > 0
}

func (c *redisCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
