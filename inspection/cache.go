package inspection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Compile-time interface checks
var (
	_ railinspect.ChecklistCache = (*MemoryCache)(nil)
	_ railinspect.ChecklistCache = (*RedisCache)(nil)
	_ railinspect.ChecklistCache = NopCache{}
)

// DefaultCacheTTL is used when the configured TTL is not positive.
const DefaultCacheTTL = 5 * time.Minute

// NewCache creates a checklist cache based on the provider configuration.
func NewCache(ctx context.Context, logger *slog.Logger, cfg railinspect.CacheConfig) (railinspect.ChecklistCache, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	switch cfg.Provider {
	case "redis":
		c, err := NewRedisCache(ctx, cfg.RedisURL, ttl)
		if err != nil {
			return nil, err
		}
		logger.Info("initialized redis checklist cache", slog.Duration("ttl", ttl))
		return c, nil
	case "none":
		logger.Info("checklist cache disabled")
		return NopCache{}, nil
	default:
		logger.Info("initialized memory checklist cache", slog.Duration("ttl", ttl))
		return NewMemoryCache(ttl), nil
	}
}

func cacheKey(reportID uuid.UUID) string {
	return "checklist:" + reportID.String()
}

// MemoryCache keeps checklist trees in process memory.
type MemoryCache struct {
	cache *cache.Cache
}

// NewMemoryCache creates a memory cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{cache: cache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Get(ctx context.Context, reportID uuid.UUID) (*railinspect.Checklist, error) {
	v, ok := c.cache.Get(cacheKey(reportID))
	if !ok {
		return nil, nil
	}
	return v.(*railinspect.Checklist).Clone(), nil
}

func (c *MemoryCache) Set(ctx context.Context, reportID uuid.UUID, checklist *railinspect.Checklist) error {
	c.cache.SetDefault(cacheKey(reportID), checklist.Clone())
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, reportID uuid.UUID) error {
	c.cache.Delete(cacheKey(reportID))
	return nil
}

func (c *MemoryCache) InvalidateAll(ctx context.Context) error {
	c.cache.Flush()
	return nil
}

// RedisCache shares checklist trees between instances through redis.
// Trees are stored as JSON.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl, prefix: "railinspect:"}, nil
}

func (c *RedisCache) key(reportID uuid.UUID) string {
	return c.prefix + cacheKey(reportID)
}

func (c *RedisCache) Get(ctx context.Context, reportID uuid.UUID) (*railinspect.Checklist, error) {
	data, err := c.client.Get(ctx, c.key(reportID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checklist: %w", err)
	}

	var checklist railinspect.Checklist
	if err := json.Unmarshal(data, &checklist); err != nil {
		// A corrupt entry is a miss.
		c.client.Del(ctx, c.key(reportID))
		return nil, nil
	}
	return &checklist, nil
}

func (c *RedisCache) Set(ctx context.Context, reportID uuid.UUID, checklist *railinspect.Checklist) error {
	data, err := json.Marshal(checklist)
	if err != nil {
		return fmt.Errorf("marshal checklist: %w", err)
	}
	if err := c.client.Set(ctx, c.key(reportID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set checklist: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, reportID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(reportID)).Err(); err != nil {
		return fmt.Errorf("invalidate checklist: %w", err)
	}
	return nil
}

func (c *RedisCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"checklist:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan checklists: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate checklists: %w", err)
	}
	return nil
}

// Ping checks if redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, uuid.UUID) (*railinspect.Checklist, error) { return nil, nil }
func (NopCache) Set(context.Context, uuid.UUID, *railinspect.Checklist) error  { return nil }
func (NopCache) Invalidate(context.Context, uuid.UUID) error                    { return nil }
func (NopCache) InvalidateAll(context.Context) error                            { return nil }
