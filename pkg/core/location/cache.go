package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds recently resolved coordinates
type Cache interface {
	Get(ctx context.Context, key string) (Fix, bool, error)
	Set(ctx context.Context, key string, fix Fix, ttl time.Duration) error
}

type memoryEntry struct {
	fix     Fix
	expires time.Time
}

// MemoryCache is a process-local Cache
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Fix, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Fix{}, false, nil
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, key)
		return Fix{}, false, nil
	}
	return entry.fix, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, fix Fix, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{fix: fix, expires: c.now().Add(ttl)}
	return nil
}

const (
	redisKeyPrefix      = "volunteer-hours:location:"
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// NewRedisClient returns a configured go-redis client and validates the connection with PING
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis: addr is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// RedisCache shares resolved coordinates between server instances
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Fix, bool, error) {
	result, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return Fix{}, false, nil
	}
	if err != nil {
		return Fix{}, false, fmt.Errorf("failed to read cached location: %w", err)
	}

	var fix Fix
	if err := json.Unmarshal([]byte(result), &fix); err != nil {
		return Fix{}, false, fmt.Errorf("failed to decode cached location: %w", err)
	}
	return fix, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, fix Fix, ttl time.Duration) error {
	data, err := json.Marshal(fix)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache location: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
