package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the multi-process Cache implementation: moderator and
// contributor lists are shared across every automod process polling the
// same communities, instead of each process re-fetching independently
// after its own process-local TTL expires.
type RedisCache struct {
	rdb *redis.Client
	ctx context.Context
}

// NewRedisCache wraps an existing redis client. ctx bounds every
// operation's deadline; callers typically pass context.Background() and
// rely on the client's own dial/read timeouts.
func NewRedisCache(rdb *redis.Client, ctx context.Context) *RedisCache {
	return &RedisCache{rdb: rdb, ctx: ctx}
}

const listSeparator = "\x1f" // ASCII unit separator; usernames never contain it

func (c *RedisCache) Get(key string) ([]string, bool) {
	val, err := c.rdb.Get(c.ctx, key).Result()
	if err != nil {
		return nil, false
	}
	if val == "" {
		return []string{}, true
	}
	return strings.Split(val, listSeparator), true
}

func (c *RedisCache) Set(key string, value []string, ttl time.Duration) {
	// best-effort: a cache write failure just means the next Get misses
	// and the caller re-fetches from the item source.
	c.rdb.Set(c.ctx, key, strings.Join(value, listSeparator), ttl)
}
