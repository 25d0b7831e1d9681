package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/platewise/platewise-backend/internal/logger"
)

// HotCache is a best-effort byte cache in front of the DB fetch cache. A nil
// *HotCache is valid and means "no redis configured".
type HotCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewHotCache returns (nil, nil) when REDIS_ADDR is unset: the hot layer is
// optional and the fetch cache works without it.
func NewHotCache(log *logger.Logger) (*HotCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &HotCache{
		log: log.With("service", "RedisHotCache"),
		rdb: rdb,
	}, nil
}

func (c *HotCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Debug("hot cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

func (c *HotCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, key, val, ttl).Err(); err != nil {
		c.log.Debug("hot cache set failed", "key", key, "error", err)
	}
}

func (c *HotCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
