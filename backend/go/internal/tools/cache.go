package tools

import (
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/pkg/logger"
	"ScamSentinel/backend/go/pkg/util"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/go-redis/redis/v8"
)

// ResultCache 是工具结果的两级缓存：进程内 LRU 在前，Redis TTL 存储在后。
// 键是 (toolName, normalizedValue) 的哈希；过期条目视为未命中，绝不返回陈旧值
// （Redis 靠 EX 过期，本地 LRU 的 TTL 取两者中较短的一侧）。
type ResultCache struct {
	rdb    *redis.Client
	local  *util.LRUCache[string, []byte]
	logger *logger.Logger
}

// localCacheTTL 进程内一级缓存的存活时间，刻意远短于各工具的 Redis TTL。
const localCacheTTL = 5 * time.Minute

// NewResultCache creates a two-tier cache. rdb may be nil, in which case only
// the in-process tier is used (tests, local development).
func NewResultCache(rdb *redis.Client, log *logger.Logger) *ResultCache {
	local, _ := util.NewWithConfig[string, []byte](util.CacheConfig{
		Capacity: 2048,
		TTL:      localCacheTTL,
	})
	return &ResultCache{rdb: rdb, local: local, logger: log}
}

// CacheKey 计算 (tool, normalizedValue) 的缓存键。
func CacheKey(tool, normalizedValue string) string {
	sum := sha1.Sum([]byte(tool + "|" + normalizedValue))
	return "toolcache:" + hex.EncodeToString(sum[:])
}

// Get 返回缓存的工具载荷；miss 或任何后端错误都返回 (nil, false)。
func (c *ResultCache) Get(ctx context.Context, tool, normalizedValue string) ([]byte, bool) {
	key := CacheKey(tool, normalizedValue)
	if payload, ok := c.local.Get(key); ok {
		return payload, true
	}
	if c.rdb == nil {
		return nil, false
	}

	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil && c.logger != nil {
			c.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "cache_error"}).Warn("Redis cache read failed")
		}
		return nil, false
	}
	c.local.Put(key, payload)
	return payload, true
}

// Put 写入缓存。缓存写失败只记日志，不影响调用方。
func (c *ResultCache) Put(ctx context.Context, tool, normalizedValue string, payload []byte, ttl time.Duration) {
	key := CacheKey(tool, normalizedValue)
	c.local.Put(key, payload)
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil && c.logger != nil {
		c.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "cache_error"}).Warn("Redis cache write failed")
	}
}
