package data

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	conf "rpcenable/internal/conf/v1"
	"rpcenable/internal/pkg/rpcauth"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	NonceDriverRedis  = "redis"
	NonceDriverMemory = "memory"

	defaultMemoryNonceSize = 100000
)

var (
	_ rpcauth.AtomicTTLCache = (*RedisNonceCache)(nil)
	_ rpcauth.AtomicTTLCache = (*MemoryNonceCache)(nil)
)

// redisKV 是 nonce 缓存用到的 Redis 命令
type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisNonceCache 多实例部署时共享 nonce 记录，SetIfAbsent 基于 SET NX
type RedisNonceCache struct {
	rdb redisKV
}

func NewRedisNonceCache(rdb redisKV) *RedisNonceCache {
	return &RedisNonceCache{rdb: rdb}
}

func (c *RedisNonceCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisNonceCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisNonceCache) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

var (
	// ErrNonceCacheFull 容量已满且没有过期条目可清理，拒绝写入而不是淘汰未过期的 nonce
	ErrNonceCacheFull = errors.New("nonce cache is full")
	// ErrNonceTTLTooLong 写入的 TTL 超过缓存构造时的 TTL，条目会提前过期
	ErrNonceTTLTooLong = errors.New("nonce ttl exceeds cache ttl")
)

// MemoryNonceCache 单实例使用的进程内缓存。所有条目使用构造时的 TTL，
// 写入更长的 TTL 返回 ErrNonceTTLTooLong；容量满时先清理过期条目，
// 仍然满则返回 ErrNonceCacheFull。
type MemoryNonceCache struct {
	mu   sync.Mutex
	size int
	ttl  time.Duration
	lru  *expirable.LRU[string, string]
}

func NewMemoryNonceCache(size int, ttl time.Duration) *MemoryNonceCache {
	if size <= 0 {
		size = defaultMemoryNonceSize
	}
	return &MemoryNonceCache{
		size: size,
		ttl:  ttl,
		lru:  expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (c *MemoryNonceCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reserve(key, ttl); err != nil {
		return err
	}
	c.lru.Add(key, value)
	return nil
}

func (c *MemoryNonceCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.lru.Get(key)
	return v, ok, nil
}

func (c *MemoryNonceCache) SetIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lru.Peek(key); ok {
		return false, nil
	}
	if err := c.reserve(key, ttl); err != nil {
		return false, err
	}
	c.lru.Add(key, value)
	return true, nil
}

func (c *MemoryNonceCache) Len() int {
	return c.lru.Len()
}

// reserve 确认 key 可以写入且不会挤掉未过期的条目，调用方持有 c.mu
func (c *MemoryNonceCache) reserve(key string, ttl time.Duration) error {
	if ttl > c.ttl {
		return fmt.Errorf("%w: %s > %s", ErrNonceTTLTooLong, ttl, c.ttl)
	}
	if c.lru.Contains(key) || c.lru.Len() < c.size {
		return nil
	}
	// 后台清理按桶进行，过期条目可能还占着容量
	for _, k := range c.lru.Keys() {
		if _, ok := c.lru.Peek(k); !ok {
			c.lru.Remove(k)
		}
	}
	if c.lru.Len() >= c.size {
		return ErrNonceCacheFull
	}
	return nil
}

// NewNonceCache 按 data.nonce_cache.driver 选择后端，未配置时有 Redis 就用 Redis
func NewNonceCache(cfg *conf.Bootstrap, rdb *redis.Client, logger *zap.Logger) (rpcauth.TTLCache, error) {
	driver := ""
	size := 0
	if nc := cfg.Data.NonceCache; nc != nil {
		driver = nc.Driver
		size = int(nc.Size)
	}
	if driver == "" {
		driver = NonceDriverMemory
		if rdb != nil {
			driver = NonceDriverRedis
		}
	}

	switch driver {
	case NonceDriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("nonce cache driver %q requires data.redis", driver)
		}
		logger.Info("using redis nonce cache")
		return NewRedisNonceCache(rdb), nil
	case NonceDriverMemory:
		ttl := rpcauth.DefaultValidityWindow
		if cfg.Auth != nil && cfg.Auth.ValidityWindowSeconds > 0 {
			ttl = time.Duration(cfg.Auth.ValidityWindowSeconds) * time.Second
		}
		logger.Info("using in-memory nonce cache", zap.Int("size", size), zap.Duration("ttl", ttl))
		return NewMemoryNonceCache(size, ttl), nil
	default:
		return nil, fmt.Errorf("unknown nonce cache driver %q", driver)
	}
}
