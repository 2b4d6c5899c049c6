package rpcauth

import (
	"context"
	"fmt"
	"time"
)

// nonceKeyFormat 缓存键，按用户隔离 nonce
const nonceKeyFormat = "_apinonce::%s::%s"

// TTLCache 是支持单键过期时间的键值缓存
type TTLCache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (value string, found bool, err error)
}

// AtomicTTLCache 额外提供原子的"不存在才写入"，NonceStore 会优先使用
type AtomicTTLCache interface {
	TTLCache
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (stored bool, err error)
}

// NonceStore 记录 (username, nonce) 已被使用，条目在有效期后自动过期
type NonceStore struct {
	cache TTLCache
	ttl   time.Duration
}

func NewNonceStore(cache TTLCache, ttl time.Duration) *NonceStore {
	return &NonceStore{cache: cache, ttl: ttl}
}

func nonceKey(username, nonce string) string {
	return fmt.Sprintf(nonceKeyFormat, username, nonce)
}

// MarkUsed 写入键并重置过期时间
func (s *NonceStore) MarkUsed(ctx context.Context, username, nonce string) error {
	if err := s.cache.Set(ctx, nonceKey(username, nonce), "1", s.ttl); err != nil {
		return fmt.Errorf("mark nonce used: %w", err)
	}
	return nil
}

func (s *NonceStore) IsUsed(ctx context.Context, username, nonce string) (bool, error) {
	_, found, err := s.cache.Get(ctx, nonceKey(username, nonce))
	if err != nil {
		return false, fmt.Errorf("lookup nonce: %w", err)
	}
	return found, nil
}

// Consume 在 nonce 未被使用时标记它并返回 true。
// 缓存实现 AtomicTTLCache 时该操作是原子的；否则先查后写，
// 并发的重复请求可能同时通过。
func (s *NonceStore) Consume(ctx context.Context, username, nonce string) (bool, error) {
	if atomic, ok := s.cache.(AtomicTTLCache); ok {
		stored, err := atomic.SetIfAbsent(ctx, nonceKey(username, nonce), "1", s.ttl)
		if err != nil {
			return false, fmt.Errorf("consume nonce: %w", err)
		}
		return stored, nil
	}

	used, err := s.IsUsed(ctx, username, nonce)
	if err != nil {
		return false, err
	}
	if used {
		return false, nil
	}
	if err := s.MarkUsed(ctx, username, nonce); err != nil {
		return false, err
	}
	return true, nil
}
