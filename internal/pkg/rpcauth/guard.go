package rpcauth

import (
	"context"
	"math"
	"strconv"

	"github.com/benbjohnson/clock"
)

// ReplayGuard 校验 nonce 的长度与唯一性，以及时间戳的新鲜度
type ReplayGuard struct {
	cfg   Config
	store *NonceStore
	clock clock.Clock
}

func NewReplayGuard(cfg Config, store *NonceStore, opts ...Option) *ReplayGuard {
	o := buildOptions(opts)
	return &ReplayGuard{
		cfg:   cfg,
		store: store,
		clock: o.clock,
	}
}

func (g *ReplayGuard) Clock() clock.Clock {
	return g.clock
}

// CheckNonce 过短的 nonce 在访问缓存前即被拒绝；通过检查的 nonce 会被标记为已使用，
// 即使后续步骤失败也不会回滚。
func (g *ReplayGuard) CheckNonce(ctx context.Context, nonce, username string) error {
	if len(nonce) < g.cfg.NonceMinLength {
		return newError(CodeNonceTooShort, "nonce is too short (%d < %d)", len(nonce), g.cfg.NonceMinLength)
	}
	fresh, err := g.store.Consume(ctx, username, nonce)
	if err != nil {
		return err
	}
	if !fresh {
		return newError(CodeNonceReplayed, "nonce %s is already used", nonce)
	}
	return nil
}

// CheckTimestamp 要求 ts 为非负十进制整数且与当前时间相差小于有效期，
// 过早与过晚同样拒绝。返回解析后的秒数。
func (g *ReplayGuard) CheckTimestamp(ts string) (int64, error) {
	parsed, err := strconv.ParseUint(ts, 10, 64)
	if err != nil || parsed > math.MaxInt64 {
		return 0, newError(CodeTimestampInvalid, "provided timestamp is invalid: %s", ts)
	}
	value := int64(parsed)
	now := g.clock.Now().Unix()
	diff := now - value
	if diff < 0 {
		diff = -diff
	}
	if diff >= g.cfg.windowSeconds() {
		return 0, newError(CodeTimestampInvalid, "provided timestamp is invalid: %s", ts)
	}
	return value, nil
}
