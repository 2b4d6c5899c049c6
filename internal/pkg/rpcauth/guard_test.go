package rpcauth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(cache TTLCache, clk clock.Clock) *ReplayGuard {
	cfg := DefaultConfig()
	return NewReplayGuard(cfg, NewNonceStore(cache, cfg.ValidityWindow), WithClock(clk))
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0, 256%len(cfg.NonceAlphabet))
	assert.Len(t, cfg.NonceAlphabet, 64)
}

func TestConfig_Validate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero nonce length":    func(c *Config) { c.NonceMinLength = 0 },
		"sub-second window":    func(c *Config) { c.ValidityWindow = 10 * time.Millisecond },
		"empty alphabet":       func(c *Config) { c.NonceAlphabet = "" },
		"biased alphabet":      func(c *Config) { c.NonceAlphabet = "abc" },
		"duplicate characters": func(c *Config) { c.NonceAlphabet = "aabc" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNonceKeyFormat(t *testing.T) {
	assert.Equal(t, "_apinonce::u1::abc", nonceKey("u1", "abc"))
}

func TestCheckNonce_TooShortSkipsCache(t *testing.T) {
	clk := clock.NewMock()
	cache := newFakeCache(clk)
	guard := newTestGuard(cache, clk)

	err := guard.CheckNonce(context.Background(), "short", "u1")
	assert.ErrorIs(t, err, ErrNonceTooShort)
	assert.Equal(t, 0, cache.calls())
}

func TestCheckNonce_SecondUseIsReplay(t *testing.T) {
	for name, newCache := range map[string]func(clock.Clock) TTLCache{
		"plain": func(c clock.Clock) TTLCache { return newFakeCache(c) },
		"atomic": func(c clock.Clock) TTLCache {
			return &atomicFakeCache{fakeCache: newFakeCache(c)}
		},
	} {
		t.Run(name, func(t *testing.T) {
			clk := clock.NewMock()
			guard := newTestGuard(newCache(clk), clk)
			ctx := context.Background()

			require.NoError(t, guard.CheckNonce(ctx, "sGL8uZQ8Lo1dVo49", "u1"))
			assert.ErrorIs(t, guard.CheckNonce(ctx, "sGL8uZQ8Lo1dVo49", "u1"), ErrNonceReplayed)

			// nonce 按用户隔离
			assert.NoError(t, guard.CheckNonce(ctx, "sGL8uZQ8Lo1dVo49", "u2"))
		})
	}
}

func TestCheckNonce_ExpiresAfterWindow(t *testing.T) {
	clk := clock.NewMock()
	guard := newTestGuard(newFakeCache(clk), clk)
	ctx := context.Background()

	require.NoError(t, guard.CheckNonce(ctx, "sGL8uZQ8Lo1dVo49", "u1"))
	clk.Add(DefaultValidityWindow - time.Second)
	assert.ErrorIs(t, guard.CheckNonce(ctx, "sGL8uZQ8Lo1dVo49", "u1"), ErrNonceReplayed)
	clk.Add(2 * time.Second)
	assert.NoError(t, guard.CheckNonce(ctx, "sGL8uZQ8Lo1dVo49", "u1"))
}

func TestCheckNonce_AtomicCacheUsesSetIfAbsent(t *testing.T) {
	clk := clock.NewMock()
	cache := &atomicFakeCache{fakeCache: newFakeCache(clk)}
	guard := newTestGuard(cache, clk)

	require.NoError(t, guard.CheckNonce(context.Background(), "sGL8uZQ8Lo1dVo49", "u1"))
	assert.Equal(t, 1, cache.setIfAbsent)
	assert.Equal(t, 0, cache.gets)
}

func TestCheckNonce_AtomicCacheConcurrentDuplicates(t *testing.T) {
	clk := clock.NewMock()
	guard := newTestGuard(&atomicFakeCache{fakeCache: newFakeCache(clk)}, clk)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.CheckNonce(context.Background(), "sGL8uZQ8Lo1dVo49", "u1") == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
}

func TestCheckNonce_CacheErrorIsNotAuthError(t *testing.T) {
	clk := clock.NewMock()
	cache := newFakeCache(clk)
	cache.err = errors.New("connection refused")
	guard := newTestGuard(cache, clk)

	err := guard.CheckNonce(context.Background(), "sGL8uZQ8Lo1dVo49", "u1")
	require.Error(t, err)
	_, isAuth := CodeOf(err)
	assert.False(t, isAuth)
}

func TestCheckTimestamp(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(refTime)
	guard := newTestGuard(newFakeCache(clk), clk)
	now := refTime.Unix()
	window := int64(DefaultValidityWindow / time.Second)

	got, err := guard.CheckTimestamp(strconv.FormatInt(now, 10))
	require.NoError(t, err)
	assert.Equal(t, now, got)

	_, err = guard.CheckTimestamp(strconv.FormatInt(now-window+1, 10))
	assert.NoError(t, err)
	_, err = guard.CheckTimestamp(strconv.FormatInt(now+window-1, 10))
	assert.NoError(t, err)

	for _, ts := range []string{
		strconv.FormatInt(now-window-1, 10),
		strconv.FormatInt(now+window+1, 10),
		strconv.FormatInt(now-window, 10),
		strconv.FormatInt(now+window, 10),
		"",
		"-1",
		"+1352371368",
		"1352371368.5",
		"abc",
		"99999999999999999999999",
	} {
		_, err := guard.CheckTimestamp(ts)
		assert.ErrorIs(t, err, ErrTimestampInvalid, "timestamp %q", ts)
	}
}
