package rpcauth

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// 测试中统一使用的参考时间
var refTime = time.Unix(1352371368, 0)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// fakeCache 按注入的时钟判断过期，只实现 TTLCache
type fakeCache struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]cacheEntry
	gets    int
	sets    int
	err     error
}

func newFakeCache(c clock.Clock) *fakeCache {
	return &fakeCache{clock: c, entries: make(map[string]cacheEntry)}
}

func (c *fakeCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.err != nil {
		return c.err
	}
	c.entries[key] = cacheEntry{value: value, expiresAt: c.clock.Now().Add(ttl)}
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.err != nil {
		return "", false, c.err
	}
	e, ok := c.entries[key]
	if !ok || !c.clock.Now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *fakeCache) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets + c.sets
}

// atomicFakeCache 额外实现 SetIfAbsent
type atomicFakeCache struct {
	*fakeCache
	setIfAbsent int
}

func (c *atomicFakeCache) SetIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setIfAbsent++
	if c.err != nil {
		return false, c.err
	}
	if e, ok := c.entries[key]; ok && c.clock.Now().Before(e.expiresAt) {
		return false, nil
	}
	c.entries[key] = cacheEntry{value: value, expiresAt: c.clock.Now().Add(ttl)}
	return true, nil
}

type testUser struct {
	Username  string
	Secret    string
	Active    bool
	Role      string
	LastLogin time.Time
}

func (u *testUser) GetUsername() string { return u.Username }
func (u *testUser) GetSecret() string   { return u.Secret }

// memDirectory 是内存中的用户目录
type memDirectory struct {
	mu         sync.Mutex
	users      []*testUser
	finds      int
	logins     int
	findErr    error
	persistErr error
}

func (d *memDirectory) add(u *testUser) *testUser {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users = append(d.users, u)
	return u
}

func (d *memDirectory) FindActive(_ context.Context, username string, filter Filter[*testUser]) ([]*testUser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finds++
	if d.findErr != nil {
		return nil, d.findErr
	}
	var out []*testUser
	for _, u := range d.users {
		if u.Username != username || !u.Active {
			continue
		}
		if filter != nil && !filter(u) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (d *memDirectory) PersistLastLogin(_ context.Context, u *testUser, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logins++
	if d.persistErr != nil {
		return d.persistErr
	}
	u.LastLogin = at
	return nil
}

func (d *memDirectory) findCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finds
}

// errReader 模拟随机源故障
type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

// sequenceReader 循环输出固定字节，便于断言 nonce 的映射
func sequenceReader(b ...byte) *bytes.Reader {
	buf := bytes.Repeat(b, 64)
	return bytes.NewReader(buf)
}
