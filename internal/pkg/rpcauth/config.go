package rpcauth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	DefaultNonceMinLength = 16
	DefaultValidityWindow = 300 * time.Second
	// DefaultNonceAlphabet 长度为 64，可整除 256，按字节取模不会产生偏差
	DefaultNonceAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"
)

// Config 在启动时确定，之后只读
type Config struct {
	NonceMinLength int
	ValidityWindow time.Duration
	NonceAlphabet  string
}

func DefaultConfig() Config {
	return Config{
		NonceMinLength: DefaultNonceMinLength,
		ValidityWindow: DefaultValidityWindow,
		NonceAlphabet:  DefaultNonceAlphabet,
	}
}

func (c Config) Validate() error {
	if c.NonceMinLength <= 0 {
		return fmt.Errorf("nonce min length must be positive, got %d", c.NonceMinLength)
	}
	if c.ValidityWindow < time.Second {
		return fmt.Errorf("validity window must be at least 1s, got %s", c.ValidityWindow)
	}
	if c.NonceAlphabet == "" {
		return errors.New("nonce alphabet is empty")
	}
	if len(c.NonceAlphabet) > 256 || 256%len(c.NonceAlphabet) != 0 {
		return fmt.Errorf("nonce alphabet length %d must divide 256", len(c.NonceAlphabet))
	}
	seen := make(map[byte]struct{}, len(c.NonceAlphabet))
	for i := 0; i < len(c.NonceAlphabet); i++ {
		ch := c.NonceAlphabet[i]
		if _, dup := seen[ch]; dup {
			return fmt.Errorf("nonce alphabet has duplicate character %q", ch)
		}
		seen[ch] = struct{}{}
	}
	return nil
}

func (c Config) windowSeconds() int64 {
	return int64(c.ValidityWindow / time.Second)
}

type options struct {
	clock  clock.Clock
	random io.Reader
}

// Option 替换时钟或随机源，主要用于测试
type Option func(*options)

func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func WithRandom(r io.Reader) Option {
	return func(o *options) {
		o.random = r
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock:  clock.New(),
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
