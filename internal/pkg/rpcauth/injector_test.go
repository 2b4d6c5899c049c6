package rpcauth

import (
	"strconv"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjector_Generate(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(refTime)
	cfg := DefaultConfig()
	inj := NewInjector(cfg, "u1", "s1", WithClock(clk))

	cred, err := inj.Generate()
	require.NoError(t, err)

	assert.Len(t, cred.Nonce, cfg.NonceMinLength)
	for _, ch := range cred.Nonce {
		assert.True(t, strings.ContainsRune(cfg.NonceAlphabet, ch), "unexpected nonce character %q", ch)
	}
	assert.Equal(t, strconv.FormatInt(refTime.Unix(), 10), cred.Timestamp)
	assert.Equal(t, "u1", cred.Username)
	assert.Len(t, cred.Signature, 64)
	assert.Equal(t, ComputeSignature(cred.Nonce, refTime.Unix(), "u1", "s1"), cred.Signature)
}

func TestInjector_FreshNoncePerCall(t *testing.T) {
	inj := NewInjector(DefaultConfig(), "u1", "s1")
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		cred, err := inj.Generate()
		require.NoError(t, err)
		_, dup := seen[cred.Nonce]
		require.False(t, dup, "nonce %s generated twice", cred.Nonce)
		seen[cred.Nonce] = struct{}{}
	}
}

func TestInjector_Inject(t *testing.T) {
	inj := NewInjector(DefaultConfig(), "u1", "s1")

	out, err := inj.Inject([]any{"Foo", 42})
	require.NoError(t, err)
	require.Len(t, out, 6)
	assert.Equal(t, "u1", out[2])
	assert.Equal(t, "Foo", out[4])
	assert.Equal(t, 42, out[5])

	again, err := inj.Inject(nil)
	require.NoError(t, err)
	require.Len(t, again, 4)
	assert.NotEqual(t, out[0], again[0])
}

func TestInjector_RandomFailure(t *testing.T) {
	inj := NewInjector(DefaultConfig(), "u1", "s1", WithRandom(errReader{}))
	_, err := inj.Generate()
	assert.Error(t, err)
	_, err = inj.Inject([]any{"x"})
	assert.Error(t, err)
}

func TestGenerateNonce_ByteMapping(t *testing.T) {
	alphabet := DefaultNonceAlphabet
	// 0 -> 'a'，63 -> '_'，64 回绕到 'a'，255 -> '_'
	nonce, err := GenerateNonce(sequenceReader(0, 63, 64, 255), alphabet, 4)
	require.NoError(t, err)
	assert.Equal(t, "a_a_", nonce)
}

func TestGenerateNonce_EmptyAlphabet(t *testing.T) {
	_, err := GenerateNonce(sequenceReader(1), "", 4)
	assert.Error(t, err)
}
