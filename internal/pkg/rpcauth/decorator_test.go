package rpcauth

import (
	"context"
	"encoding/json"
	"testing"

	"rpcenable/internal/pkg/rpc"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decoratorFixture struct {
	clock    *clock.Mock
	dir      *memDirectory
	user     *testUser
	auth     *Authenticator[*testUser]
	injector *Injector
}

func newDecoratorFixture(t *testing.T) *decoratorFixture {
	t.Helper()
	f := &decoratorFixture{clock: clock.NewMock(), dir: &memDirectory{}}
	f.clock.Set(refTime)
	f.user = f.dir.add(&testUser{Username: "u1", Secret: "s1", Active: true})
	cfg := DefaultConfig()
	guard := NewReplayGuard(cfg, NewNonceStore(newFakeCache(f.clock), cfg.ValidityWindow), WithClock(f.clock))
	f.auth = NewAuthenticator[*testUser](guard, f.dir)
	f.injector = NewInjector(cfg, "u1", "s1", WithClock(f.clock))
	return f
}

func (f *decoratorFixture) params(t *testing.T, values ...any) rpc.Params {
	t.Helper()
	args, err := f.injector.Inject(values)
	require.NoError(t, err)
	params, err := rpc.NewParams(args...)
	require.NoError(t, err)
	return params
}

func TestProtect_PassesIdentityAndDomainArgs(t *testing.T) {
	f := newDecoratorFixture(t)
	var gotUser *testUser
	var gotVar string
	h := Protect(f.auth, func(_ context.Context, user *testUser, params rpc.Params) (any, error) {
		gotUser = user
		v, err := params.String(0)
		gotVar = v
		return "ok", err
	})

	params := f.params(t, "Foo")
	out, err := h(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Same(t, f.user, gotUser)
	assert.Equal(t, "Foo", gotVar)

	// 重复使用同一组参数失败，且不会调用处理函数
	gotUser = nil
	_, err = h(context.Background(), params)
	assert.ErrorIs(t, err, ErrNonceReplayed)
	assert.Nil(t, gotUser)
}

func TestProtect_WrongSecretNeverCallsHandler(t *testing.T) {
	f := newDecoratorFixture(t)
	called := false
	h := Protect(f.auth, func(context.Context, *testUser, rpc.Params) (any, error) {
		called = true
		return nil, nil
	})

	bad := NewInjector(DefaultConfig(), "u1", "s1Dummy", WithClock(f.clock))
	args, err := bad.Inject([]any{"Foo"})
	require.NoError(t, err)
	params, err := rpc.NewParams(args...)
	require.NoError(t, err)

	_, err = h(context.Background(), params)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
	assert.False(t, called)
}

func TestProtect_WithFilter(t *testing.T) {
	f := newDecoratorFixture(t)
	h := Protect(f.auth, func(_ context.Context, u *testUser, _ rpc.Params) (any, error) {
		return u.Username, nil
	}, WithFilter[*testUser](func(u *testUser) bool { return u.Role == "admin" }))

	_, err := h(context.Background(), f.params(t))
	assert.ErrorIs(t, err, ErrUserNotFound)

	f.user.Role = "admin"
	out, err := h(context.Background(), f.params(t))
	require.NoError(t, err)
	assert.Equal(t, "u1", out)
}

func TestProtect_MissingCredentials(t *testing.T) {
	f := newDecoratorFixture(t)
	h := Protect(f.auth, func(context.Context, *testUser, rpc.Params) (any, error) {
		return nil, nil
	})
	params, err := rpc.NewParams("a", "b")
	require.NoError(t, err)

	_, err = h(context.Background(), params)
	assert.ErrorIs(t, err, ErrMalformedCredentials)
	assert.Equal(t, 0, f.dir.findCount())
}

func TestNoAuth(t *testing.T) {
	var gotUser *testUser
	var rest rpc.Params
	h := NoAuth[*testUser](func(_ context.Context, u *testUser, params rpc.Params) (any, error) {
		gotUser = u
		rest = params
		return "pong", nil
	})

	params, err := rpc.NewParams("", "", "", "", "x")
	require.NoError(t, err)
	out, err := h(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
	assert.Nil(t, gotUser)
	assert.Equal(t, 1, rest.Len())

	short, err := rpc.NewParams("only")
	require.NoError(t, err)
	_, err = h(context.Background(), short)
	assert.ErrorIs(t, err, ErrMalformedCredentials)
}

func TestCredentialFromParams(t *testing.T) {
	params := rpc.Params{
		json.RawMessage(`"sGL8uZQ8Lo1dVo49"`),
		json.RawMessage(`1352371368`),
		json.RawMessage(`"u1"`),
		json.RawMessage(`"7ab7"`),
		json.RawMessage(`{"k":1}`),
	}
	cred, rest, err := CredentialFromParams(params)
	require.NoError(t, err)
	assert.Equal(t, Credential{
		Nonce:     "sGL8uZQ8Lo1dVo49",
		Timestamp: "1352371368",
		Username:  "u1",
		Signature: "7ab7",
	}, cred)
	assert.Equal(t, 1, rest.Len())

	params[2] = json.RawMessage(`["u1"]`)
	_, _, err = CredentialFromParams(params)
	assert.ErrorIs(t, err, ErrMalformedCredentials)
}
