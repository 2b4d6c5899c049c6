package rpcauth

import (
	"context"
	"fmt"
	"time"
)

// Credential 是一次调用携带的认证参数，只在本次校验中使用
type Credential struct {
	Nonce     string
	Timestamp string
	Username  string
	Signature string
}

// Args 按调用约定的顺序返回四个认证参数
func (c Credential) Args() []any {
	return []any{c.Nonce, c.Timestamp, c.Username, c.Signature}
}

// Identity 是可被认证的用户
type Identity interface {
	GetUsername() string
	GetSecret() string
}

// Filter 进一步限定候选用户，例如只允许管理员。nil 表示不限定。
type Filter[U Identity] func(U) bool

// Directory 提供按用户名查询启用用户的能力
type Directory[U Identity] interface {
	// FindActive 返回用户名匹配、处于启用状态且满足 filter 的全部用户
	FindActive(ctx context.Context, username string, filter Filter[U]) ([]U, error)
	PersistLastLogin(ctx context.Context, user U, at time.Time) error
}

// Authenticator 按固定顺序执行认证：nonce、时间戳、用户、签名，最后记录登录时间。
// 任意一步失败即终止，不返回用户。
type Authenticator[U Identity] struct {
	guard     *ReplayGuard
	directory Directory[U]
	filter    Filter[U]
}

func NewAuthenticator[U Identity](guard *ReplayGuard, directory Directory[U]) *Authenticator[U] {
	return &Authenticator[U]{
		guard:     guard,
		directory: directory,
	}
}

// Filtered 返回一个附加了默认 filter 的副本，共享同一个 ReplayGuard
func (a *Authenticator[U]) Filtered(filter Filter[U]) *Authenticator[U] {
	cp := *a
	cp.filter = andFilter(a.filter, filter)
	return &cp
}

// ResolveUser 查询唯一的启用用户。没有匹配返回 ErrUserNotFound，
// 多于一个返回 ErrAmbiguousUser。
func (a *Authenticator[U]) ResolveUser(ctx context.Context, username string, filter Filter[U]) (U, error) {
	var zero U
	users, err := a.directory.FindActive(ctx, username, andFilter(a.filter, filter))
	if err != nil {
		return zero, fmt.Errorf("find user %s: %w", username, err)
	}
	switch len(users) {
	case 0:
		return zero, newError(CodeUserNotFound, "provided username cannot be found: %s", username)
	case 1:
		return users[0], nil
	default:
		return zero, newError(CodeAmbiguousUser, "multiple users found with username: %s", username)
	}
}

func (a *Authenticator[U]) Authenticate(ctx context.Context, cred Credential) (U, error) {
	var zero U
	if err := a.guard.CheckNonce(ctx, cred.Nonce, cred.Username); err != nil {
		return zero, err
	}
	if _, err := a.guard.CheckTimestamp(cred.Timestamp); err != nil {
		return zero, err
	}
	user, err := a.ResolveUser(ctx, cred.Username, nil)
	if err != nil {
		return zero, err
	}

	expected := ComputeSignatureString(cred.Nonce, cred.Timestamp, cred.Username, user.GetSecret())
	if !VerifySignature(expected, cred.Signature) {
		return zero, newError(CodeSignatureInvalid, "signature is invalid for user %s", cred.Username)
	}

	if err := a.directory.PersistLastLogin(ctx, user, a.guard.Clock().Now()); err != nil {
		return zero, fmt.Errorf("persist last login: %w", err)
	}
	return user, nil
}

func andFilter[U Identity](a, b Filter[U]) Filter[U] {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(u U) bool {
		return a(u) && b(u)
	}
}
