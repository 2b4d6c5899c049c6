package rpcauth

import (
	"bytes"
	"context"
	"encoding/json"

	"rpcenable/internal/pkg/rpc"
)

// credentialArgs 调用约定中位于最前面的认证参数个数
const credentialArgs = 4

// Handler 接收认证后的用户与剩余的业务参数
type Handler[U Identity] func(ctx context.Context, user U, params rpc.Params) (any, error)

type decoratorConfig[U Identity] struct {
	filter Filter[U]
}

type DecoratorOption[U Identity] func(*decoratorConfig[U])

// WithFilter 为单个端点附加用户筛选条件，例如只允许启用的管理员
func WithFilter[U Identity](filter Filter[U]) DecoratorOption[U] {
	return func(c *decoratorConfig[U]) {
		c.filter = filter
	}
}

// Protect 将 h 包装为 rpc.Handler：前四个参数作为认证信息消费，
// 认证成功后以解析出的用户调用 h，失败时直接返回 *Error。
// 针对其它用户模型认证时传入对应类型的 Authenticator 即可。
func Protect[U Identity](a *Authenticator[U], h Handler[U], opts ...DecoratorOption[U]) rpc.Handler {
	var cfg decoratorConfig[U]
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.filter != nil {
		a = a.Filtered(cfg.filter)
	}
	return func(ctx context.Context, params rpc.Params) (any, error) {
		cred, rest, err := CredentialFromParams(params)
		if err != nil {
			return nil, err
		}
		user, err := a.Authenticate(ctx, cred)
		if err != nil {
			return nil, err
		}
		return h(ctx, user, rest)
	}
}

// NoAuth 保持统一的调用约定但不做认证：丢弃四个认证参数，以零值用户调用 h
func NoAuth[U Identity](h Handler[U]) rpc.Handler {
	return func(ctx context.Context, params rpc.Params) (any, error) {
		if params.Len() < credentialArgs {
			return nil, newError(CodeMalformedCredentials,
				"expected %d authentication arguments, got %d", credentialArgs, params.Len())
		}
		var zero U
		return h(ctx, zero, params.Slice(credentialArgs))
	}
}

// CredentialFromParams 拆出前四个参数。时间戳可以是 JSON 字符串或整数，
// 其合法性留给 ReplayGuard 判断。
func CredentialFromParams(params rpc.Params) (Credential, rpc.Params, error) {
	if params.Len() < credentialArgs {
		return Credential{}, nil, newError(CodeMalformedCredentials,
			"expected %d authentication arguments, got %d", credentialArgs, params.Len())
	}

	var cred Credential
	fields := []*string{&cred.Nonce, &cred.Timestamp, &cred.Username, &cred.Signature}
	for i, dst := range fields {
		s, ok := scalarText(params[i])
		if !ok {
			return Credential{}, nil, newError(CodeMalformedCredentials,
				"authentication argument %d must be a string", i)
		}
		*dst = s
	}
	return cred, params.Slice(credentialArgs), nil
}

func scalarText(raw json.RawMessage) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}
