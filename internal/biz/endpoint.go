package biz

import (
	"context"
	"errors"
	"time"

	"rpcenable/internal/biz/model"
	"rpcenable/internal/pkg/rpc"
	"rpcenable/internal/pkg/rpcauth"
)

const AdminPrefix = "admin"

// authArgs 是每个方法签名中前四个认证参数
var authArgs = []string{"string", "string", "string", "string"}

// EndpointUseCase 注册对外提供的方法并负责分发
type EndpointUseCase struct {
	registry *rpc.Registry
	auth     *rpcauth.Authenticator[*model.APIUser]
	users    model.UserUseCase
}

func NewEndpointUseCase(
	registry *rpc.Registry,
	auth *rpcauth.Authenticator[*model.APIUser],
	users model.UserUseCase,
) (model.DispatchUseCase, error) {
	uc := &EndpointUseCase{
		registry: registry,
		auth:     auth,
		users:    users,
	}
	if err := uc.register(); err != nil {
		return nil, err
	}
	return uc, nil
}

func (uc *EndpointUseCase) Call(ctx context.Context, prefix, method string, params rpc.Params) (any, error) {
	return uc.registry.Dispatch(ctx, prefix, method, params)
}

func (uc *EndpointUseCase) register() error {
	admin := rpcauth.WithFilter[*model.APIUser](model.IsAdmin)
	endpoints := []struct {
		prefix  string
		name    string
		handler rpc.Handler
		sig     []string
		help    string
	}{
		{"", "ping", rpcauth.NoAuth[*model.APIUser](uc.ping),
			signature("string"), "Returns pong. Authentication arguments are accepted but not checked."},
		{"", "whoami", rpcauth.Protect(uc.auth, uc.whoami),
			signature("struct"), "Returns the authenticated user."},
		{"", "echo", rpcauth.Protect(uc.auth, uc.echo),
			signature("array"), "Returns the arguments following the authentication arguments."},
		{AdminPrefix, "createUser", rpcauth.Protect(uc.auth, uc.createUser, admin),
			signature("struct", "string", "string"), "Creates an API user and returns its generated secret."},
		{AdminPrefix, "setActive", rpcauth.Protect(uc.auth, uc.setActive, admin),
			signature("boolean", "string", "boolean"), "Enables or disables an API user."},
	}
	for _, ep := range endpoints {
		err := uc.registry.Register(ep.prefix, ep.name, ep.handler,
			rpc.WithSignature(ep.sig...),
			rpc.WithHelp(ep.help),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// signature 返回值类型在前，随后是认证参数和业务参数
func signature(ret string, args ...string) []string {
	out := append([]string{ret}, authArgs...)
	return append(out, args...)
}

func (uc *EndpointUseCase) ping(context.Context, *model.APIUser, rpc.Params) (any, error) {
	return "pong", nil
}

func (uc *EndpointUseCase) whoami(_ context.Context, user *model.APIUser, _ rpc.Params) (any, error) {
	out := map[string]any{
		"username": user.Username,
		"role":     user.Role,
	}
	if user.LastLogin != nil {
		out["last_login"] = user.LastLogin.UTC().Format(time.RFC3339)
	}
	return out, nil
}

func (uc *EndpointUseCase) echo(_ context.Context, _ *model.APIUser, params rpc.Params) (any, error) {
	return params.Values(), nil
}

func (uc *EndpointUseCase) createUser(ctx context.Context, _ *model.APIUser, params rpc.Params) (any, error) {
	username, err := params.String(0)
	if err != nil {
		return nil, err
	}
	role := model.RoleUser
	if params.Len() > 1 {
		if role, err = params.String(1); err != nil {
			return nil, err
		}
	}
	user, err := uc.users.CreateUser(ctx, username, role)
	if err != nil {
		return nil, userFault(err)
	}
	return map[string]any{
		"username": user.Username,
		"role":     user.Role,
		"secret":   user.Secret,
	}, nil
}

func (uc *EndpointUseCase) setActive(ctx context.Context, _ *model.APIUser, params rpc.Params) (any, error) {
	username, err := params.String(0)
	if err != nil {
		return nil, err
	}
	active, err := params.Bool(1)
	if err != nil {
		return nil, err
	}
	if err := uc.users.SetActive(ctx, username, active); err != nil {
		return nil, userFault(err)
	}
	return true, nil
}

// userFault 将账号管理错误转换为稳定的 Fault，其它错误原样返回
func userFault(err error) error {
	switch {
	case errors.Is(err, model.ErrUserAlreadyExists):
		return &rpc.Fault{Code: model.FaultUserExists, Message: err.Error()}
	case errors.Is(err, model.ErrUserNotFound):
		return &rpc.Fault{Code: model.FaultUserNotFound, Message: err.Error()}
	case errors.Is(err, ErrInvalidUser):
		return &rpc.Fault{Code: model.FaultInvalidUser, Message: err.Error()}
	default:
		return err
	}
}
