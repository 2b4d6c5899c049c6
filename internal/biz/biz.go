package biz

import (
	"rpcenable/internal/pkg/rpc"

	"go.uber.org/fx"
)

var Module = fx.Module("biz",
	fx.Provide(
		rpc.NewRegistry,
		NewAuthConfig,
		NewAuthenticator,
		NewUserUseCase,
		NewRequestLogUseCase,
		NewEndpointUseCase,
		NewOutboundFactory,
		NewCheckUseCase,
	),
)
