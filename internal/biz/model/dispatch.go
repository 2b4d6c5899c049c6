package model

import (
	"context"

	"rpcenable/internal/pkg/rpc"
)

// DispatchUseCase 按前缀和方法名分发调用
type DispatchUseCase interface {
	Call(ctx context.Context, prefix, method string, params rpc.Params) (any, error)
}
