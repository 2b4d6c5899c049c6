package model

import "context"

const (
	StatusReady     = "Ready"
	StatusUnhealthy = "Unhealthy"
)

// CheckUseCase 报告服务是否可以接受认证调用
type CheckUseCase interface {
	Ready(ctx context.Context, q ReadinessQuery) (Readiness, error)
}

type (
	ReadinessQuery struct{}
	// Readiness 中 Details 记录各依赖的状态或失败原因
	Readiness struct {
		Status  string
		Details map[string]string
	}
)
