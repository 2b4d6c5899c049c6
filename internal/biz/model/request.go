package model

import (
	"context"
	"time"

	"rpcenable/internal/pkg/rpc"
)

// IncomingRequest 一次入站调用的记录
type IncomingRequest struct {
	ID             string
	Method         string
	Params         string
	Prefix         string
	IP             string
	CompletionTime time.Duration
	Exception      string
	CreatedAt      time.Time
}

// OutgoingRequest 一次出站调用的记录
type OutgoingRequest struct {
	ID             string
	URL            string
	Method         string
	Params         string
	Response       string
	CompletionTime time.Duration
	Exception      string
	CreatedAt      time.Time
}

// RequestLogUseCase 异步记录调用日志，记录失败不影响调用本身
type RequestLogUseCase interface {
	rpc.Recorder
	RecordIncoming(ctx context.Context, req IncomingRequest)
	IncomingEnabled() bool
}
