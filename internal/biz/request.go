package biz

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"rpcenable/internal/biz/model"
	conf "rpcenable/internal/conf/v1"
	"rpcenable/internal/data"
	"rpcenable/internal/pkg/rpc"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	requestLogQueueSize = 1024
	requestLogTimeout   = 5 * time.Second
)

// RequestLogUseCase 在后台 goroutine 中写入调用记录，不阻塞调用方
type RequestLogUseCase struct {
	repo     data.RequestLogRepo
	incoming bool
	outgoing bool
	l        *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan func()
	done   chan struct{}
}

func NewRequestLogUseCase(lc fx.Lifecycle, repo data.RequestLogRepo, cfg *conf.Bootstrap, logger *zap.Logger) model.RequestLogUseCase {
	uc := newRequestLogUseCase(repo, cfg.Log, logger)
	lc.Append(fx.Hook{
		OnStop: uc.Close,
	})
	return uc
}

func newRequestLogUseCase(repo data.RequestLogRepo, cfg *conf.Log, logger *zap.Logger) *RequestLogUseCase {
	uc := &RequestLogUseCase{
		repo:  repo,
		l:     logger,
		queue: make(chan func(), requestLogQueueSize),
		done:  make(chan struct{}),
	}
	if cfg != nil {
		uc.incoming = cfg.Incoming
		uc.outgoing = cfg.Outgoing
	}
	go uc.run()
	return uc
}

func (uc *RequestLogUseCase) run() {
	defer close(uc.done)
	for job := range uc.queue {
		job()
	}
}

// Close 停止接收新记录，并等待队列中的记录写完
func (uc *RequestLogUseCase) Close(ctx context.Context) error {
	uc.mu.Lock()
	if !uc.closed {
		uc.closed = true
		close(uc.queue)
	}
	uc.mu.Unlock()

	select {
	case <-uc.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (uc *RequestLogUseCase) IncomingEnabled() bool {
	return uc.incoming
}

func (uc *RequestLogUseCase) RecordIncoming(ctx context.Context, req model.IncomingRequest) {
	if !uc.incoming {
		return
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	uc.enqueue(ctx, func(ctx context.Context) {
		if err := uc.repo.SaveIncoming(ctx, &req); err != nil {
			uc.l.Error("save incoming request failed", zap.String("method", req.Method), zap.Error(err))
		}
	})
}

func (uc *RequestLogUseCase) RecordOutgoing(ctx context.Context, rec rpc.CallRecord) {
	if !uc.outgoing {
		return
	}
	req := model.OutgoingRequest{
		URL:            rec.URL,
		Method:         rec.Method,
		Params:         encodeParams(rec.Params),
		Response:       string(rec.Response),
		CompletionTime: rec.Duration,
		CreatedAt:      time.Now(),
	}
	if rec.Err != nil {
		req.Exception = rec.Err.Error()
	}
	uc.enqueue(ctx, func(ctx context.Context) {
		if err := uc.repo.SaveOutgoing(ctx, &req); err != nil {
			uc.l.Error("save outgoing request failed", zap.String("url", req.URL), zap.Error(err))
		}
	})
}

// enqueue 保留调用方 context 中的链路信息，但不继承其取消
func (uc *RequestLogUseCase) enqueue(ctx context.Context, job func(context.Context)) {
	detached := context.WithoutCancel(ctx)
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	if uc.closed {
		uc.l.Warn("request log is closed, record dropped")
		return
	}
	select {
	case uc.queue <- func() {
		jobCtx, cancel := context.WithTimeout(detached, requestLogTimeout)
		defer cancel()
		job(jobCtx)
	}:
	default:
		uc.l.Warn("request log queue is full, record dropped")
	}
}

func encodeParams(params []any) string {
	raw, err := json.Marshal(params)
	if err != nil {
		return "[]"
	}
	return string(raw)
}
