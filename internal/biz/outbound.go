package biz

import (
	"rpcenable/internal/biz/model"
	"rpcenable/internal/pkg/rpc"
	"rpcenable/internal/pkg/rpcauth"

	"connectrpc.com/connect"
)

// OutboundFactory 创建调用其它 rpcenable 服务的客户端，
// 每次调用自动注入新的认证参数并记录出站日志
type OutboundFactory struct {
	cfg      rpcauth.Config
	recorder rpc.Recorder
}

func NewOutboundFactory(cfg rpcauth.Config, recorder model.RequestLogUseCase) *OutboundFactory {
	f := &OutboundFactory{cfg: cfg}
	if recorder != nil {
		f.recorder = recorder
	}
	return f
}

func (f *OutboundFactory) Client(httpClient connect.HTTPClient, baseURL, username, secret string, opts ...rpc.ClientOption) *rpc.Client {
	injector := rpcauth.NewInjector(f.cfg, username, secret)
	base := []rpc.ClientOption{rpc.WithParamHook(injector.Inject)}
	if f.recorder != nil {
		base = append(base, rpc.WithRecorder(f.recorder))
	}
	return rpc.NewClient(httpClient, baseURL, append(base, opts...)...)
}
