package rpcv1connect

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	v1 "rpcenable/api/rpc/v1"

	"connectrpc.com/connect"
)

const (
	// DispatchServiceName 是分发服务的完整名称
	DispatchServiceName = "rpcenable.rpc.v1.DispatchService"
	// DispatchServiceCallProcedure 是 Call 方法的完整路径
	DispatchServiceCallProcedure = "/rpcenable.rpc.v1.DispatchService/Call"
	// FaultCodeHeader 在错误响应中携带稳定的数字错误码
	FaultCodeHeader = "Rpc-Fault-Code"
)

// Codec 使用 encoding/json 编解码普通 Go 结构体
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

// DispatchServiceHandler 由服务端实现
type DispatchServiceHandler interface {
	Call(context.Context, *connect.Request[v1.CallRequest]) (*connect.Response[v1.CallResponse], error)
}

// NewDispatchServiceHandler 返回挂载路径和对应的 http.Handler
func NewDispatchServiceHandler(svc DispatchServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	callHandler := connect.NewUnaryHandler(
		DispatchServiceCallProcedure,
		svc.Call,
		opts...,
	)
	return "/" + DispatchServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case DispatchServiceCallProcedure:
			callHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// DispatchServiceClient 是分发服务的客户端
type DispatchServiceClient interface {
	Call(context.Context, *connect.Request[v1.CallRequest]) (*connect.Response[v1.CallResponse], error)
}

type dispatchServiceClient struct {
	call *connect.Client[v1.CallRequest, v1.CallResponse]
}

func NewDispatchServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) DispatchServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &dispatchServiceClient{
		call: connect.NewClient[v1.CallRequest, v1.CallResponse](
			httpClient,
			baseURL+DispatchServiceCallProcedure,
			opts...,
		),
	}
}

func (c *dispatchServiceClient) Call(ctx context.Context, req *connect.Request[v1.CallRequest]) (*connect.Response[v1.CallResponse], error) {
	return c.call.CallUnary(ctx, req)
}
