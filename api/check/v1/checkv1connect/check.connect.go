package checkv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	CheckServiceName           = "rpcenable.check.v1.CheckService"
	CheckServiceReadyProcedure = "/rpcenable.check.v1.CheckService/Ready"
)

// CheckServiceHandler 健康检查服务，直接使用 protobuf 的通用类型
type CheckServiceHandler interface {
	Ready(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error)
}

func NewCheckServiceHandler(svc CheckServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	readyHandler := connect.NewUnaryHandler(
		CheckServiceReadyProcedure,
		svc.Ready,
		opts...,
	)
	return "/" + CheckServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case CheckServiceReadyProcedure:
			readyHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

type CheckServiceClient interface {
	Ready(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error)
}

type checkServiceClient struct {
	ready *connect.Client[emptypb.Empty, structpb.Struct]
}

func NewCheckServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) CheckServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &checkServiceClient{
		ready: connect.NewClient[emptypb.Empty, structpb.Struct](
			httpClient,
			baseURL+CheckServiceReadyProcedure,
			opts...,
		),
	}
}

func (c *checkServiceClient) Ready(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	return c.ready.CallUnary(ctx, req)
}
