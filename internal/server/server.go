package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"rpcenable/api/check/v1/checkv1connect"
	"rpcenable/api/rpc/v1/rpcv1connect"
	conf "rpcenable/internal/conf/v1"

	"connectrpc.com/connect"
	connectcors "connectrpc.com/cors"
	"connectrpc.com/otelconnect"
	"github.com/rs/cors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// HealthPath 存活探针路径，注册中心的 HTTP 检查也使用它
const HealthPath = "/healthz"

var Module = fx.Module("server",
	fx.Provide(
		NewHTTPServer,
	),
)

// NewHandler 组装路由、拦截器与 CORS，不含 h2c 与监听
func NewHandler(
	dispatch rpcv1connect.DispatchServiceHandler,
	check checkv1connect.CheckServiceHandler,
	monitoringMiddleware func(http.Handler) http.Handler,
	interceptors ...connect.Interceptor,
) http.Handler {
	opts := connect.WithInterceptors(interceptors...)

	dispatchPath, dispatchHandler := rpcv1connect.NewDispatchServiceHandler(dispatch, opts)
	checkPath, checkHandler := checkv1connect.NewCheckServiceHandler(check, opts)

	mux := http.NewServeMux()
	mux.Handle(dispatchPath, dispatchHandler)
	mux.Handle(checkPath, checkHandler)
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   connectcors.AllowedMethods(),
		AllowedHeaders:   connectcors.AllowedHeaders(),
		ExposedHeaders:   append(connectcors.ExposedHeaders(), rpcv1connect.FaultCodeHeader),
		MaxAge:           7200,
		AllowCredentials: false,
	})

	// 监控中间件 -> CORS -> 路由
	return monitoringMiddleware(corsHandler.Handler(mux))
}

func NewHTTPServer(
	lc fx.Lifecycle,
	cfg *conf.Bootstrap,
	dispatch rpcv1connect.DispatchServiceHandler,
	check checkv1connect.CheckServiceHandler,
	logger *zap.Logger,
	monitoringMiddleware func(http.Handler) http.Handler,
	connectInterceptor connect.UnaryInterceptorFunc,
	requestLog *RequestLogInterceptor,
) (*http.Server, error) {
	otelInterceptor, err := otelconnect.NewInterceptor(
		otelconnect.WithoutServerPeerAttributes(),
	)
	if err != nil {
		return nil, err
	}

	handler := NewHandler(dispatch, check, monitoringMiddleware,
		otelInterceptor, connectInterceptor, requestLog)

	server := &http.Server{
		Addr:         cfg.Server.Http.Addr,
		Handler:      h2c.NewHandler(handler, &http2.Server{}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// 先同步监听，端口被占用时启动直接失败
			ln, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return err
			}
			logger.Info("HTTP server starting", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server stopped unexpectedly", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("HTTP server shutting down...")
			return server.Shutdown(ctx)
		},
	})

	return server, nil
}
