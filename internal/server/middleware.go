package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	v1 "rpcenable/api/rpc/v1"
	"rpcenable/api/rpc/v1/rpcv1connect"
	"rpcenable/internal/biz/model"
	"rpcenable/internal/pkg/log"
	"rpcenable/internal/pkg/rpcauth"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const instrumentationName = "rpcenable"

// Metrics 服务端监控指标
type Metrics struct {
	requests     metric.Int64Counter
	duration     metric.Float64Histogram
	errors       metric.Int64Counter
	authFailures metric.Int64Counter
}

// NewMetrics 使用全局 MeterProvider 创建指标，SDK 初始化后自动生效
func NewMetrics() (*Metrics, error) {
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	var (
		m   Metrics
		err error
	)
	m.requests, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("HTTP 请求总数"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	m.duration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP 请求耗时"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	m.errors, err = meter.Int64Counter(
		"http.server.error.count",
		metric.WithDescription("HTTP 错误总数"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	m.authFailures, err = meter.Int64Counter(
		"rpc.auth.failure.count",
		metric.WithDescription("按错误码统计的认证失败次数"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth failure counter: %w", err)
	}
	return &m, nil
}

// MonitoringMiddleware HTTP 层的链路与指标
func MonitoringMiddleware(logger *zap.Logger, m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			tracer := otel.GetTracerProvider().Tracer(instrumentationName)
			ctx, span := tracer.Start(r.Context(), fmt.Sprintf("%s %s", r.Method, r.URL.Path))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.String("http.host", r.Host),
			)

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r.WithContext(ctx))

			elapsed := time.Since(startTime)
			attributes := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.URL.Path),
				attribute.Int("http.status_code", ww.statusCode),
			)
			m.requests.Add(ctx, 1, attributes)
			m.duration.Record(ctx, float64(elapsed.Milliseconds()), attributes)
			span.SetAttributes(attribute.Int("http.status_code", ww.statusCode))

			if ww.statusCode >= 400 {
				m.errors.Add(ctx, 1, attributes)
				span.SetStatus(codes.Error, http.StatusText(ww.statusCode))
				logger.Warn("HTTP request error",
					log.Context(ctx),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.statusCode),
					zap.Duration("duration", elapsed),
					zap.String("user_agent", r.UserAgent()),
				)
				return
			}
			span.SetStatus(codes.Ok, "OK")
			logger.Debug("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.statusCode),
				zap.Duration("duration", elapsed),
			)
		})
	}
}

// ConnectMonitoringInterceptor Connect 专用的监控拦截器
func ConnectMonitoringInterceptor(logger *zap.Logger, m *Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			startTime := time.Now()
			procedure := req.Spec().Procedure

			tracer := otel.GetTracerProvider().Tracer(instrumentationName)
			ctx, span := tracer.Start(ctx, procedure)
			defer span.End()

			span.SetAttributes(
				attribute.String("rpc.system", "connect"),
				attribute.String("rpc.service", procedure),
				attribute.String("rpc.peer", req.Peer().Addr),
			)

			resp, err := next(ctx, req)

			elapsed := time.Since(startTime)
			attributes := metric.WithAttributes(attribute.String("rpc.service", procedure))
			m.requests.Add(ctx, 1, attributes)
			m.duration.Record(ctx, float64(elapsed.Milliseconds()), attributes)

			if err != nil {
				m.errors.Add(ctx, 1, attributes)
				span.SetStatus(codes.Error, err.Error())
				logger.Info("RPC request failed",
					log.Context(ctx),
					zap.String("service", procedure),
					zap.Duration("duration", elapsed),
					zap.Error(err),
				)
			} else {
				span.SetStatus(codes.Ok, "OK")
				logger.Debug("RPC request completed",
					zap.String("service", procedure),
					zap.Duration("duration", elapsed),
				)
			}
			return resp, err
		}
	}
}

var _ connect.Interceptor = (*RequestLogInterceptor)(nil)

// RequestLogInterceptor 记录分发调用：方法、参数、来源 IP、耗时与 Fault，
// 并按错误码统计认证失败
type RequestLogInterceptor struct {
	logs    model.RequestLogUseCase
	metrics *Metrics
	l       *zap.Logger
}

func NewRequestLogInterceptor(logs model.RequestLogUseCase, m *Metrics, logger *zap.Logger) *RequestLogInterceptor {
	return &RequestLogInterceptor{
		logs:    logs,
		metrics: m,
		l:       logger,
	}
}

func (i *RequestLogInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().Procedure != rpcv1connect.DispatchServiceCallProcedure {
			return next(ctx, req)
		}
		call, _ := req.Any().(*v1.CallRequest)
		if call == nil {
			return next(ctx, req)
		}

		startTime := time.Now()
		resp, err := next(ctx, req)
		elapsed := time.Since(startTime)

		code, hasCode := faultCode(err)
		if hasCode && isAuthCode(code) {
			name := rpcauth.Code(code).String()
			i.metrics.authFailures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("rpc.auth.failure", name),
				attribute.String("rpc.prefix", call.Prefix),
				attribute.String("rpc.method", call.Method),
			))
			i.l.Warn("rpc authentication failed",
				zap.String("prefix", call.Prefix),
				zap.String("method", call.Method),
				zap.String("reason", name),
				zap.String("peer", req.Peer().Addr),
			)
		}

		if i.logs.IncomingEnabled() {
			params, marshalErr := json.Marshal(call.Params)
			if marshalErr != nil {
				params = []byte("[]")
			}
			i.logs.RecordIncoming(ctx, model.IncomingRequest{
				Method:         call.Method,
				Params:         string(params),
				Prefix:         call.Prefix,
				IP:             peerIP(req.Peer().Addr),
				CompletionTime: elapsed,
				Exception:      exceptionText(err, code, hasCode),
			})
		}
		return resp, err
	}
}

func (i *RequestLogInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *RequestLogInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

func faultCode(err error) (int, bool) {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return 0, false
	}
	code, convErr := strconv.Atoi(connectErr.Meta().Get(rpcv1connect.FaultCodeHeader))
	if convErr != nil {
		return 0, false
	}
	return code, true
}

func isAuthCode(code int) bool {
	return code >= int(rpcauth.CodeMalformedCredentials) && code <= int(rpcauth.CodeSignatureInvalid)
}

func exceptionText(err error, code int, hasCode bool) string {
	if err == nil {
		return ""
	}
	var connectErr *connect.Error
	if hasCode && errors.As(err, &connectErr) {
		return fmt.Sprintf("fault %d: %s", code, connectErr.Message())
	}
	return err.Error()
}

func peerIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// responseWriter 包装 http.ResponseWriter 来捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// MiddlewareModule 提供 Fx 模块
var MiddlewareModule = fx.Module("server.middleware",
	fx.Provide(
		NewMetrics,
		func(logger *zap.Logger, m *Metrics) func(http.Handler) http.Handler {
			return MonitoringMiddleware(logger, m)
		},
		ConnectMonitoringInterceptor,
		NewRequestLogInterceptor,
	),
)
