package log

import (
	"context"
	"fmt"
	"os"

	conf "rpcenable/internal/conf/v1"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"

	instrumentationName = "rpcenable"
)

// Module 提供 Fx 模块
var Module = fx.Module("log",
	fx.Provide(
		NewLogger,
	),
)

// NewLogger 根据配置创建 logger，退出时刷新缓冲
func NewLogger(lc fx.Lifecycle, cfg *conf.Bootstrap) (*zap.Logger, error) {
	logger, err := New(cfg.Log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// 标准输出在部分平台上 Sync 会返回 EINVAL，忽略即可
			_ = logger.Sync()
			return nil
		},
	})
	return logger, nil
}

// New 创建同时写入标准输出与 OpenTelemetry 日志管道的 logger。
// 未安装 OTel SDK 时后者为空操作。
func New(cfg *conf.Log) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	format := FormatJSON
	if cfg != nil {
		if cfg.Level != "" {
			parsed, err := zapcore.ParseLevel(cfg.Level)
			if err != nil {
				return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
			}
			level = parsed
		}
		if cfg.Format != "" {
			format = cfg.Format
		}
	}

	encoder, err := newEncoder(format)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
		NewOTelCore(global.GetLoggerProvider(), level),
	)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// NewOTelCore 通过 otelzap 把日志写入 provider，低于 enab 的级别不导出
func NewOTelCore(provider otellog.LoggerProvider, enab zapcore.LevelEnabler) zapcore.Core {
	return &leveledCore{
		Core:         otelzap.NewCore(instrumentationName, otelzap.WithLoggerProvider(provider)),
		LevelEnabler: enab,
	}
}

// Context 携带请求上下文的字段，OTel 日志记录从中取得 trace 与 span，标准输出忽略它
func Context(ctx context.Context) zap.Field {
	return zap.Field{Key: "ctx", Type: zapcore.SkipType, Interface: ctx}
}

// leveledCore 在 otelzap 之上叠加本地日志级别
type leveledCore struct {
	zapcore.Core
	zapcore.LevelEnabler
}

func (c *leveledCore) Enabled(l zapcore.Level) bool {
	return c.LevelEnabler.Enabled(l) && c.Core.Enabled(l)
}

func (c *leveledCore) With(fields []zapcore.Field) zapcore.Core {
	return &leveledCore{Core: c.Core.With(fields), LevelEnabler: c.LevelEnabler}
}

func (c *leveledCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.LevelEnabler.Enabled(ent.Level) {
		return ce
	}
	return c.Core.Check(ent, ce)
}

func newEncoder(format string) (zapcore.Encoder, error) {
	switch format {
	case FormatJSON:
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "ts"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(ec), nil
	case FormatConsole:
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
