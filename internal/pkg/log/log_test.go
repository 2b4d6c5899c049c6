package log

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	conf "rpcenable/internal/conf/v1"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// memoryExporter 保存导出的日志记录
type memoryExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryExporter) all() []sdklog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sdklog.Record(nil), e.records...)
}

func attributes(r sdklog.Record) map[string]otellog.Value {
	out := make(map[string]otellog.Value)
	r.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value
		return true
	})
	return out
}

func TestNew(t *testing.T) {
	cases := []struct {
		name    string
		cfg     *conf.Log
		wantErr bool
		debug   bool
	}{
		{name: "nil config", cfg: nil},
		{name: "json", cfg: &conf.Log{Level: "info", Format: FormatJSON}},
		{name: "console debug", cfg: &conf.Log{Level: "debug", Format: FormatConsole}, debug: true},
		{name: "bad level", cfg: &conf.Log{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: &conf.Log{Format: "xml"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := New(tc.cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.debug, logger.Core().Enabled(zapcore.DebugLevel))
			assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		})
	}
}

func TestOTelCore(t *testing.T) {
	exporter := &memoryExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))
	defer provider.Shutdown(context.Background())

	logger := zap.New(NewOTelCore(provider, zapcore.InfoLevel)).With(zap.String("component", "auth"))
	logger.Debug("dropped")
	logger.Warn("rpc authentication failed",
		zap.String("reason", "nonce-replayed"),
		zap.Int("code", 402),
		zap.Bool("admin", false),
		zap.Duration("elapsed", 1500*time.Millisecond),
		zap.Strings("prefixes", []string{"", "admin"}),
		zap.Error(errors.New("boom")),
	)

	records := exporter.all()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "rpc authentication failed", rec.Body().AsString())
	assert.Equal(t, otellog.SeverityWarn, rec.Severity())
	assert.Equal(t, "warn", rec.SeverityText())
	assert.Equal(t, instrumentationName, rec.InstrumentationScope().Name)

	attrs := attributes(rec)
	assert.Equal(t, "auth", attrs["component"].AsString())
	assert.Equal(t, "nonce-replayed", attrs["reason"].AsString())
	assert.Equal(t, int64(402), attrs["code"].AsInt64())
	assert.False(t, attrs["admin"].AsBool())
	assert.Equal(t, (1500 * time.Millisecond).Nanoseconds(), attrs["elapsed"].AsInt64())
	require.Equal(t, otellog.KindSlice, attrs["prefixes"].Kind())
	assert.Len(t, attrs["prefixes"].AsSlice(), 2)
	assert.Equal(t, "boom", attrs["error"].AsString())
}

func TestOTelCore_TraceContext(t *testing.T) {
	exporter := &memoryExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))
	defer provider.Shutdown(context.Background())

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35},
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	stdout, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(zapcore.NewTee(stdout, NewOTelCore(provider, zapcore.InfoLevel)))
	logger.Info("RPC request failed", Context(ctx), zap.String("service", "/rpc.v1.Dispatch/Call"))

	records := exporter.all()
	require.Len(t, records, 1)
	assert.Equal(t, sc.TraceID(), records[0].TraceID())
	assert.Equal(t, sc.SpanID(), records[0].SpanID())
	assert.NotContains(t, attributes(records[0]), "ctx")

	// 标准输出只保留普通字段
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, map[string]interface{}{"service": "/rpc.v1.Dispatch/Call"}, logs.All()[0].ContextMap())
}

func TestOTelCore_Levels(t *testing.T) {
	exporter := &memoryExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))
	defer provider.Shutdown(context.Background())

	core := NewOTelCore(provider, zapcore.WarnLevel)
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
	assert.False(t, core.With([]zapcore.Field{zap.String("k", "v")}).Enabled(zapcore.InfoLevel))

	logger := zap.New(core)
	logger.Info("dropped")
	logger.Error("kept")
	records := exporter.all()
	require.Len(t, records, 1)
	assert.Equal(t, otellog.SeverityError, records[0].Severity())
}
