// rpcctl 调用 rpcenable 服务的方法，每次调用自动注入认证参数。
//
//	rpcctl -url http://localhost:8000 -user alice whoami
//	rpcctl -prefix admin createUser bob admin
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"rpcenable/internal/biz"
	"rpcenable/internal/biz/model"
	"rpcenable/internal/pkg/rpc"
	"rpcenable/internal/pkg/rpcauth"

	"go.uber.org/zap"
)

var (
	baseURL = flag.String("url", envOr("RPCENABLE_URL", "http://localhost:8000"), "server base URL")
	user    = flag.String("user", os.Getenv("RPCENABLE_USER"), "username; empty calls without authentication arguments")
	secret  = flag.String("secret", os.Getenv("RPCENABLE_SECRET"), "secret of -user")
	prefix  = flag.String("prefix", "", "method namespace, e.g. admin")
	timeout = flag.Duration("timeout", 10*time.Second, "call timeout")
	verbose = flag.Bool("v", false, "log the outgoing call")

	nonceLength   = flag.Int("nonce-length", rpcauth.DefaultNonceMinLength, "generated nonce length; must reach the server's auth.nonce_min_length")
	nonceAlphabet = flag.String("nonce-alphabet", rpcauth.DefaultNonceAlphabet, "characters used for generated nonces; length must divide 256")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] method [params...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), flag.Args()[1:]); err != nil {
		var fault *rpc.Fault
		if errors.As(err, &fault) {
			fmt.Fprintf(os.Stderr, "fault %d: %s\n", fault.Code, fault.Message)
			os.Exit(3)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(method string, args []string) error {
	logger := zap.NewNop()
	if *verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer logger.Sync()
	}

	opts := []rpc.ClientOption{rpc.WithPrefix(*prefix)}
	var client *rpc.Client
	if *user != "" {
		cfg, err := authConfig(*nonceLength, *nonceAlphabet)
		if err != nil {
			return err
		}
		factory := biz.NewOutboundFactory(cfg, &logRecorder{l: logger})
		client = factory.Client(http.DefaultClient, *baseURL, *user, *secret, opts...)
	} else {
		client = rpc.NewClient(http.DefaultClient, *baseURL, append(opts, rpc.WithRecorder(&logRecorder{l: logger}))...)
	}

	params := make([]any, len(args))
	for i, a := range args {
		params[i] = parseParam(a)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	result, err := client.Call(ctx, method, params...)
	if err != nil {
		return err
	}

	var pretty any
	if err := json.Unmarshal(result, &pretty); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// authConfig 在默认配置上应用命令行给出的 nonce 长度与字符表
func authConfig(length int, alphabet string) (rpcauth.Config, error) {
	cfg := rpcauth.DefaultConfig()
	cfg.NonceMinLength = length
	cfg.NonceAlphabet = alphabet
	if err := cfg.Validate(); err != nil {
		return rpcauth.Config{}, fmt.Errorf("invalid nonce flags: %w", err)
	}
	return cfg, nil
}

// parseParam 合法的 JSON 按 JSON 解析，其余按字符串处理
func parseParam(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// logRecorder 把出站调用写入 zap 日志
type logRecorder struct {
	l *zap.Logger
}

var _ model.RequestLogUseCase = (*logRecorder)(nil)

func (r *logRecorder) RecordOutgoing(_ context.Context, rec rpc.CallRecord) {
	fields := []zap.Field{
		zap.String("url", rec.URL),
		zap.String("method", rec.Method),
		zap.Duration("duration", rec.Duration),
	}
	if rec.Err != nil {
		r.l.Warn("outgoing call failed", append(fields, zap.Error(rec.Err))...)
		return
	}
	r.l.Debug("outgoing call", append(fields, zap.ByteString("response", rec.Response))...)
}

func (r *logRecorder) RecordIncoming(context.Context, model.IncomingRequest) {}

func (r *logRecorder) IncomingEnabled() bool {
	return false
}
