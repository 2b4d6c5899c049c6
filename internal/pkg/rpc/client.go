package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	v1 "rpcenable/api/rpc/v1"
	"rpcenable/api/rpc/v1/rpcv1connect"

	"connectrpc.com/connect"
)

// ParamHook 在发送前改写位置参数，例如在前面插入认证参数
type ParamHook func(params []any) ([]any, error)

// CallRecord 描述一次出站调用，供 Recorder 持久化
type CallRecord struct {
	URL      string
	Method   string
	Params   []any
	Response json.RawMessage
	Duration time.Duration
	Err      error
}

// Recorder 记录出站调用。实现不得阻塞过久，错误由实现自行处理。
type Recorder interface {
	RecordOutgoing(ctx context.Context, rec CallRecord)
}

// Client 通过分发服务调用远端方法
type Client struct {
	dispatch    rpcv1connect.DispatchServiceClient
	url         string
	prefix      string
	hook        ParamHook
	recorder    Recorder
	connectOpts []connect.ClientOption
}

type ClientOption func(*Client)

func WithPrefix(prefix string) ClientOption {
	return func(c *Client) {
		c.prefix = prefix
	}
}

func WithParamHook(hook ParamHook) ClientOption {
	return func(c *Client) {
		c.hook = hook
	}
}

func WithRecorder(r Recorder) ClientOption {
	return func(c *Client) {
		c.recorder = r
	}
}

func WithConnectOptions(opts ...connect.ClientOption) ClientOption {
	return func(c *Client) {
		c.connectOpts = append(c.connectOpts, opts...)
	}
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...ClientOption) *Client {
	c := &Client{url: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(c)
	}
	c.dispatch = rpcv1connect.NewDispatchServiceClient(httpClient, c.url, c.connectOpts...)
	return c
}

// Call 调用 method 并返回原始 JSON 结果。服务端 Fault 以 *Fault 返回。
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if c.hook != nil {
		var err error
		params, err = c.hook(params)
		if err != nil {
			return nil, fmt.Errorf("param hook: %w", err)
		}
	}

	encoded, err := NewParams(params...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.dispatch.Call(ctx, connect.NewRequest(&v1.CallRequest{
		Prefix: c.prefix,
		Method: method,
		Params: encoded,
	}))
	err = faultFromConnect(err)

	var result json.RawMessage
	if err == nil {
		result = resp.Msg.Result
	}
	if c.recorder != nil {
		c.recorder.RecordOutgoing(ctx, CallRecord{
			URL:      c.url + rpcv1connect.DispatchServiceCallProcedure,
			Method:   method,
			Params:   params,
			Response: result,
			Duration: time.Since(start),
			Err:      err,
		})
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CallInto 调用 method 并将结果解码到 out
func (c *Client) CallInto(ctx context.Context, out any, method string, params ...any) error {
	result, err := c.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if out == nil || len(result) == 0 {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("decode result of %s: %w", method, err)
	}
	return nil
}

func faultFromConnect(err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return err
	}
	raw := connectErr.Meta().Get(rpcv1connect.FaultCodeHeader)
	if raw == "" {
		return err
	}
	code, convErr := strconv.Atoi(raw)
	if convErr != nil {
		return err
	}
	return &Fault{Code: code, Message: connectErr.Message()}
}
