package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Params 是一次调用的位置参数，每个元素保留原始 JSON，由处理函数按需解码
type Params []json.RawMessage

// Handler 是注册到 Registry 的 RPC 处理函数
type Handler func(ctx context.Context, params Params) (any, error)

// NewParams 将任意 Go 值编码为位置参数
func NewParams(values ...any) (Params, error) {
	params := make(Params, 0, len(values))
	for i, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode param %d: %w", i, err)
		}
		params = append(params, raw)
	}
	return params, nil
}

func (p Params) Len() int {
	return len(p)
}

// Decode 将第 i 个参数解码到 v，越界或类型不符时返回 -32602 Fault
func (p Params) Decode(i int, v any) error {
	if i < 0 || i >= len(p) {
		return InvalidParams("missing param %d (got %d)", i, len(p))
	}
	dec := json.NewDecoder(bytes.NewReader(p[i]))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return InvalidParams("param %d: %v", i, err)
	}
	return nil
}

// String 读取第 i 个参数，要求其为 JSON 字符串
func (p Params) String(i int) (string, error) {
	var s string
	if err := p.Decode(i, &s); err != nil {
		return "", err
	}
	return s, nil
}

// Bool 读取第 i 个参数，要求其为 JSON 布尔值
func (p Params) Bool(i int) (bool, error) {
	var b bool
	if err := p.Decode(i, &b); err != nil {
		return false, err
	}
	return b, nil
}

// Values 将全部参数解码为通用 Go 值，用于日志与回显
func (p Params) Values() []any {
	out := make([]any, 0, len(p))
	for _, raw := range p {
		var v any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			v = string(raw)
		}
		out = append(out, v)
	}
	return out
}

// Slice 返回从第 i 个开始的参数
func (p Params) Slice(i int) Params {
	if i >= len(p) {
		return Params{}
	}
	return p[i:]
}
