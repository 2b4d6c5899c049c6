// Package rpcv1 定义分发服务的消息。位置参数以原始 JSON 传输，
// 由服务端注册的处理函数自行解码。
package rpcv1

import "encoding/json"

// CallRequest 调用 prefix 命名空间下的 method
type CallRequest struct {
	Prefix string            `json:"prefix,omitempty"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type CallResponse struct {
	Result json.RawMessage `json:"result"`
}
