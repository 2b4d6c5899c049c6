package rpc

import (
	"errors"
	"fmt"
)

// 与 XML-RPC 约定一致的保留错误码
const (
	FaultInvalidRequest = -32600
	FaultMethodNotFound = -32601
	FaultInvalidParams  = -32602
	FaultInternal       = -32603
)

// Fault 是与传输层无关的 RPC 错误，Code 稳定可供调用方判断
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault %d: %s", f.Code, f.Message)
}

func (f *Fault) FaultCode() int {
	return f.Code
}

// Is 按错误码比较
func (f *Fault) Is(target error) bool {
	var t *Fault
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == f.Code
}

// FaultCoder 由携带稳定错误码的错误实现，例如认证错误
type FaultCoder interface {
	error
	FaultCode() int
}

// AsFault 将任意错误转换为 Fault，未知错误映射为 -32603
func AsFault(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	var coder FaultCoder
	if errors.As(err, &coder) {
		return &Fault{Code: coder.FaultCode(), Message: coder.Error()}
	}
	return &Fault{Code: FaultInternal, Message: err.Error()}
}

func InvalidParams(format string, args ...any) *Fault {
	return &Fault{Code: FaultInvalidParams, Message: fmt.Sprintf(format, args...)}
}
