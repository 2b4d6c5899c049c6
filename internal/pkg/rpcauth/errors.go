package rpcauth

import (
	"errors"
	"fmt"
)

// Code 是认证失败的稳定错误码
type Code int

const (
	CodeMalformedCredentials Code = 400
	CodeNonceTooShort        Code = 401
	CodeNonceReplayed        Code = 402
	CodeTimestampInvalid     Code = 403
	CodeUserNotFound         Code = 404
	CodeAmbiguousUser        Code = 405
	CodeSignatureInvalid     Code = 406
)

func (c Code) String() string {
	switch c {
	case CodeMalformedCredentials:
		return "malformed-credentials"
	case CodeNonceTooShort:
		return "nonce-too-short"
	case CodeNonceReplayed:
		return "nonce-replayed"
	case CodeTimestampInvalid:
		return "bad-timestamp"
	case CodeUserNotFound:
		return "user-missing"
	case CodeAmbiguousUser:
		return "ambiguous-user"
	case CodeSignatureInvalid:
		return "bad-signature"
	default:
		return fmt.Sprintf("code-%d", int(c))
	}
}

// Error 表示认证失败。所有失败都只作用于当前调用，本包不会重试。
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// FaultCode 让 RPC 层取得稳定的数字错误码
func (e *Error) FaultCode() int {
	return int(e.Code)
}

// Is 按错误码比较，使 errors.Is(err, ErrNonceReplayed) 成立
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrMalformedCredentials = &Error{Code: CodeMalformedCredentials, Message: "malformed authentication arguments"}
	ErrNonceTooShort        = &Error{Code: CodeNonceTooShort, Message: "nonce is too short"}
	ErrNonceReplayed        = &Error{Code: CodeNonceReplayed, Message: "nonce is already used"}
	ErrTimestampInvalid     = &Error{Code: CodeTimestampInvalid, Message: "provided timestamp is invalid"}
	ErrUserNotFound         = &Error{Code: CodeUserNotFound, Message: "provided username cannot be found"}
	ErrAmbiguousUser        = &Error{Code: CodeAmbiguousUser, Message: "multiple users found with username"}
	ErrSignatureInvalid     = &Error{Code: CodeSignatureInvalid, Message: "signature is invalid"}
)

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf 返回认证错误码，非认证错误返回 false
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
