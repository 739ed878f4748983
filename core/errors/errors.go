// Package errors 定义 core 层共享的错误码，以及按错误码匹配的 CoreError。
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code 错误分类。
type Code string

const (
	ErrCodeUnknown         Code = "UNKNOWN"
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeInvalidArgument Code = "INVALID_ARGUMENT"
	// ErrCodeInvalidConfig 依赖未配置，例如缺少服务地址。
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	// ErrCodeInvalidState 返回数据不符合预期，例如响应体为空。
	ErrCodeInvalidState    Code = "INVALID_STATE"
	ErrCodeUnauthenticated Code = "UNAUTHENTICATED"
	// ErrCodeNetwork 连接、读写等 I/O 失败。
	ErrCodeNetwork Code = "NETWORK"
	// ErrCodeHTTP 其余 HTTP 错误状态码。
	ErrCodeHTTP Code = "HTTP"
)

// Coder 由携带错误码的错误类型实现，CodeOf 会沿错误链查找它。
type Coder interface {
	ErrorCode() Code
}

// CoreError 结构化错误，Raw 为底层原因。
type CoreError struct {
	Code    Code
	Message string
	Raw     error
}

func (e *CoreError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Code != "":
		return fmt.Sprintf("core: [%s] %s", e.Code, e.Message)
	case e.Message != "":
		return e.Message
	case e.Raw != nil:
		return e.Raw.Error()
	case e.Code != "":
		return fmt.Sprintf("core: 错误码=%s", e.Code)
	}
	return "core: 未知错误"
}

func (e *CoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Raw
}

// ErrorCode 实现 Coder。
func (e *CoreError) ErrorCode() Code {
	if e == nil || e.Code == "" {
		return ErrCodeUnknown
	}
	return e.Code
}

// Is 错误码相同即视为匹配，便于把 CoreError 当作 sentinel 使用。
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e == t || (e.Code != "" && e.Code == t.Code)
}

// New 创建 CoreError。
func New(code Code, message string) *CoreError {
	return &CoreError{Code: code, Message: message}
}

// Wrap 包装底层错误，message 为空时沿用 raw 的描述。
func Wrap(code Code, message string, raw error) *CoreError {
	if message == "" && raw != nil {
		message = raw.Error()
	}
	return &CoreError{Code: code, Message: message, Raw: raw}
}

// CodeOf 返回错误链上第一个 Coder 的错误码，nil 或找不到时返回 ErrCodeUnknown。
func CodeOf(err error) Code {
	var c Coder
	if err != nil && stderrors.As(err, &c) {
		return c.ErrorCode()
	}
	return ErrCodeUnknown
}
