package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	coreerrors "github.com/dnslin/minapp-go/core/errors"
)

// ErrEndpointUnset 未配置服务地址时，由该客户端构造的每个请求都会立即失败。
var ErrEndpointUnset = coreerrors.New(coreerrors.ErrCodeInvalidConfig, "httpclient: 未配置服务地址")

// HTTPError 表示服务端返回了 >=400 的状态码。
type HTTPError struct {
	Status  int
	Code    string
	Message string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("http %d: %s: %s", e.Status, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("http 状态码: %d", e.Status)
	}
}

// ErrorCode 按状态码归类，实现 coreerrors.Coder。
func (e *HTTPError) ErrorCode() coreerrors.Code {
	switch e.Status {
	case http.StatusUnauthorized:
		return coreerrors.ErrCodeUnauthenticated
	case http.StatusNotFound:
		return coreerrors.ErrCodeNotFound
	case http.StatusBadRequest:
		return coreerrors.ErrCodeInvalidArgument
	}
	return coreerrors.ErrCodeHTTP
}

// NetworkError 包装底层网络错误，便于区分可重试场景。
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("网络错误: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) ErrorCode() coreerrors.Code { return coreerrors.ErrCodeNetwork }

// EmptyResponseError 表示期望响应体但响应体为空或无法解码。Err 为 nil 时表示响应体为空。
type EmptyResponseError struct {
	Status int
	Err    error
}

func (e *EmptyResponseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("响应体为空(status=%d)", e.Status)
	}
	return fmt.Sprintf("解码失败(status=%d): %v", e.Status, e.Err)
}

func (e *EmptyResponseError) Unwrap() error {
	return e.Err
}

func (e *EmptyResponseError) ErrorCode() coreerrors.Code { return coreerrors.ErrCodeInvalidState }

// StatusOf 返回错误链上 HTTPError 的状态码。
func StatusOf(err error) (int, bool) {
	var he *HTTPError
	if errors.As(err, &he) && he != nil {
		return he.Status, true
	}
	return 0, false
}

// IsNotFound 判断是否为 404。
func IsNotFound(err error) bool {
	status, ok := StatusOf(err)
	return ok && status == http.StatusNotFound
}

// errorBody 兼容服务端几种错误体写法。
type errorBody struct {
	ErrorMsg string          `json:"error_msg"`
	Message  string          `json:"message"`
	Detail   string          `json:"detail"`
	Code     json.RawMessage `json:"code"`
}

func newHTTPError(status int, body []byte) *HTTPError {
	he := &HTTPError{Status: status}
	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		he.Message = firstNonEmpty(eb.ErrorMsg, eb.Message, eb.Detail)
		he.Code = strings.Trim(string(eb.Code), `"`)
		if he.Code == "null" {
			he.Code = ""
		}
	}
	if he.Message == "" {
		he.Message = http.StatusText(status)
	}
	return he
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
