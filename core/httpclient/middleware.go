package httpclient

import (
	"net/http"

	"github.com/google/uuid"
)

// Middleware 是请求预处理钩子，用于注入令牌、客户端标识、Content-Type 等。
type Middleware func(req *http.Request) error

// PrepareChain 代表按顺序执行的中间件集合。
type PrepareChain []Middleware

// Apply 依次执行链路中的中间件，遇到错误立即返回。
func (c PrepareChain) Apply(req *http.Request) error {
	for _, mw := range c {
		if mw == nil {
			continue
		}
		if err := mw(req); err != nil {
			return err
		}
	}
	return nil
}

// WithHeader 设置请求头。
func WithHeader(key, value string) Middleware {
	return func(req *http.Request) error {
		req.Header.Set(key, value)
		return nil
	}
}

// WithUserAgent 设置 User-Agent。
func WithUserAgent(ua string) Middleware {
	return WithHeader("User-Agent", ua)
}

// WithContentType 在带请求体且未指定类型时补上 Content-Type，multipart 等已设置的类型保持不变。
func WithContentType(ct string) Middleware {
	return func(req *http.Request) error {
		if req.Body == nil || req.Body == http.NoBody {
			return nil
		}
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", ct)
		}
		return nil
	}
}

// HeaderRequestID 请求追踪头。
const HeaderRequestID = "X-Request-Id"

// WithRequestID 为每次发送生成 X-Request-Id，调用方已设置时保留。
func WithRequestID() Middleware {
	return func(req *http.Request) error {
		if req.Header.Get(HeaderRequestID) == "" {
			req.Header.Set(HeaderRequestID, uuid.NewString())
		}
		return nil
	}
}
