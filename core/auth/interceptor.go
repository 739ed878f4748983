package auth

import (
	"net/http"

	"github.com/dnslin/minapp-go/core/httpclient"
)

const (
	// HeaderClientID 客户端标识头。
	HeaderClientID = "X-Hydrogen-Client-ID"
	// HeaderAuthorization 令牌头。
	HeaderAuthorization = "Authorization"
	// TokenPrefix 令牌头的值前缀。
	TokenPrefix = "Hydrogen-r1 "
)

// Interceptor 为每个请求写入客户端标识与当前 token。未登录时原样放行，不会返回错误。
func Interceptor(s *Session) httpclient.Middleware {
	return func(req *http.Request) error {
		if s == nil {
			return nil
		}
		if id := s.ClientID(); id != "" {
			req.Header.Set(HeaderClientID, id)
		}
		if token := s.CurrentToken(); token != "" {
			req.Header.Set(HeaderAuthorization, TokenPrefix+token)
		}
		return nil
	}
}
