package auth

import (
	"errors"
	"fmt"
	"net/http"

	coreerrors "github.com/dnslin/minapp-go/core/errors"
	"github.com/dnslin/minapp-go/core/httpclient"
)

var (
	// ErrSessionMissing 需要登录态的接口在未登录时返回。
	ErrSessionMissing = coreerrors.New(coreerrors.ErrCodeUnauthenticated, "auth: 当前未登录")
	// ErrMissingCredentials 账号或密码为空。
	ErrMissingCredentials = coreerrors.New(coreerrors.ErrCodeInvalidArgument, "auth: 账号或密码为空")
)

// SessionMissingError 表示调用 Op 时没有可用会话。服务端返回 401 时 Err 为对应的 HTTPError。
type SessionMissingError struct {
	Op  string
	Err error
}

func (e *SessionMissingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s 需要登录: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("auth: %s 需要登录", e.Op)
}

func (e *SessionMissingError) Unwrap() error {
	return e.Err
}

func (e *SessionMissingError) ErrorCode() coreerrors.Code {
	return coreerrors.ErrCodeUnauthenticated
}

// Is 使 errors.Is(err, ErrSessionMissing) 成立。
func (e *SessionMissingError) Is(target error) bool {
	return target == ErrSessionMissing
}

// WrapUnauthorized 把需要登录态接口上的 401 转为 SessionMissingError，其余错误原样返回。
func WrapUnauthorized(op string, err error) error {
	if err == nil {
		return nil
	}
	var sm *SessionMissingError
	if errors.As(err, &sm) {
		return err
	}
	if status, ok := httpclient.StatusOf(err); ok && status == http.StatusUnauthorized {
		return &SessionMissingError{Op: op, Err: err}
	}
	return err
}
