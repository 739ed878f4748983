package store

import coreerrors "github.com/dnslin/minapp-go/core/errors"

// ErrNotFound 存储中不存在数据。
var ErrNotFound = coreerrors.New(coreerrors.ErrCodeNotFound, "store: 未找到数据")

// SessionStore 抽象会话存储，由业务方约定具体 Session 结构体。
type SessionStore[T any] interface {
	SaveSession(session T) error
	LoadSession() (T, error)
	ClearSession() error
}
