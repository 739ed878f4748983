package auth

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dnslin/minapp-go/core/codec"
	"github.com/dnslin/minapp-go/core/httpclient"
	"github.com/dnslin/minapp-go/core/model"
	"github.com/dnslin/minapp-go/core/store"
)

// Session 记录客户端标识与当前登录态。读操作无锁，写操作串行。
type Session struct {
	mu       sync.Mutex
	clientID atomic.Pointer[string]
	current  atomic.Pointer[model.SignInResp]

	store  store.SessionStore[*model.SignInResp]
	codec  *codec.Codec
	logger httpclient.Logger
}

// SessionOption 配置 Session。
type SessionOption func(*Session)

// WithSessionStore 设置会话持久化，默认仅保存在内存中。
func WithSessionStore(s store.SessionStore[*model.SignInResp]) SessionOption {
	return func(sess *Session) {
		sess.store = s
	}
}

// WithSessionCodec 设置用于深拷贝的编解码器。
func WithSessionCodec(c *codec.Codec) SessionOption {
	return func(sess *Session) {
		sess.codec = c
	}
}

// WithSessionLogger 注入日志。
func WithSessionLogger(logger httpclient.Logger) SessionOption {
	return func(sess *Session) {
		sess.logger = logger
	}
}

// NewSession 创建 Session，并从存储中恢复一次已保存的登录态。
func NewSession(opts ...SessionOption) *Session {
	s := &Session{}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = store.NewMemoryStore[*model.SignInResp]()
	}
	if s.codec == nil {
		s.codec = codec.New()
	}
	if s.logger == nil {
		s.logger = httpclient.NopLogger{}
	}
	s.restore()
	return s
}

func (s *Session) restore() {
	saved, err := s.store.LoadSession()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Errorf("auth: 恢复会话失败: %v", err)
		}
		return
	}
	if saved != nil && saved.Token != "" {
		s.current.Store(saved)
		s.logger.Debugf("auth: 已恢复用户 %d 的会话", saved.UserID)
	}
}

// Init 设置客户端标识，后写覆盖先写。
func (s *Session) Init(clientID string) {
	s.clientID.Store(&clientID)
}

// ClientID 返回客户端标识，未初始化时为空。
func (s *Session) ClientID() string {
	if id := s.clientID.Load(); id != nil {
		return *id
	}
	return ""
}

// CurrentToken 返回最近一次登录得到的 token，未登录时为空。
func (s *Session) CurrentToken() string {
	if cur := s.current.Load(); cur != nil {
		return cur.Token
	}
	return ""
}

// SignedIn 是否持有 token。
func (s *Session) SignedIn() bool {
	return s.CurrentToken() != ""
}

// CurrentUser 返回当前登录信息的拷贝，未登录时为 nil。
func (s *Session) CurrentUser() *model.SignInResp {
	cur := s.current.Load()
	if cur == nil {
		return nil
	}
	var cp model.SignInResp
	if err := s.codec.Clone(cur, &cp); err != nil {
		s.logger.Errorf("auth: 拷贝会话失败: %v", err)
		return nil
	}
	return &cp
}

// Record 保存 resp 的深拷贝，之后修改 resp 不影响会话。resp 为 nil 时不做任何改动。
func (s *Session) Record(resp *model.SignInResp) error {
	if resp == nil {
		return nil
	}
	var cp model.SignInResp
	if err := s.codec.Clone(resp, &cp); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(&cp)
	if err := s.store.SaveSession(&cp); err != nil {
		s.logger.Errorf("auth: 持久化会话失败: %v", err)
	}
	return nil
}

// Clear 清除登录态，客户端标识保留。
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(nil)
	return s.store.ClearSession()
}

// Require 未登录时返回 SessionMissingError，用于发出请求之前的检查。
func (s *Session) Require(op string) error {
	if s.SignedIn() {
		return nil
	}
	return &SessionMissingError{Op: op}
}
