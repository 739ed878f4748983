package auth

import (
	"context"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/dnslin/minapp-go/core/httpclient"
	"github.com/dnslin/minapp-go/core/model"
)

// LoginEndpoints 允许替换登录相关接口地址，便于测试或自定义环境。
type LoginEndpoints struct {
	SignUpEmail     string
	SignUpUsername  string
	SignInEmail     string
	SignInUsername  string
	SignInAnonymous string
	SignOut         string
	EmailVerify     string
}

// DefaultLoginEndpoints 返回默认接口路径。
func DefaultLoginEndpoints() LoginEndpoints {
	return LoginEndpoints{
		SignUpEmail:     "hserve/v2.0/register/email/",
		SignUpUsername:  "hserve/v2.0/register/username/",
		SignInEmail:     "hserve/v2.0/login/email/",
		SignInUsername:  "hserve/v2.0/login/username/",
		SignInAnonymous: "hserve/v2.0/login/anonymous/",
		SignOut:         "hserve/v2.0/session/destroy/",
		EmailVerify:     "hserve/v2.0/user/email-verify/",
	}
}

// LoginClient 负责注册、登录、登出，成功后写入 Session。
type LoginClient struct {
	provider  *httpclient.Provider
	session   *Session
	logger    httpclient.Logger
	endpoints LoginEndpoints
	group     singleflight.Group
}

// LoginOption 自定义登录客户端。
type LoginOption func(*LoginClient)

// WithLoginLogger 注入日志。
func WithLoginLogger(logger httpclient.Logger) LoginOption {
	return func(l *LoginClient) {
		l.logger = logger
	}
}

// WithLoginEndpoints 替换默认接口地址。
func WithLoginEndpoints(ep LoginEndpoints) LoginOption {
	return func(l *LoginClient) {
		l.endpoints = ep
	}
}

// NewLoginClient 创建登录客户端，请求走 provider 的默认传输层。
func NewLoginClient(provider *httpclient.Provider, session *Session, opts ...LoginOption) *LoginClient {
	if provider == nil {
		provider = httpclient.NewProvider()
	}
	if session == nil {
		session = NewSession(WithSessionCodec(provider.Codec()))
	}
	l := &LoginClient{
		provider:  provider,
		session:   session,
		logger:    httpclient.NopLogger{},
		endpoints: DefaultLoginEndpoints(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.logger == nil {
		l.logger = httpclient.NopLogger{}
	}
	return l
}

// Session 返回关联的会话。
func (l *LoginClient) Session() *Session {
	return l.session
}

// SignUpByEmail 邮箱注册，成功后即视为已登录。
func (l *LoginClient) SignUpByEmail(ctx context.Context, email, password string) (*model.SignInResp, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	return l.authenticate(ctx, "signup/email", l.endpoints.SignUpEmail, email+"\x00"+password,
		model.SignInByEmailReq{Email: email, Password: password})
}

// SignUpByUsername 用户名注册，成功后即视为已登录。
func (l *LoginClient) SignUpByUsername(ctx context.Context, username, password string) (*model.SignInResp, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	return l.authenticate(ctx, "signup/username", l.endpoints.SignUpUsername, username+"\x00"+password,
		model.SignInByUsernameReq{Username: username, Password: password})
}

// SignInByEmail 邮箱登录。
func (l *LoginClient) SignInByEmail(ctx context.Context, email, password string) (*model.SignInResp, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	return l.authenticate(ctx, "signin/email", l.endpoints.SignInEmail, email+"\x00"+password,
		model.SignInByEmailReq{Email: email, Password: password})
}

// SignInByUsername 用户名登录。
func (l *LoginClient) SignInByUsername(ctx context.Context, username, password string) (*model.SignInResp, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	return l.authenticate(ctx, "signin/username", l.endpoints.SignInUsername, username+"\x00"+password,
		model.SignInByUsernameReq{Username: username, Password: password})
}

// SignInAnonymous 匿名登录。
func (l *LoginClient) SignInAnonymous(ctx context.Context) (*model.SignInResp, error) {
	return l.authenticate(ctx, "signin/anonymous", l.endpoints.SignInAnonymous, "", struct{}{})
}

// authenticate 相同账号口令的并发请求合并为一次，每个调用方拿到各自的拷贝。
// 合并后的请求不随任何一个调用方取消，调用方各自按自己的 ctx 停止等待。
func (l *LoginClient) authenticate(ctx context.Context, op, path, account string, body any) (*model.SignInResp, error) {
	shared := context.WithoutCancel(ctx)
	ch := l.group.DoChan(op+"\x00"+account, func() (any, error) {
		client := l.provider.Default()
		req, err := client.NewRequest(shared, http.MethodPost, path, nil, body)
		if err != nil {
			return nil, err
		}
		var resp model.SignInResp
		if err := client.Do(req, &resp); err != nil {
			l.logger.Errorf("auth: %s 失败: %v", op, err)
			return nil, err
		}
		if err := l.session.Record(&resp); err != nil {
			return nil, err
		}
		l.logger.Debugf("auth: %s 成功, user_id=%d", op, resp.UserID)
		return &resp, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, &httpclient.NetworkError{Err: ctx.Err()}
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		l.logger.Debugf("auth: %s 与并发请求合并", op)
	}
	var out model.SignInResp
	if err := l.provider.Codec().Clone(res.Val.(*model.SignInResp), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignOut 尽力通知服务端销毁会话，无论成功与否都清除本地登录态。
func (l *LoginClient) SignOut(ctx context.Context) error {
	if l.session.SignedIn() {
		client := l.provider.Default()
		req, err := client.NewRequest(ctx, http.MethodPost, l.endpoints.SignOut, nil, nil)
		if err == nil {
			err = client.Do(req, nil)
		}
		if err != nil {
			l.logger.Debugf("auth: 远端登出失败，已忽略: %v", err)
		}
	}
	return l.session.Clear()
}

// RequestEmailVerify 请求发送邮箱验证邮件，需要登录。
func (l *LoginClient) RequestEmailVerify(ctx context.Context) (*model.StatusResp, error) {
	const op = "requestEmailVerify"
	if err := l.session.Require(op); err != nil {
		return nil, err
	}
	client := l.provider.Default()
	req, err := client.NewRequest(ctx, http.MethodPost, l.endpoints.EmailVerify, nil, struct{}{})
	if err != nil {
		return nil, err
	}
	var resp model.StatusResp
	if err := client.Do(req, &resp); err != nil {
		return nil, WrapUnauthorized(op, err)
	}
	return &resp, nil
}
