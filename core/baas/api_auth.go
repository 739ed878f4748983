package baas

import (
	"context"

	"github.com/dnslin/minapp-go/core/model"
)

// SignUpByEmail 邮箱注册，成功后记录会话。
func (c *Client) SignUpByEmail(ctx context.Context, email, password string) (*model.SignInResp, error) {
	return c.login.SignUpByEmail(ctx, email, password)
}

// SignUpByUsername 用户名注册，成功后记录会话。
func (c *Client) SignUpByUsername(ctx context.Context, username, password string) (*model.SignInResp, error) {
	return c.login.SignUpByUsername(ctx, username, password)
}

// SignInByEmail 邮箱登录。
func (c *Client) SignInByEmail(ctx context.Context, email, password string) (*model.SignInResp, error) {
	return c.login.SignInByEmail(ctx, email, password)
}

// SignInByUsername 用户名登录。
func (c *Client) SignInByUsername(ctx context.Context, username, password string) (*model.SignInResp, error) {
	return c.login.SignInByUsername(ctx, username, password)
}

// SignInAnonymous 匿名登录。
func (c *Client) SignInAnonymous(ctx context.Context) (*model.SignInResp, error) {
	return c.login.SignInAnonymous(ctx)
}

// SignOut 登出，本地登录态总会被清除。
func (c *Client) SignOut(ctx context.Context) error {
	return c.login.SignOut(ctx)
}

// CurrentUser 返回当前登录响应的拷贝，未登录时为 nil。
func (c *Client) CurrentUser() *model.SignInResp {
	return c.session.CurrentUser()
}

// RequestEmailVerify 请求发送邮箱验证邮件。
func (c *Client) RequestEmailVerify(ctx context.Context) (bool, error) {
	resp, err := c.login.RequestEmailVerify(ctx)
	if err != nil {
		return false, err
	}
	return resp.IsOK(), nil
}
