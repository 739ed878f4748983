package model

import "github.com/dnslin/minapp-go/core/codec"

// SignInResp 登录或注册成功后服务端返回的会话信息。
type SignInResp struct {
	Token     string         `json:"token"`
	UserID    int64          `json:"user_id"`
	ExpiresIn int64          `json:"expires_in,omitempty"`
	Username  string         `json:"username,omitempty"`
	Email     string         `json:"email,omitempty"`
	Anonymous bool           `json:"is_anonymous,omitempty"`
	Profile   map[string]any `json:"profile,omitempty"`
}

// User 描述用户信息。
type User struct {
	ID            int64          `json:"id"`
	Username      string         `json:"username,omitempty"`
	Nickname      string         `json:"nickname,omitempty"`
	Email         string         `json:"_email,omitempty"`
	EmailVerified bool           `json:"_email_verified,omitempty"`
	Phone         string         `json:"_phone,omitempty"`
	Avatar        string         `json:"avatar,omitempty"`
	Gender        int            `json:"gender,omitempty"`
	Anonymous     bool           `json:"is_anonymous,omitempty"`
	CreatedAt     codec.Date     `json:"created_at,omitempty"`
	UpdatedAt     codec.Date     `json:"updated_at,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// SignInByEmailReq 邮箱注册/登录请求。
type SignInByEmailReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInByUsernameReq 用户名注册/登录请求。
type SignInByUsernameReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
