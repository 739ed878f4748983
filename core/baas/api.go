package baas

import (
	"context"
	"net/url"

	"github.com/dnslin/minapp-go/core/auth"
	"github.com/dnslin/minapp-go/core/query"
)

// Paths 接口路径，均相对于服务地址。
type Paths struct {
	Login      auth.LoginEndpoints
	SmsSend    string
	SmsVerify  string
	CloudFunc  string
	UploadInfo string
	Files      string
	Categories string
	Users      string
}

// DefaultPaths 返回默认接口路径。
func DefaultPaths() Paths {
	return Paths{
		Login:      auth.DefaultLoginEndpoints(),
		SmsSend:    "hserve/v1.8/sms-verification-code/",
		SmsVerify:  "hserve/v1.8/sms-verification-code/verify/",
		CloudFunc:  "hserve/v1/cloud-function/job/",
		UploadInfo: "hserve/v2.1/upload/",
		Files:      "hserve/v2.1/uploaded-file/",
		Categories: "hserve/v2.1/file-category/",
		Users:      "hserve/v2.2/user/info/",
	}
}

// item 拼接单条资源路径，形如 base/{id}/。
func item(base, id string) string {
	return base + url.PathEscape(id) + "/"
}

func (c *Client) call(ctx context.Context, method, path string, params url.Values, body, out any) error {
	client := c.provider.Default()
	req, err := client.NewRequest(ctx, method, path, params, body)
	if err != nil {
		return err
	}
	return client.Do(req, out)
}

// sessionCall 用于需要登录态的接口：未登录时不发请求，401 转为 SessionMissingError。
func (c *Client) sessionCall(ctx context.Context, op, method, path string, params url.Values, body, out any) error {
	if err := c.session.Require(op); err != nil {
		return err
	}
	return auth.WrapUnauthorized(op, c.call(ctx, method, path, params, body, out))
}

// queryValues nil 查询等价于空查询。
func (c *Client) queryValues(q *query.Query) (url.Values, error) {
	if q == nil {
		q = query.New()
	}
	return q.Values(c.provider.Codec())
}
