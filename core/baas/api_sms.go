package baas

import (
	"context"
	"net/http"

	"github.com/dnslin/minapp-go/core/model"
)

// SendSmsCode 发送短信验证码。
func (c *Client) SendSmsCode(ctx context.Context, phone string) (bool, error) {
	var resp model.StatusResp
	if err := c.call(ctx, http.MethodPost, c.paths.SmsSend, nil, model.SendSmsCodeReq{Phone: phone}, &resp); err != nil {
		return false, err
	}
	return resp.IsOK(), nil
}

// VerifySmsCode 校验短信验证码。
func (c *Client) VerifySmsCode(ctx context.Context, phone, code string) (bool, error) {
	var resp model.StatusResp
	body := model.VerifySmsCodeReq{Phone: phone, Code: code}
	if err := c.call(ctx, http.MethodPost, c.paths.SmsVerify, nil, body, &resp); err != nil {
		return false, err
	}
	return resp.IsOK(), nil
}
