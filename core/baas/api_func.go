package baas

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dnslin/minapp-go/core/model"
)

// InvokeCloudFunc 调用云函数。data 为 JSON 文本，为空或无法解析时按 null 发送；sync 为 true 时等待函数返回。
func (c *Client) InvokeCloudFunc(ctx context.Context, name, data string, sync bool) (*model.CloudFuncResp, error) {
	req := model.CloudFuncReq{FunctionName: name, Sync: sync}
	if raw := strings.TrimSpace(data); raw != "" {
		if json.Valid([]byte(raw)) {
			req.Data = json.RawMessage(raw)
		} else {
			c.logger.Debugf("baas: 云函数 %s 参数不是合法 JSON，按 null 发送", name)
		}
	}
	var resp model.CloudFuncResp
	if err := c.call(ctx, http.MethodPost, c.paths.CloudFunc, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
