package model

import (
	"encoding/json"
	"strings"
)

// StatusOK 服务端表示成功的状态值。
const StatusOK = "ok"

// StatusResp 仅包含 status 字段的通用响应。
type StatusResp struct {
	Status string `json:"status"`
}

// IsOK 忽略大小写判断 status 是否为 ok。
func (r *StatusResp) IsOK() bool {
	return r != nil && strings.EqualFold(r.Status, StatusOK)
}

// SendSmsCodeReq 发送短信验证码请求。
type SendSmsCodeReq struct {
	Phone string `json:"phone"`
}

// VerifySmsCodeReq 校验短信验证码请求。
type VerifySmsCodeReq struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// CloudFuncReq 云函数调用请求，Data 为 nil 时编码为 null。
type CloudFuncReq struct {
	FunctionName string          `json:"function_name"`
	Data         json.RawMessage `json:"data"`
	Sync         bool            `json:"sync"`
}

// CloudFuncError 云函数执行错误。
type CloudFuncError struct {
	Message string `json:"message,omitempty"`
}

// CloudFuncResp 云函数执行结果。同步调用时 Data 为函数返回值，异步调用时仅有 JobID。
type CloudFuncResp struct {
	Code  int             `json:"code"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *CloudFuncError `json:"error,omitempty"`
	JobID string          `json:"job_id,omitempty"`
}
