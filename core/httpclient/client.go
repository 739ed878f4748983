package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sethvargo/go-retry"

	"github.com/dnslin/minapp-go/core/codec"
)

// Logger 由外部注入，满足 core 层无输出原则。
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger 默认空日志实现。
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Errorf(string, ...any) {}

// Client 为统一 HTTP 客户端封装。
type Client struct {
	HTTP    *http.Client
	Jar     http.CookieJar
	BaseURL *url.URL
	Codec   *codec.Codec
	Prepare PrepareChain
	Retry   RetryPolicy
	Logger  Logger
}

// Option 配置客户端。
type Option func(*Client)

// WithHTTPClient 自定义 http.Client。
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.HTTP = httpClient
	}
}

// WithCookieJar 设置 CookieJar。
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.Jar = jar
	}
}

// WithBaseURL 设置服务地址，解析失败或为空时视为未配置。
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		c.BaseURL = parseBaseURL(raw)
	}
}

// WithCodec 设置 JSON 编解码器。
func WithCodec(cd *codec.Codec) Option {
	return func(c *Client) {
		c.Codec = cd
	}
}

// WithRetryPolicy 设置重试策略，传入 nil 关闭重试。
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.Retry = policy
	}
}

// WithLogger 注入日志。
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.Logger = logger
	}
}

// WithMiddlewares 设置请求中间件链。
func WithMiddlewares(mw ...Middleware) Option {
	return func(c *Client) {
		c.Prepare = append(c.Prepare, mw...)
	}
}

// NewClient 创建带连接失败重试、内存 CookieJar 的客户端。
func NewClient(opts ...Option) *Client {
	client := &Client{
		Prepare: PrepareChain{},
		Logger:  NopLogger{},
		Retry:   NewConnectionRetry(DefaultRetryConfig()),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.HTTP == nil {
		client.HTTP = &http.Client{}
	}
	if client.Logger == nil {
		client.Logger = NopLogger{}
	}
	if client.Codec == nil {
		client.Codec = codec.New()
	}
	if client.Jar == nil {
		client.Jar = client.HTTP.Jar
	}
	if client.Jar == nil {
		client.Jar = NewCookieStore()
	}
	if client.HTTP.Jar == nil {
		client.HTTP.Jar = client.Jar
	}
	return client
}

// Cookies 读取当前 jar 中的 cookies。
func (c *Client) Cookies(u *url.URL) []*http.Cookie {
	if c == nil || c.Jar == nil {
		return nil
	}
	return c.Jar.Cookies(u)
}

// Use 添加中间件。
func (c *Client) Use(mw ...Middleware) {
	c.Prepare = append(c.Prepare, mw...)
}

// NewRequest 基于服务地址构造请求，body 非 nil 时按 JSON 编码并支持重放。
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	if c == nil || c.BaseURL == nil {
		return nil, ErrEndpointUnset
	}
	target, err := c.BaseURL.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("httpclient: 解析路径失败: %w", err)
	}
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	var payload []byte
	if body != nil {
		payload, err = c.Codec.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: 编码请求体失败: %w", err)
		}
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Do 发送请求并按需解码 JSON，包含中间件与连接失败重试。out 为 nil 时忽略响应体。
func (c *Client) Do(req *http.Request, out any) error {
	if req == nil {
		return errors.New("httpclient: 请求为空")
	}
	if c.HTTP == nil {
		return errors.New("httpclient: http.Client 未配置")
	}
	if c.Retry == nil {
		cloned, err := c.cloneRequest(req, 0)
		if err != nil {
			return err
		}
		return asNetworkError(c.execute(cloned, out, 0))
	}
	attempt := 0
	return asNetworkError(retry.Do(req.Context(), c.Retry.Backoff(), func(ctx context.Context) error {
		cloned, err := c.cloneRequest(req, attempt)
		if err != nil {
			return err
		}
		err = c.execute(cloned, out, attempt)
		attempt++
		if err != nil && rewindable(req) && c.Retry.Retryable(cloned, err) {
			return retry.RetryableError(err)
		}
		return err
	}))
}

// asNetworkError 把未分类的 context 取消或超时归为 NetworkError。
func asNetworkError(err error) error {
	if err == nil {
		return nil
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &NetworkError{Err: err}
	}
	return err
}

func (c *Client) execute(req *http.Request, out any, attempt int) error {
	if c.Prepare != nil {
		if err := c.Prepare.Apply(req); err != nil {
			return err
		}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Logger.Debugf("%s %s 第 %d 次发送失败: %v", req.Method, req.URL.Path, attempt+1, err)
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	c.Logger.Debugf("%s %s -> %d (attempt=%d)", req.Method, req.URL.Path, resp.StatusCode, attempt+1)

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return newHTTPError(resp.StatusCode, raw)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &EmptyResponseError{Status: resp.StatusCode}
	}
	if decodeErr := c.Codec.Unmarshal(raw, out); decodeErr != nil {
		return &EmptyResponseError{Status: resp.StatusCode, Err: decodeErr}
	}
	return nil
}

func (c *Client) cloneRequest(req *http.Request, attempt int) (*http.Request, error) {
	cloned := req.Clone(req.Context())
	cloned.Header = req.Header.Clone()
	cloned.GetBody = req.GetBody
	cloned.ContentLength = req.ContentLength
	cloned.TransferEncoding = append([]string(nil), req.TransferEncoding...)
	if req.Body != nil {
		if attempt == 0 {
			cloned.Body = req.Body
		} else {
			if req.GetBody == nil {
				return nil, fmt.Errorf("httpclient: 请求体不可重试")
			}
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			cloned.Body = body
		}
	}
	return cloned, nil
}

func parseBaseURL(raw string) *url.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u
}
