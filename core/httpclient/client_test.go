package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	coreerrors "github.com/dnslin/minapp-go/core/errors"
)

type mockResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func newTestClient(rt http.RoundTripper, opts ...Option) *Client {
	base := []Option{
		WithHTTPClient(&http.Client{Transport: rt}),
		WithBaseURL("https://mock.example.com/"),
	}
	return NewClient(append(base, opts...)...)
}

func TestDoSuccess(t *testing.T) {
	client := newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"id":1,"name":"ok"}`), nil
	}))
	req, err := client.NewRequest(context.Background(), http.MethodGet, "/hserve/v2.1/uploaded-file/1/", nil, nil)
	if err != nil {
		t.Fatalf("构造请求失败: %v", err)
	}
	var rsp mockResponse
	if err := client.Do(req, &rsp); err != nil {
		t.Fatalf("预期成功，得到错误: %v", err)
	}
	if rsp.ID != 1 || rsp.Name != "ok" {
		t.Fatalf("响应解析错误: %+v", rsp)
	}
}

func TestNewRequestWithoutEndpoint(t *testing.T) {
	client := NewClient()
	_, err := client.NewRequest(context.Background(), http.MethodGet, "/x/", nil, nil)
	if !errors.Is(err, ErrEndpointUnset) {
		t.Fatalf("未配置服务地址应返回 ErrEndpointUnset，实际: %v", err)
	}
	if coreerrors.CodeOf(err) != coreerrors.ErrCodeInvalidConfig {
		t.Fatalf("错误码应为 INVALID_CONFIG，实际: %s", coreerrors.CodeOf(err))
	}
}

func TestNewRequestEncodesBody(t *testing.T) {
	var got []byte
	client := newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		got, _ = io.ReadAll(req.Body)
		if ct := req.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
			t.Errorf("Content-Type 不正确: %s", ct)
		}
		if req.URL.String() != "https://mock.example.com/api/echo/?a=1" {
			t.Errorf("URL 拼接错误: %s", req.URL)
		}
		return jsonResponse(http.StatusOK, `{}`), nil
	}))
	req, err := client.NewRequest(context.Background(), http.MethodPost, "api/echo/", map[string][]string{"a": {"1"}}, map[string]string{"q": "<a>"})
	if err != nil {
		t.Fatalf("构造请求失败: %v", err)
	}
	if req.GetBody == nil {
		t.Fatal("JSON 请求体应可重放")
	}
	if err := client.Do(req, nil); err != nil {
		t.Fatalf("发送失败: %v", err)
	}
	if string(got) != `{"q":"<a>"}` {
		t.Fatalf("请求体不符合预期: %s", got)
	}
}

func TestHTTPErrorStatus(t *testing.T) {
	client := newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusPaymentRequired, `{"error_msg":"余额不足","code":402}`), nil
	}))
	req, _ := client.NewRequest(context.Background(), http.MethodGet, "/x/", nil, nil)
	err := client.Do(req, &mockResponse{})
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("错误类型应为 HTTPError，实际: %v", err)
	}
	if he.Status != http.StatusPaymentRequired || he.Message != "余额不足" || he.Code != "402" {
		t.Fatalf("HTTPError 字段不正确: %+v", he)
	}
	if status, ok := StatusOf(err); !ok || status != 402 {
		t.Fatalf("StatusOf 返回 %d/%v", status, ok)
	}
}

func TestHTTPErrorWithoutBody(t *testing.T) {
	client := newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, ``), nil
	}))
	req, _ := client.NewRequest(context.Background(), http.MethodGet, "/x/", nil, nil)
	err := client.Do(req, nil)
	if !IsNotFound(err) {
		t.Fatalf("应识别为 404，实际: %v", err)
	}
	if code := coreerrors.CodeOf(err); code != coreerrors.ErrCodeNotFound {
		t.Fatalf("404 错误码应为 NOT_FOUND，实际: %s", code)
	}
}

func TestServerErrorNotRetried(t *testing.T) {
	attempts := 0
	client := newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		return jsonResponse(http.StatusInternalServerError, `{"message":"boom"}`), nil
	}))
	req, _ := client.NewRequest(context.Background(), http.MethodGet, "/x/", nil, nil)
	if err := client.Do(req, nil); err == nil {
		t.Fatal("预期 500 错误")
	}
	if attempts != 1 {
		t.Fatalf("HTTP 状态码不应重试，实际请求 %d 次", attempts)
	}
}

func TestEmptyResponse(t *testing.T) {
	client := newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, ``), nil
	}))
	req, _ := client.NewRequest(context.Background(), http.MethodGet, "/x/", nil, nil)
	err := client.Do(req, &mockResponse{})
	var ee *EmptyResponseError
	if !errors.As(err, &ee) {
		t.Fatalf("错误类型应为 EmptyResponseError，实际: %v", err)
	}
	if ee.Err != nil {
		t.Fatalf("空响应体不应带解码错误: %v", ee.Err)
	}
	if code := coreerrors.CodeOf(err); code != coreerrors.ErrCodeInvalidState {
		t.Fatalf("错误码应为 INVALID_STATE，实际: %s", code)
	}
}

func TestDecodeError(t *testing.T) {
	client := newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `invalid json`), nil
	}))
	req, _ := client.NewRequest(context.Background(), http.MethodGet, "/x/", nil, nil)
	err := client.Do(req, &mockResponse{})
	var ee *EmptyResponseError
	if !errors.As(err, &ee) || ee.Err == nil {
		t.Fatalf("错误类型应为带解码错误的 EmptyResponseError，实际: %v", err)
	}
}

func TestNetworkRetry(t *testing.T) {
	transport := &flakyTransport{
		failures: 1,
		inner: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"id":1}`), nil
		}),
	}
	client := newTestClient(transport, WithRetryPolicy(NewConnectionRetry(RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	})))
	req, _ := client.NewRequest(context.Background(), http.MethodPost, "/x/", nil, map[string]int{"a": 1})
	var rsp mockResponse
	if err := client.Do(req, &rsp); err != nil {
		t.Fatalf("连接失败后应重试成功: %v", err)
	}
	if transport.attempts != 2 {
		t.Fatalf("应尝试 2 次，实际 %d", transport.attempts)
	}
	if string(transport.bodies[1]) != `{"a":1}` {
		t.Fatalf("重试时请求体应被重放，实际: %s", transport.bodies[1])
	}
}

func TestNetworkRetryExhausted(t *testing.T) {
	transport := &flakyTransport{failures: 10}
	client := newTestClient(transport, WithRetryPolicy(NewConnectionRetry(RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
	})))
	req, _ := client.NewRequest(context.Background(), http.MethodGet, "/x/", nil, nil)
	err := client.Do(req, nil)
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("错误类型应为 NetworkError，实际: %v", err)
	}
	if transport.attempts != 3 {
		t.Fatalf("应尝试 1+2 次，实际 %d", transport.attempts)
	}
}

func TestCanceledContextIsNetworkError(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if err := req.Context().Err(); err != nil {
			return nil, err
		}
		return jsonResponse(http.StatusOK, `{}`), nil
	})
	for name, client := range map[string]*Client{
		"retry":    newTestClient(rt, WithRetryPolicy(NewConnectionRetry(RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond}))),
		"no-retry": newTestClient(rt, WithRetryPolicy(nil)),
	} {
		ctx, cancel := context.WithCancel(context.Background())
		req, _ := client.NewRequest(ctx, http.MethodGet, "/x/", nil, nil)
		cancel()
		err := client.Do(req, nil)
		var ne *NetworkError
		if !errors.As(err, &ne) {
			t.Fatalf("%s: 取消的请求应为 NetworkError，实际: %v", name, err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("%s: 错误应保留 context.Canceled，实际: %v", name, err)
		}
		if coreerrors.CodeOf(err) != coreerrors.ErrCodeNetwork {
			t.Fatalf("%s: 错误码应为网络错误，实际: %v", name, coreerrors.CodeOf(err))
		}
	}
}

func TestBodyWithoutGetBodyIsNotRetried(t *testing.T) {
	transport := &flakyTransport{failures: 10}
	client := newTestClient(transport, WithRetryPolicy(NewConnectionRetry(RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
	})))
	req, _ := http.NewRequest(http.MethodPost, "https://mock.example.com/body", io.NopCloser(bytes.NewBufferString("data")))
	req.GetBody = nil // 模拟无法重放请求体的场景
	if err := client.Do(req, nil); err == nil {
		t.Fatal("预期连接失败")
	}
	if transport.attempts != 1 {
		t.Fatalf("请求体不可重放时不应重试，实际 %d 次", transport.attempts)
	}
}

func TestMiddlewareErrorStopsRequest(t *testing.T) {
	called := false
	client := newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		called = true
		return jsonResponse(http.StatusOK, `{}`), nil
	}), WithMiddlewares(func(*http.Request) error {
		return errors.New("拒绝")
	}))
	req, _ := client.NewRequest(context.Background(), http.MethodGet, "/x/", nil, nil)
	if err := client.Do(req, nil); err == nil {
		t.Fatal("中间件错误应透传")
	}
	if called {
		t.Fatal("中间件失败后不应发出请求")
	}
}

type flakyTransport struct {
	failures int
	inner    http.RoundTripper
	attempts int
	bodies   [][]byte
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.attempts++
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	f.bodies = append(f.bodies, body)
	if f.failures > 0 {
		f.failures--
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	}
	return f.inner.RoundTrip(req)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/json")
	rec.WriteHeader(status)
	rec.Body.WriteString(body)
	return rec.Result()
}
