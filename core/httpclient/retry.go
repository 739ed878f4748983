package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy 定义重试策略。每次 Do 调用都会通过 Backoff 取得新的退避序列。
type RetryPolicy interface {
	Backoff() retry.Backoff
	Retryable(req *http.Request, err error) bool
}

// RetryConfig 配置连接失败重试。
type RetryConfig struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Logger     Logger
}

// DefaultRetryConfig 连接失败最多重试 2 次。
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
	}
}

// ConnectionRetry 只对建立连接失败、连接被重置等 I/O 错误重试，HTTP 状态码一律不重试。
type ConnectionRetry struct {
	maxRetries uint64
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     Logger
}

// NewConnectionRetry 创建重试策略。
func NewConnectionRetry(cfg RetryConfig) *ConnectionRetry {
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger{}
	}
	base := cfg.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	maxDelay := cfg.MaxDelay
	if maxDelay < base {
		maxDelay = base
	}
	return &ConnectionRetry{
		maxRetries: cfg.MaxRetries,
		baseDelay:  base,
		maxDelay:   maxDelay,
		logger:     logger,
	}
}

// Backoff 指数退避，受最大重试次数与单次上限约束。
func (r *ConnectionRetry) Backoff() retry.Backoff {
	b := retry.NewExponential(r.baseDelay)
	b = retry.WithCappedDuration(r.maxDelay, b)
	return retry.WithMaxRetries(r.maxRetries, b)
}

// Retryable 判断错误是否属于连接失败。
func (r *ConnectionRetry) Retryable(req *http.Request, err error) bool {
	if r == nil || err == nil {
		return false
	}
	if req != nil && req.Context().Err() != nil {
		return false
	}
	if !IsConnectionFailure(err) {
		return false
	}
	r.logger.Debugf("连接失败，准备重试: %v", err)
	return true
}

// IsConnectionFailure 判断是否为连接阶段失败或连接被对端关闭。
func IsConnectionFailure(err error) bool {
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

// rewindable 判断请求体能否重放。
func rewindable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}
