// Package baas 是 BaaS 平台的客户端入口，持有共享传输层、会话与后台调度器。
package baas

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dnslin/minapp-go/core/auth"
	"github.com/dnslin/minapp-go/core/dispatch"
	"github.com/dnslin/minapp-go/core/httpclient"
	"github.com/dnslin/minapp-go/core/metrics"
	"github.com/dnslin/minapp-go/core/model"
	"github.com/dnslin/minapp-go/core/store"
)

const (
	// DefaultConfirmInterval 上传后轮询文件是否就绪的间隔。
	DefaultConfirmInterval = 500 * time.Millisecond
	// DefaultUserAgent 默认 User-Agent。
	DefaultUserAgent = "minapp-go/1.0"
	// HeaderPlatform 平台标识头。
	HeaderPlatform = "X-Hydrogen-Client-Platform"
	// Platform 平台标识。
	Platform = "GO"
)

// Client 统一封装 BaaS 接口调用，每个接口都有阻塞与后台两种形式。
type Client struct {
	provider   *httpclient.Provider
	session    *auth.Session
	login      *auth.LoginClient
	dispatcher *dispatch.Dispatcher
	looper     *dispatch.Looper
	logger     httpclient.Logger
	paths      Paths

	confirmInterval    time.Duration
	confirmMaxAttempts int
}

type options struct {
	clientID           string
	endpoint           string
	transport          httpclient.TransportConfig
	uploadTransport    httpclient.TransportConfig
	workers            int
	main               dispatch.Poster
	logger             httpclient.Logger
	sessionStore       store.SessionStore[*model.SignInResp]
	metrics            *metrics.Transport
	roundTripper       http.RoundTripper
	userAgent          string
	paths              Paths
	confirmInterval    time.Duration
	confirmMaxAttempts int
}

// Option 自定义客户端配置。
type Option func(*options)

// WithClientID 设置客户端标识，等价于创建后调用 Init。
func WithClientID(id string) Option {
	return func(o *options) {
		o.clientID = id
	}
}

// WithEndpoint 设置服务地址。
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithTransportConfig 覆盖普通请求传输层参数。
func WithTransportConfig(cfg httpclient.TransportConfig) Option {
	return func(o *options) {
		o.transport = cfg
	}
}

// WithUploadTransportConfig 覆盖上传传输层参数。
func WithUploadTransportConfig(cfg httpclient.TransportConfig) Option {
	return func(o *options) {
		o.uploadTransport = cfg
	}
}

// WithWorkers 设置后台工作 goroutine 数。
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithMainPoster 指定后台回调投递的主上下文，默认由客户端启动一个 Looper。
func WithMainPoster(p dispatch.Poster) Option {
	return func(o *options) {
		o.main = p
	}
}

// WithLogger 注入日志接口。
func WithLogger(logger httpclient.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSessionStore 设置登录态持久化。
func WithSessionStore(s store.SessionStore[*model.SignInResp]) Option {
	return func(o *options) {
		o.sessionStore = s
	}
}

// WithMetrics 为两类传输层接入 Prometheus 指标。
func WithMetrics(t *metrics.Transport) Option {
	return func(o *options) {
		o.metrics = t
	}
}

// WithRoundTripper 替换底层 RoundTripper，便于测试。
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) {
		o.roundTripper = rt
	}
}

// WithUserAgent 替换默认 User-Agent。
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithPaths 替换接口路径。
func WithPaths(p Paths) Option {
	return func(o *options) {
		o.paths = p
	}
}

// WithConfirmInterval 设置上传确认轮询间隔。
func WithConfirmInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.confirmInterval = d
		}
	}
}

// WithConfirmMaxAttempts 设置上传确认最多查询次数，0 表示不限。
func WithConfirmMaxAttempts(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.confirmMaxAttempts = n
		}
	}
}

// New 创建客户端。不会发起任何网络请求，传输层在首次使用时构造。
func New(opts ...Option) *Client {
	o := options{
		transport:       httpclient.DefaultTransportConfig(),
		uploadTransport: httpclient.UploadTransportConfig(),
		workers:         dispatch.DefaultWorkers,
		logger:          httpclient.NopLogger{},
		userAgent:       DefaultUserAgent,
		paths:           DefaultPaths(),
		confirmInterval: DefaultConfirmInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	sessionOpts := []auth.SessionOption{auth.WithSessionLogger(o.logger)}
	if o.sessionStore != nil {
		sessionOpts = append(sessionOpts, auth.WithSessionStore(o.sessionStore))
	}
	session := auth.NewSession(sessionOpts...)
	if o.clientID != "" {
		session.Init(o.clientID)
	}

	providerOpts := []httpclient.ProviderOption{
		httpclient.WithEndpoint(o.endpoint),
		httpclient.WithTransportConfig(httpclient.KindDefault, o.transport),
		httpclient.WithTransportConfig(httpclient.KindUpload, o.uploadTransport),
		httpclient.WithProviderLogger(o.logger),
		httpclient.WithDefaultMiddlewares(
			httpclient.WithUserAgent(o.userAgent),
			httpclient.WithHeader(HeaderPlatform, Platform),
			auth.Interceptor(session),
		),
	}
	if o.roundTripper != nil {
		rt := o.roundTripper
		providerOpts = append(providerOpts, httpclient.WithRoundTripperWrapper(
			func(httpclient.Kind, http.RoundTripper) http.RoundTripper { return rt }))
	}
	if o.metrics != nil {
		providerOpts = append(providerOpts, httpclient.WithRoundTripperWrapper(o.metrics.Wrap))
	}
	provider := httpclient.NewProvider(providerOpts...)

	c := &Client{
		provider:           provider,
		session:            session,
		logger:             o.logger,
		paths:              o.paths,
		confirmInterval:    o.confirmInterval,
		confirmMaxAttempts: o.confirmMaxAttempts,
	}
	c.login = auth.NewLoginClient(provider, session,
		auth.WithLoginLogger(o.logger),
		auth.WithLoginEndpoints(o.paths.Login),
	)

	main := o.main
	if main == nil {
		c.looper = dispatch.NewLooper(o.logger)
		c.looper.Start()
		main = c.looper
	}
	c.dispatcher = dispatch.NewDispatcher(main,
		dispatch.WithWorkers(o.workers),
		dispatch.WithLogger(o.logger),
	)
	return c
}

// Init 设置客户端标识，多次调用以最后一次为准。
func (c *Client) Init(clientID string) {
	c.session.Init(clientID)
}

// CurrentToken 返回当前登录 token，未登录时为空。
func (c *Client) CurrentToken() string {
	return c.session.CurrentToken()
}

// Session 返回会话。
func (c *Client) Session() *auth.Session {
	return c.session
}

// Provider 返回共享传输层。
func (c *Client) Provider() *httpclient.Provider {
	return c.provider
}

// Dispatcher 返回后台调度器。
func (c *Client) Dispatcher() *dispatch.Dispatcher {
	return c.dispatcher
}

// Login 返回登录客户端。
func (c *Client) Login() *auth.LoginClient {
	return c.login
}

// Close 等待已提交的后台调用完成并投递回调，然后停止内部 Looper。
func (c *Client) Close(ctx context.Context) error {
	err := c.dispatcher.Shutdown(ctx)
	if c.looper != nil {
		c.looper.Quit()
		select {
		case <-c.looper.Done():
		case <-ctx.Done():
			err = errors.Join(err, ctx.Err())
		}
	}
	return err
}
