package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dnslin/minapp-go/core/codec"
)

// Kind 区分共享传输层的用途。
type Kind int

const (
	// KindDefault 普通 API 请求：有超时、连接失败重试、携带中间件链。
	KindDefault Kind = iota
	// KindUpload 文件推送：不限超时、不重试、不携带会话。
	KindUpload

	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindDefault:
		return "default"
	case KindUpload:
		return "upload"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TransportConfig 传输层参数，超时为 0 表示不限。
type TransportConfig struct {
	ConnectTimeout           time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
	FollowRedirects          bool
	RetryOnConnectionFailure bool
}

// DefaultTransportConfig 普通请求默认 10 秒超时。
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ConnectTimeout:           10 * time.Second,
		ReadTimeout:              10 * time.Second,
		WriteTimeout:             10 * time.Second,
		FollowRedirects:          true,
		RetryOnConnectionFailure: true,
	}
}

// UploadTransportConfig 上传不限超时，也不重试。
func UploadTransportConfig() TransportConfig {
	return TransportConfig{FollowRedirects: true}
}

// RoundTripperWrapper 在构造传输层时包装底层 RoundTripper，例如接入指标。
type RoundTripperWrapper func(kind Kind, next http.RoundTripper) http.RoundTripper

// Provider 按需构造并缓存各类共享 Client，并发首次调用只会构造一次。
type Provider struct {
	mu      sync.Mutex
	handles [kindCount]atomic.Pointer[Client]
	codec   atomic.Pointer[codec.Codec]

	endpoint    string
	configs     [kindCount]TransportConfig
	middlewares []Middleware
	wrappers    []RoundTripperWrapper
	jar         http.CookieJar
	logger      Logger
	newCodec    func() *codec.Codec
}

// ProviderOption 配置 Provider。
type ProviderOption func(*Provider)

// WithEndpoint 设置服务地址。
func WithEndpoint(endpoint string) ProviderOption {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// WithTransportConfig 覆盖某类传输层参数。
func WithTransportConfig(kind Kind, cfg TransportConfig) ProviderOption {
	return func(p *Provider) {
		if kind >= 0 && kind < kindCount {
			p.configs[kind] = cfg
		}
	}
}

// WithDefaultMiddlewares 追加仅作用于普通请求的中间件。
func WithDefaultMiddlewares(mw ...Middleware) ProviderOption {
	return func(p *Provider) {
		p.middlewares = append(p.middlewares, mw...)
	}
}

// WithRoundTripperWrapper 追加传输层包装。
func WithRoundTripperWrapper(w RoundTripperWrapper) ProviderOption {
	return func(p *Provider) {
		if w != nil {
			p.wrappers = append(p.wrappers, w)
		}
	}
}

// WithSharedCookieJar 替换默认的内存 CookieStore。
func WithSharedCookieJar(jar http.CookieJar) ProviderOption {
	return func(p *Provider) {
		p.jar = jar
	}
}

// WithProviderLogger 注入日志。
func WithProviderLogger(logger Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithCodecFactory 自定义共享编解码器的构造方式。
func WithCodecFactory(fn func() *codec.Codec) ProviderOption {
	return func(p *Provider) {
		if fn != nil {
			p.newCodec = fn
		}
	}
}

// NewProvider 创建 Provider，此时不会构造任何传输层。
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		logger: NopLogger{},
		newCodec: func() *codec.Codec {
			return codec.New()
		},
	}
	p.configs[KindDefault] = DefaultTransportConfig()
	p.configs[KindUpload] = UploadTransportConfig()
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = NopLogger{}
	}
	if p.jar == nil {
		p.jar = NewCookieStore()
	}
	return p
}

// Codec 返回共享编解码器。
func (p *Provider) Codec() *codec.Codec {
	if c := p.codec.Load(); c != nil {
		return c
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.codec.Load(); c != nil {
		return c
	}
	c := p.newCodec()
	p.codec.Store(c)
	return c
}

// Transport 返回指定类型的共享 Client。未配置服务地址不会导致失败，由请求构造阶段报错。
func (p *Provider) Transport(kind Kind) *Client {
	if kind < 0 || kind >= kindCount {
		kind = KindDefault
	}
	if c := p.handles[kind].Load(); c != nil {
		return c
	}
	cd := p.Codec()
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.handles[kind].Load(); c != nil {
		return c
	}
	c := p.build(kind, cd)
	p.handles[kind].Store(c)
	return c
}

// Default 等价于 Transport(KindDefault)。
func (p *Provider) Default() *Client {
	return p.Transport(KindDefault)
}

// Upload 等价于 Transport(KindUpload)。
func (p *Provider) Upload() *Client {
	return p.Transport(KindUpload)
}

// CookieJar 返回共享的 CookieJar。
func (p *Provider) CookieJar() http.CookieJar {
	return p.jar
}

func (p *Provider) build(kind Kind, cd *codec.Codec) *Client {
	cfg := p.configs[kind]
	var rt http.RoundTripper = newTransport(cfg)
	for _, w := range p.wrappers {
		rt = w(kind, rt)
	}
	httpClient := &http.Client{
		Transport: rt,
		Jar:       p.jar,
		Timeout:   totalTimeout(cfg),
	}
	if !cfg.FollowRedirects {
		httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	opts := []Option{
		WithHTTPClient(httpClient),
		WithCookieJar(p.jar),
		WithCodec(cd),
		WithLogger(p.logger),
		WithBaseURL(p.endpoint),
	}
	if cfg.RetryOnConnectionFailure {
		rc := DefaultRetryConfig()
		rc.Logger = p.logger
		opts = append(opts, WithRetryPolicy(NewConnectionRetry(rc)))
	} else {
		opts = append(opts, WithRetryPolicy(nil))
	}
	if kind == KindDefault {
		opts = append(opts, WithMiddlewares(WithRequestID()))
		opts = append(opts, WithMiddlewares(p.middlewares...))
		opts = append(opts, WithMiddlewares(WithContentType("application/json; charset=utf-8")))
	}
	p.logger.Debugf("httpclient: 构造 %s 传输层", kind)
	return NewClient(opts...)
}

func newTransport(cfg TransportConfig) *http.Transport {
	base, ok := http.DefaultTransport.(*http.Transport)
	var tr *http.Transport
	if ok {
		tr = base.Clone()
	} else {
		tr = &http.Transport{Proxy: http.ProxyFromEnvironment}
	}
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}
	tr.DialContext = dialer.DialContext
	tr.TLSHandshakeTimeout = cfg.ConnectTimeout
	tr.ResponseHeaderTimeout = cfg.ReadTimeout
	return tr
}

// totalTimeout 三项都有界时取其和作为整体超时，任一不限则整体不限。
func totalTimeout(cfg TransportConfig) time.Duration {
	if cfg.ConnectTimeout <= 0 || cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 {
		return 0
	}
	return cfg.ConnectTimeout + cfg.ReadTimeout + cfg.WriteTimeout
}
