package config

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dnslin/minapp-go/core/baas"
	"github.com/dnslin/minapp-go/core/httpclient"
	"github.com/dnslin/minapp-go/core/metrics"
)

// ClientOptions 把配置转换为 baas.Option。启用指标时注册到 reg，reg 为 nil 时使用默认 Registerer。
func (c *Config) ClientOptions(logger httpclient.Logger, reg prometheus.Registerer) ([]baas.Option, error) {
	opts := []baas.Option{
		baas.WithClientID(c.ClientID),
		baas.WithEndpoint(c.Endpoint),
		baas.WithTransportConfig(c.Transport()),
		baas.WithWorkers(c.Dispatch.Workers),
		baas.WithConfirmInterval(c.ConfirmInterval()),
		baas.WithConfirmMaxAttempts(c.Upload.ConfirmMaxAttempts),
		baas.WithLogger(logger),
	}
	if c.Metrics.Enabled {
		t, err := metrics.NewTransport(reg, c.Metrics.Namespace)
		if err != nil {
			return nil, err
		}
		opts = append(opts, baas.WithMetrics(t))
	}
	return opts, nil
}
