// Package metrics 为共享传输层与后台调度器提供 Prometheus 指标。
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dnslin/minapp-go/core/dispatch"
	"github.com/dnslin/minapp-go/core/httpclient"
)

// Transport 记录出站请求次数、耗时与在途数量，按传输层类型区分。
type Transport struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight *prometheus.GaugeVec
}

// NewTransport 创建并注册传输层指标，reg 为 nil 时使用默认 Registerer。重复注册时复用已存在的指标。
func NewTransport(reg prometheus.Registerer, namespace string) (*Transport, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "出站请求总数",
	}, []string{"kind", "code", "method"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "出站请求耗时",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind", "code", "method"})
	inflight := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "inflight_requests",
		Help:      "在途出站请求数",
	}, []string{"kind"})

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if inflight, err = register(reg, inflight); err != nil {
		return nil, err
	}
	return &Transport{requests: requests, duration: duration, inflight: inflight}, nil
}

// Wrap 满足 httpclient.RoundTripperWrapper。
func (t *Transport) Wrap(kind httpclient.Kind, next http.RoundTripper) http.RoundTripper {
	if t == nil {
		return next
	}
	labels := prometheus.Labels{"kind": kind.String()}
	rt := promhttp.InstrumentRoundTripperCounter(t.requests.MustCurryWith(labels), next)
	rt = promhttp.InstrumentRoundTripperDuration(t.duration.MustCurryWith(labels), rt)
	return promhttp.InstrumentRoundTripperInFlight(t.inflight.WithLabelValues(kind.String()), rt)
}

// RegisterDispatcher 以 GaugeFunc 暴露调度器排队中的任务数。
func RegisterDispatcher(reg prometheus.Registerer, namespace string, d *dispatch.Dispatcher) error {
	if d == nil {
		return nil
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	pending := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dispatch",
		Name:      "pending_tasks",
		Help:      "排队中的后台任务数",
	}, func() float64 {
		return float64(d.Pending())
	})
	if _, err := register[prometheus.GaugeFunc](reg, pending); err != nil {
		return err
	}
	return nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
