// Package metrics provides Prometheus metrics for the arbitrage client
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set 汇总引擎各处使用的指标。
type Set struct {
	Events       *prometheus.CounterVec
	Actions      *prometheus.CounterVec
	Conversions  *prometheus.CounterVec
	DecodeErrors prometheus.Counter
	Reconnects   prometheus.Counter
	Position     *prometheus.GaugeVec
	FairValue    *prometheus.GaugeVec
}

// New 在给定 Registerer 上注册全部指标。
func New(reg prometheus.Registerer) *Set {
	factory := promauto.With(reg)
	return &Set{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etc_events_total",
			Help: "Inbound exchange events by type",
		}, []string{"type"}),
		Actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etc_actions_total",
			Help: "Outbound actions by type",
		}, []string{"type"}),
		Conversions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etc_conversions_total",
			Help: "Convert actions issued by strategy",
		}, []string{"strategy"}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "etc_decode_errors_total",
			Help: "Feed lines skipped because they failed to decode",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "etc_reconnects_total",
			Help: "Successful exchange reconnections",
		}),
		Position: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "etc_position",
			Help: "Net inventory by symbol",
		}, []string{"symbol"}),
		FairValue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "etc_fair_value",
			Help: "Latest fair-value estimate by symbol",
		}, []string{"symbol"}),
	}
}

// NewDefault 注册到默认 registry。
func NewDefault() *Set {
	return New(prometheus.DefaultRegisterer)
}

// StartServer 启动Prometheus指标服务器
func StartServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
