package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rushteam/cartrec/core"
	"github.com/rushteam/cartrec/recall"
)

// Metrics 是推荐服务的 Prometheus 指标。nil *Metrics 表示不打点。
type Metrics struct {
	Recommendations *prometheus.CounterVec
	Items           *prometheus.CounterVec
	Fallbacks       *prometheus.CounterVec
	Degraded        *prometheus.CounterVec
	Interactions    *prometheus.CounterVec
	Duration        *prometheus.HistogramVec
}

// NewMetrics 在 reg 上注册指标；reg 为 nil 时使用默认 Registerer。
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Recommendations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by algorithm.",
		}, []string{"algorithm"}),
		Items: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendation_items_total",
			Help:      "Returned recommendation items by recall source.",
		}, []string{"source"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Returned recommendation items produced by a fallback, by fallback reason.",
		}, []string{"fallback"}),
		Degraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_total",
			Help:      "Read operations that degraded to an empty result after a store failure.",
		}, []string{"operation"}),
		Interactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Recorded interactions by type.",
		}, []string{"type"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Engine operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) observe(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) recommendation(algorithm core.Algorithm, items []*core.Item) {
	if m == nil {
		return
	}
	m.Recommendations.WithLabelValues(string(algorithm)).Inc()
	m.items(items)
}

func (m *Metrics) items(items []*core.Item) {
	if m == nil {
		return
	}
	for _, it := range items {
		for _, src := range it.Labels[recall.LabelRecallSource].Values() {
			m.Items.WithLabelValues(src).Inc()
		}
		for _, fb := range it.Labels[recall.LabelFallback].Values() {
			m.Fallbacks.WithLabelValues(fb).Inc()
		}
	}
}

func (m *Metrics) degraded(operation string) {
	if m == nil {
		return
	}
	m.Degraded.WithLabelValues(operation).Inc()
}

func (m *Metrics) interaction(typ core.InteractionType) {
	if m == nil {
		return
	}
	m.Interactions.WithLabelValues(string(typ)).Inc()
}
