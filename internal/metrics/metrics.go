// Package metrics exposes Prometheus collectors for gateway invocations.
package metrics

import (
	"context"
	"strconv"

	"apigw-local/internal/gateway"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors updated for every processed request.
type Metrics struct {
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	AuthorizerDenials  *prometheus.CounterVec
	Routes             prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		InvocationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apigw_local",
				Name:      "invocations_total",
				Help:      "Total number of requests dispatched to functions",
			},
			[]string{"function", "outcome", "status"},
		),
		InvocationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "apigw_local",
				Name:      "invocation_duration_seconds",
				Help:      "Time from request dispatch to response write",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"function"},
		),
		AuthorizerDenials: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apigw_local",
				Name:      "authorizer_denials_total",
				Help:      "Requests rejected by an authorizer",
			},
			[]string{"function"},
		),
		Routes: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "apigw_local",
				Name:      "routes",
				Help:      "Number of mounted routes",
			},
		),
	}
}

// Observe implements gateway.Observer.
func (m *Metrics) Observe(_ context.Context, inv *gateway.Invocation) {
	m.InvocationsTotal.WithLabelValues(inv.Function, string(inv.Outcome), strconv.Itoa(inv.StatusCode)).Inc()
	m.InvocationDuration.WithLabelValues(inv.Function).Observe(inv.Duration.Seconds())
	if inv.Outcome == gateway.OutcomeUnauthorized {
		m.AuthorizerDenials.WithLabelValues(inv.Function).Inc()
	}
}
