// Package metrics exports Prometheus metrics for lifecycle operations.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/lifecycle"
)

const (
	// Namespace prefixes every metric name.
	Namespace = "index_lifecycle"
)

// Metrics implements lifecycle.Observer.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New creates and registers the metrics on reg, or on the default
// registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "operations_total",
				Help:      "Total number of lifecycle operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of lifecycle operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
			},
			[]string{"operation"},
		),
	}
}

// Observe records e.
func (m *Metrics) Observe(_ context.Context, e lifecycle.Event) {
	op := string(e.Operation)
	m.OperationsTotal.WithLabelValues(op, e.Outcome()).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(e.Duration.Seconds())
}
