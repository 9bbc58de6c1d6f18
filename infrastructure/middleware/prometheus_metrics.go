// Package middleware provides cross-cutting concerns for scoresheet
// analysis: Prometheus metrics and OpenTelemetry tracing around the
// voting engines.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/scrutineer-app/scrutineer/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks engine execution latency, parse and analysis
// outcomes, and coarse system state for the analysis service.
type PrometheusMetrics struct {
	engineLatency    *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance registered in
// the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWith(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsWith creates a PrometheusMetrics instance registered
// in the given registry. Tests use this to avoid duplicate registration
// in the global registry.
func NewPrometheusMetricsWith(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		engineLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scrutineer_engine_duration_seconds",
				Help:    "Execution time of voting engine calculations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "engine"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrutineer_operations_total",
				Help: "Total number of parse, fetch, and analysis operations.",
			},
			[]string{"operation", "status", "source"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scrutineer_system_state",
				Help: "Current system state values for the analysis service.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// operation latency in a Prometheus histogram. The "engine" label names
// the voting engine when the operation is an engine run.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	engine, ok := labels["engine"]
	if !ok {
		engine = "none"
	}
	pm.engineLatency.WithLabelValues(operation, engine).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// the operation counter. The "status" label defaults to success and the
// "source" label names the parser or fetch target when known.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	status, ok := labels["status"]
	if !ok {
		status = "success"
	}
	source, ok := labels["source"]
	if !ok {
		source = "none"
	}
	pm.operationCounter.WithLabelValues(metric, status, source).Add(value)
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}
