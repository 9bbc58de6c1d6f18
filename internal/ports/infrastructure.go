package ports

import (
	"context"
	"time"
)

// Fetcher retrieves raw scoresheet content from a URL.
// Implementations are expected to bound body size and apply outbound
// rate limiting so the analyzer cannot hammer third-party sites.
type Fetcher interface {
	// Fetch downloads the content at the given URL.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// MetricsCollector defines the interface for collecting operational
// metrics. Implementations might use Prometheus, StatsD, or other
// monitoring systems.
type MetricsCollector interface {
	// RecordLatency records the duration of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets a gauge metric to a specific value.
	RecordGauge(metric string, value float64, labels map[string]string)
}
