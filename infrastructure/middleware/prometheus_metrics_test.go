package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrometheusMetrics(t *testing.T) {
	pm := NewPrometheusMetricsWith(prometheus.NewRegistry())

	require.NotNil(t, pm)
	assert.NotNil(t, pm.engineLatency, "engineLatency should be initialized")
	assert.NotNil(t, pm.operationCounter, "operationCounter should be initialized")
	assert.NotNil(t, pm.systemGauges, "systemGauges should be initialized")
}

func TestPrometheusMetrics_RecordLatency(t *testing.T) {
	tests := []struct {
		name       string
		operation  string
		labels     map[string]string
		wantEngine string
	}{
		{
			name:       "engine label present",
			operation:  "engine_calculate",
			labels:     map[string]string{"engine": "Borda Count"},
			wantEngine: "Borda Count",
		},
		{
			name:       "engine label missing defaults to none",
			operation:  "parse",
			labels:     map[string]string{},
			wantEngine: "none",
		},
		{
			name:       "nil labels",
			operation:  "fetch",
			labels:     nil,
			wantEngine: "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := NewPrometheusMetricsWith(prometheus.NewRegistry())

			pm.RecordLatency(tt.operation, 150*time.Millisecond, tt.labels)

			count := testutil.CollectAndCount(pm.engineLatency)
			assert.Equal(t, 1, count, "exactly one labeled series should exist")
		})
	}
}

func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	pm := NewPrometheusMetricsWith(prometheus.NewRegistry())

	pm.RecordCounter("analyze", 1, map[string]string{
		"status": "success",
		"source": "scoring.dance",
	})
	pm.RecordCounter("analyze", 1, map[string]string{
		"status": "success",
		"source": "scoring.dance",
	})
	pm.RecordCounter("analyze", 1, map[string]string{"status": "error"})

	success := pm.operationCounter.WithLabelValues("analyze", "success", "scoring.dance")
	assert.Equal(t, 2.0, testutil.ToFloat64(success))

	failed := pm.operationCounter.WithLabelValues("analyze", "error", "none")
	assert.Equal(t, 1.0, testutil.ToFloat64(failed))
}

func TestPrometheusMetrics_RecordCounter_DefaultLabels(t *testing.T) {
	pm := NewPrometheusMetricsWith(prometheus.NewRegistry())

	pm.RecordCounter("parse", 1, nil)

	counter := pm.operationCounter.WithLabelValues("parse", "success", "none")
	assert.Equal(t, 1.0, testutil.ToFloat64(counter))
}

func TestPrometheusMetrics_RecordGauge(t *testing.T) {
	pm := NewPrometheusMetricsWith(prometheus.NewRegistry())

	pm.RecordGauge("engines_registered", 4, nil)
	pm.RecordGauge("engines_registered", 5, nil)

	gauge := pm.systemGauges.WithLabelValues("engines_registered")
	assert.Equal(t, 5.0, testutil.ToFloat64(gauge), "gauge should hold the latest value")
}
