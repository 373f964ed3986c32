// Package observability records query outcomes and dataset size as
// Prometheus metrics.
package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names reported by the dashboard.
const (
	OpOptions    = "options"
	OpSummary    = "summary"
	OpTimeSeries = "timeseries"
)

// MetricsRecorder captures the outcome of one operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	SetDatasetRows(n int)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

// Observe implements MetricsRecorder.
func (NoopRecorder) Observe(context.Context, string, bool, time.Duration) {}

// SetDatasetRows implements MetricsRecorder.
func (NoopRecorder) SetDatasetRows(int) {}

// PrometheusRecorder exports counters, a latency histogram and a row gauge.
type PrometheusRecorder struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     prometheus.Gauge
}

var (
	_ MetricsRecorder = NoopRecorder{}
	_ MetricsRecorder = (*PrometheusRecorder)(nil)
)

// NewPrometheusRecorder creates the collectors and registers them on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resultsdash",
			Name:      "queries_total",
			Help:      "Dashboard queries by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "resultsdash",
			Name:      "query_duration_seconds",
			Help:      "Time spent answering dashboard queries.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "resultsdash",
			Name:      "dataset_rows",
			Help:      "Rows in the prepared dataset.",
		}),
	}
	for _, c := range []prometheus.Collector{r.queries, r.duration, r.rows} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe records a query outcome. Empty operation names are ignored.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	outcome := "error"
	if success {
		outcome = "success"
	}
	r.queries.WithLabelValues(operation, outcome).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetDatasetRows publishes the prepared row count.
func (r *PrometheusRecorder) SetDatasetRows(n int) {
	r.rows.Set(float64(n))
}
