// Package metrics exposes database operation metrics to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sha1n/flea-db/internal/dberrors"
)

// Metrics records operation counts, latencies and pending writes.
type Metrics struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	pending    prometheus.Gauge
	generation prometheus.Gauge
}

// New creates metrics registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleadb_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fleadb_operation_duration_seconds",
				Help:    "Database operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fleadb_pending_writes",
			Help: "Number of uncommitted store and delete operations",
		}),
		generation: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fleadb_generation",
			Help: "Number of commits since the database was opened",
		}),
	}
}

// Observe records one finished operation. The status label is "ok" or the
// error kind.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	m.operations.WithLabelValues(operation, status(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// SetPending sets the number of uncommitted operations.
func (m *Metrics) SetPending(n int) {
	m.pending.Set(float64(n))
}

// SetGeneration sets the commit generation.
func (m *Metrics) SetGeneration(g uint64) {
	m.generation.Set(float64(g))
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func status(err error) string {
	if err == nil {
		return "ok"
	}
	var e *dberrors.Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "error"
}
