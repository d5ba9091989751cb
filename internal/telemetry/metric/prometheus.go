// Package metric provides Prometheus metrics for SnapKeeper.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "snapkeeper"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Registry holds all application metrics.
//
// A nil *Registry is valid and records nothing.
type Registry struct {
	OperationsTotal *prometheus.CounterVec
	CachedDatabases prometheus.Gauge
	ServiceDuration *prometheus.HistogramVec
	CatalogEntries  *prometheus.GaugeVec
}

// NewRegistry creates the metrics and registers them with reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "operations_total",
			Help:      "Snapshot repository operations by operation and outcome",
		}, []string{"op", "outcome"}),

		CachedDatabases: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "cached_databases",
			Help:      "Databases whose snapshot list is currently loaded",
		}),

		ServiceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database_service",
			Name:      "duration_seconds",
			Help:      "Latency of database service calls",
			Buckets:   []float64{.005, .025, .1, .5, 1, 5, 30, 120},
		}, []string{"op"}),

		CatalogEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "entries",
			Help:      "Catalog entries seen on the last listing, per database",
		}, []string{"database"}),
	}

	if reg != nil {
		reg.MustRegister(r.OperationsTotal, r.CachedDatabases, r.ServiceDuration, r.CatalogEntries)
	}
	return r
}

// ObserveOperation counts one repository operation.
func (r *Registry) ObserveOperation(op string, ok bool) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeFailure
	}
	r.OperationsTotal.WithLabelValues(op, outcome).Inc()
}

// SetCachedDatabases records the cache size.
func (r *Registry) SetCachedDatabases(n int) {
	if r == nil {
		return
	}
	r.CachedDatabases.Set(float64(n))
}

// ObserveServiceCall records how long a database service call took.
func (r *Registry) ObserveServiceCall(op string, started time.Time) {
	if r == nil {
		return
	}
	r.ServiceDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// SetCatalogEntries records the number of catalog entries for a database.
func (r *Registry) SetCatalogEntries(database string, n int) {
	if r == nil {
		return
	}
	r.CatalogEntries.WithLabelValues(database).Set(float64(n))
}
