package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Index sync outcomes
const (
	SyncApplied        = "applied"
	SyncSkipped        = "skipped"
	SyncFailed         = "failed"
	SyncDispatchFailed = "dispatch_failed"
)

// Metrics provides observability for the registry core.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	// Index synchronization outcomes by index and outcome
	IndexSync *prometheus.CounterVec

	// Workflow operations by operation and result
	Operations *prometheus.CounterVec

	// Workflow operation latency by operation
	OperationLatency *prometheus.HistogramVec

	// Temp absent codes regenerated after a collision
	CodeCollisions prometheus.Counter
}

// New creates a Metrics instance on its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		IndexSync: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qldp_index_sync_total",
			Help: "Index synchronization jobs by index and outcome",
		}, []string{"index", "outcome"}),

		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qldp_workflow_operations_total",
			Help: "Workflow operations by operation and result",
		}, []string{"operation", "result"}),

		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qldp_workflow_operation_duration_seconds",
			Help:    "Duration of workflow operations including the primary transaction",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		CodeCollisions: factory.NewCounter(prometheus.CounterOpts{
			Name: "qldp_temp_absent_code_collisions_total",
			Help: "Generated temp absent codes that were already taken",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncrementSync records an index synchronization outcome
func (m *Metrics) IncrementSync(index, outcome string) {
	if m != nil {
		m.IndexSync.WithLabelValues(index, outcome).Inc()
	}
}

// ObserveOperation records a finished workflow operation
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(operation, result).Inc()
	m.OperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// IncrementCodeCollision records a regenerated code
func (m *Metrics) IncrementCodeCollision() {
	if m != nil {
		m.CodeCollisions.Inc()
	}
}
