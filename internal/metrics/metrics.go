package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transition outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected" // validation, not found, permission
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"
)

// Metrics holds the Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	TransitionsTotal    *prometheus.CounterVec
	TransitionDuration  *prometheus.HistogramVec
	ConsistencyWarnings *prometheus.CounterVec
	AbandonedJournal    prometheus.Counter
	ExportsCreated      prometheus.Counter
}

// New registers all collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "estate_lifecycle_transitions_total",
				Help: "Lifecycle transitions by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		TransitionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "estate_lifecycle_transition_duration_seconds",
				Help:    "Lifecycle transition latency in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"operation"},
		),
		ConsistencyWarnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "estate_lifecycle_consistency_warnings_total",
				Help: "Transitions whose primary write committed but a follow-through step failed",
			},
			[]string{"operation"},
		),
		AbandonedJournal: factory.NewCounter(prometheus.CounterOpts{
			Name: "estate_lifecycle_abandoned_transitions_total",
			Help: "Pending journal entries marked failed by the sweep job",
		}),
		ExportsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "estate_sales_exports_total",
			Help: "Sales workbooks generated",
		}),
	}
}

func (m *Metrics) ObserveTransition(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(operation, outcome).Inc()
	m.TransitionDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ConsistencyWarning(operation string) {
	if m == nil {
		return
	}
	m.ConsistencyWarnings.WithLabelValues(operation).Inc()
}

func (m *Metrics) AbandonedTransitions(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.AbandonedJournal.Add(float64(n))
}

func (m *Metrics) ExportCreated() {
	if m == nil {
		return
	}
	m.ExportsCreated.Inc()
}

func (m *Metrics) ObserveHTTP(method, path, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
