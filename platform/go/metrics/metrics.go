package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the engagement and settlement core.
// Tracks scope authorization outcomes, assignment lifecycle transitions and
// settlement aggregation health.
type Metrics struct {
	ScopeEntered          prometheus.Counter
	ScopeDenied           *prometheus.CounterVec
	ScopeInvalidated      *prometheus.CounterVec
	AssignmentTransitions *prometheus.CounterVec
	AssignmentsCompleted  prometheus.Counter
	SettlementsSkipped    prometheus.Counter
	AggregateDuration     prometheus.Histogram
}

// New creates a Metrics instance with all core metrics registered on the
// default prometheus registry.
func New() *Metrics {
	return &Metrics{
		ScopeEntered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "isotek_scope_entered_total",
			Help: "Total number of successful engagement scope entries",
		}),
		ScopeDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "isotek_scope_denied_total",
			Help: "Scope entry denials partitioned by reason",
		}, []string{"reason"}),
		ScopeInvalidated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "isotek_scope_invalidated_total",
			Help: "Active scopes invalidated during re-validation, by reason",
		}, []string{"reason"}),
		AssignmentTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "isotek_assignment_transitions_total",
			Help: "Assignment lifecycle transitions partitioned by target status",
		}, []string{"target"}),
		AssignmentsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "isotek_assignments_completed_total",
			Help: "First-time assignment completions (settlement trigger)",
		}),
		SettlementsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "isotek_settlements_skipped_total",
			Help: "Per-assignment settlements skipped during aggregation due to resolution failures",
		}),
		AggregateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "isotek_earnings_aggregate_duration_seconds",
			Help:    "Duration of portfolio earnings aggregations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveAggregate records the duration of an aggregation run.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveAggregate(start time.Time) {
	m.AggregateDuration.Observe(time.Since(start).Seconds())
}
