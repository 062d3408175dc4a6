package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the duty calendar.
type Metrics struct {
	DutiesScheduled   prometheus.Counter
	ConflictsRejected *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	CheckDuration     prometheus.Histogram
}

// New registers the duty collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DutiesScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "parish_duties_scheduled_total",
			Help: "Total number of duty entries scheduled",
		}),
		ConflictsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parish_duty_conflicts_rejected_total",
			Help: "Schedule or update attempts rejected by the conflict check, by kind",
		}, []string{"kind"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parish_duty_transitions_total",
			Help: "Duty status transitions, by target status",
		}, []string{"status"}),
		CheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parish_duty_check_duration_seconds",
			Help:    "Duration of conflict checks including the store read",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementScheduled records a successful schedule.
func (m *Metrics) IncrementScheduled() {
	m.DutiesScheduled.Inc()
}

// IncrementConflict records a rejected attempt.
func (m *Metrics) IncrementConflict(kind string) {
	m.ConflictsRejected.WithLabelValues(kind).Inc()
}

// IncrementTransition records a status change.
func (m *Metrics) IncrementTransition(status string) {
	m.Transitions.WithLabelValues(status).Inc()
}

// ObserveCheck records a conflict check. Call with time.Now() at the start.
func (m *Metrics) ObserveCheck(start time.Time) {
	m.CheckDuration.Observe(time.Since(start).Seconds())
}
