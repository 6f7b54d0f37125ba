package compliance

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for compliance audit emission.
type Metrics struct {
	EventsEmitted   *prometheus.CounterVec
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

// NewMetrics registers the compliance audit metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_audit_compliance_events_total",
			Help: "Compliance audit events persisted by action",
		}, []string{"action"}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "docverify_audit_compliance_persist_failures_total",
			Help: "Compliance audit events that failed to persist",
		}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docverify_audit_compliance_persist_duration_seconds",
			Help:    "Duration of synchronous compliance audit writes",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}

func (m *Metrics) IncEventsEmitted(action string) {
	if m != nil {
		m.EventsEmitted.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

func (m *Metrics) ObservePersistDuration(d time.Duration) {
	if m != nil {
		m.PersistDuration.Observe(d.Seconds())
	}
}
