package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks policy snapshot refreshes.
type Metrics struct {
	refreshes   *prometheus.CounterVec
	activeRules prometheus.Gauge
	lastRefresh prometheus.Gauge
}

// New registers the policy metrics on reg. A nil registerer leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_policy_snapshot_refreshes_total",
			Help: "Policy snapshot refreshes by source and result",
		}, []string{"source", "result"}),
		activeRules: f.NewGauge(prometheus.GaugeOpts{
			Name: "docverify_policy_active_rules",
			Help: "Number of active rules in the current snapshot",
		}),
		lastRefresh: f.NewGauge(prometheus.GaugeOpts{
			Name: "docverify_policy_snapshot_timestamp_seconds",
			Help: "Unix time the current snapshot was taken",
		}),
	}
}

func (m *Metrics) RecordRefresh(source string, err error, rules int, takenAt float64) {
	if m == nil {
		return
	}
	if err != nil {
		m.refreshes.WithLabelValues(source, "error").Inc()
		return
	}
	m.refreshes.WithLabelValues(source, "ok").Inc()
	m.activeRules.Set(float64(rules))
	m.lastRefresh.Set(takenAt)
}
