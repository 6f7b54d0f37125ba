package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification pipeline.
// All methods are nil-safe so services can run without metrics in tests.
type Metrics struct {
	// Per-stage latencies: compare, detect, evaluate, score, decide, persist
	StageLatency *prometheus.HistogramVec

	// End-to-end ProcessRequest latency
	ProcessLatency prometheus.Histogram

	// Decision outcomes by status and approval
	Outcomes *prometheus.CounterVec

	// Distribution of overall scores
	OverallScore prometheus.Histogram

	// Discrepancies raised by severity
	Discrepancies *prometheus.CounterVec

	PipelineFailures prometheus.Counter
	Overrides        *prometheus.CounterVec
	Resolutions      *prometheus.CounterVec
}

// New registers the verification metrics with reg. A nil registerer creates
// unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docverify_pipeline_stage_duration_seconds",
			Help:    "Duration of each verification pipeline stage",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"stage"}),

		ProcessLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docverify_process_duration_seconds",
			Help:    "Duration of a full ProcessRequest call including persistence",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_decision_outcomes_total",
			Help: "Decision outcomes by status and approval",
		}, []string{"status", "approved"}),

		OverallScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docverify_overall_score",
			Help:    "Overall verification scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),

		Discrepancies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_discrepancies_total",
			Help: "Discrepancies raised by severity",
		}, []string{"severity"}),

		PipelineFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "docverify_pipeline_failures_total",
			Help: "Requests moved to failed by an unexpected pipeline error",
		}),

		Overrides: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_manual_overrides_total",
			Help: "Supervisor overrides by decision",
		}, []string{"decision"}),

		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_discrepancy_resolutions_total",
			Help: "Discrepancy resolutions by resolution status",
		}, []string{"resolution"}),
	}
}

// ObserveStage records the duration of a pipeline stage started at start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// ObserveProcess records the end-to-end processing duration.
func (m *Metrics) ObserveProcess(start time.Time) {
	if m != nil {
		m.ProcessLatency.Observe(time.Since(start).Seconds())
	}
}

// RecordOutcome counts a decision and its score.
func (m *Metrics) RecordOutcome(status string, approved *bool, score float64) {
	if m == nil {
		return
	}
	label := "pending"
	if approved != nil {
		label = strconv.FormatBool(*approved)
	}
	m.Outcomes.WithLabelValues(status, label).Inc()
	m.OverallScore.Observe(score)
}

func (m *Metrics) IncDiscrepancy(severity string) {
	if m != nil {
		m.Discrepancies.WithLabelValues(severity).Inc()
	}
}

func (m *Metrics) IncPipelineFailure() {
	if m != nil {
		m.PipelineFailures.Inc()
	}
}

func (m *Metrics) IncOverride(approved bool) {
	if m == nil {
		return
	}
	decision := "rejected"
	if approved {
		decision = "approved"
	}
	m.Overrides.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncResolution(resolution string) {
	if m != nil {
		m.Resolutions.WithLabelValues(resolution).Inc()
	}
}
