// Package decision maps an overall score and compliance outcome to a request status.
package decision

import (
	"fmt"

	"docverify/internal/verification/models"
	dErrors "docverify/pkg/domain-errors"
)

// Reasons recorded on the request.
const (
	ReasonApproved            = "all verification checks passed"
	ReasonBelowAutoApproval   = "score below auto-approval threshold"
	ReasonSupervisorReview    = "score below review threshold; escalated for supervisor review"
	ReasonBelowMinimum        = "score below minimum threshold"
	reasonBlockingPrefix      = "blocking compliance rule failed: "
	reasonCriticalDiscrepancy = "critical discrepancy requires review: "
)

// Thresholds are inclusive lower bounds on the overall score.
type Thresholds struct {
	AutoApprove float64 `yaml:"auto_approve"`
	Review      float64 `yaml:"review"`
	AutoReject  float64 `yaml:"auto_reject"`
}

// Config drives the engine.
type Config struct {
	Thresholds `yaml:",inline"`

	// ReviewOnCriticalDiscrepancy sends requests with an unresolved critical
	// discrepancy to review regardless of score.
	ReviewOnCriticalDiscrepancy bool `yaml:"review_on_critical_discrepancy"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{Thresholds: Thresholds{AutoApprove: 85, Review: 70, AutoReject: 50}}
}

// Validate requires 100 >= AutoApprove >= Review >= AutoReject >= 0.
func (c Config) Validate() error {
	t := c.Thresholds
	if t.AutoApprove > 100 || t.AutoApprove < t.Review || t.Review < t.AutoReject || t.AutoReject < 0 {
		return dErrors.Newf(dErrors.CodeConfiguration,
			"decision thresholds must satisfy 100 >= auto_approve (%.1f) >= review (%.1f) >= auto_reject (%.1f) >= 0",
			t.AutoApprove, t.Review, t.AutoReject)
	}
	return nil
}

// Engine evaluates the decision rules. It is pure: no I/O, no side effects.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Decide applies the rule chain. Rule priority (first match wins):
//  1. Failed blocking compliance rule - review regardless of score
//  2. Unresolved critical discrepancy, when enabled - review
//  3. Score at or above AutoApprove - approve
//  4. Score at or above Review - review
//  5. Score at or above AutoReject - review, escalated to a supervisor
//  6. Otherwise - reject
func (e *Engine) Decide(score float64, blocking []models.ComplianceCheck, discrepancies []models.Discrepancy) models.Outcome {
	out := models.Outcome{OverallScore: score}

	// Rule 1: blocking compliance failures
	if len(blocking) > 0 {
		out.Status = models.StatusReviewRequired
		out.Reason = reasonBlockingPrefix + ruleLabel(blocking[0])
		return out
	}

	// Rule 2: critical discrepancies
	if e.cfg.ReviewOnCriticalDiscrepancy {
		for _, d := range discrepancies {
			if d.Severity == models.SeverityCritical && !d.IsResolved() {
				out.Status = models.StatusReviewRequired
				out.Reason = reasonCriticalDiscrepancy + d.Field
				return out
			}
		}
	}

	t := e.cfg.Thresholds
	switch {
	// Rule 3
	case score >= t.AutoApprove:
		approved := true
		out.Status = models.StatusCompleted
		out.Approved = &approved
		out.Reason = ReasonApproved
	// Rule 4
	case score >= t.Review:
		out.Status = models.StatusReviewRequired
		out.Reason = ReasonBelowAutoApproval
	// Rule 5
	case score >= t.AutoReject:
		out.Status = models.StatusReviewRequired
		out.Escalated = true
		out.Reason = ReasonSupervisorReview
	// Rule 6
	default:
		approved := false
		out.Status = models.StatusCompleted
		out.Approved = &approved
		out.Reason = ReasonBelowMinimum
	}
	return out
}

func ruleLabel(c models.ComplianceCheck) string {
	if c.RuleName != "" {
		return c.RuleName
	}
	return fmt.Sprintf("rule %s", c.RuleCode)
}
