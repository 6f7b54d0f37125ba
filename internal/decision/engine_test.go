package decision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/decision"
	"docverify/internal/verification/models"
	dErrors "docverify/pkg/domain-errors"
)

func newEngine(t *testing.T) *decision.Engine {
	t.Helper()
	e, err := decision.NewEngine(decision.DefaultConfig())
	require.NoError(t, err)
	return e
}

func TestDecide_ScoreBands(t *testing.T) {
	e := newEngine(t)

	cases := []struct {
		score     float64
		status    models.Status
		approved  *bool
		escalated bool
		reason    string
	}{
		{100, models.StatusCompleted, boolPtr(true), false, decision.ReasonApproved},
		{85.0, models.StatusCompleted, boolPtr(true), false, decision.ReasonApproved},
		{84.9, models.StatusReviewRequired, nil, false, "auto-approval threshold"},
		{70.0, models.StatusReviewRequired, nil, false, "auto-approval threshold"},
		{69.9, models.StatusReviewRequired, nil, true, "supervisor review"},
		{50.0, models.StatusReviewRequired, nil, true, "supervisor review"},
		{49.9, models.StatusCompleted, boolPtr(false), false, "minimum threshold"},
		{0, models.StatusCompleted, boolPtr(false), false, "minimum threshold"},
	}

	for _, tc := range cases {
		got := e.Decide(tc.score, nil, nil)
		assert.Equal(t, tc.status, got.Status, "score %.1f", tc.score)
		assert.Equal(t, tc.approved, got.Approved, "score %.1f", tc.score)
		assert.Equal(t, tc.escalated, got.Escalated, "score %.1f", tc.score)
		assert.Contains(t, got.Reason, tc.reason, "score %.1f", tc.score)
		assert.Equal(t, tc.score, got.OverallScore)
	}
}

func TestDecide_BlockingFailureOverridesScore(t *testing.T) {
	e := newEngine(t)
	blocking := []models.ComplianceCheck{
		{RuleCode: "sanctions", RuleName: "Sanctions screening", Blocking: true},
		{RuleCode: "pep", RuleName: "PEP screening", Blocking: true},
	}

	got := e.Decide(92.0, blocking, nil)

	assert.Equal(t, models.StatusReviewRequired, got.Status)
	assert.Nil(t, got.Approved)
	assert.Contains(t, got.Reason, "Sanctions screening")
	assert.NotContains(t, got.Reason, "PEP")
}

func TestDecide_CriticalDiscrepancy(t *testing.T) {
	critical := []models.Discrepancy{{Field: "id_number", Severity: models.SeverityCritical, Resolution: models.ResolutionUnresolved}}

	t.Run("ignored by default", func(t *testing.T) {
		got := newEngine(t).Decide(90, nil, critical)
		assert.Equal(t, models.StatusCompleted, got.Status)
	})

	t.Run("forces review when enabled", func(t *testing.T) {
		cfg := decision.DefaultConfig()
		cfg.ReviewOnCriticalDiscrepancy = true
		e, err := decision.NewEngine(cfg)
		require.NoError(t, err)

		got := e.Decide(90, nil, critical)
		assert.Equal(t, models.StatusReviewRequired, got.Status)
		assert.Contains(t, got.Reason, "id_number")

		resolved := []models.Discrepancy{{Field: "id_number", Severity: models.SeverityCritical, Resolution: models.ResolutionAccepted}}
		assert.Equal(t, models.StatusCompleted, e.Decide(90, nil, resolved).Status)
	})
}

func TestConfigValidation(t *testing.T) {
	bad := []decision.Thresholds{
		{AutoApprove: 101, Review: 70, AutoReject: 50},
		{AutoApprove: 60, Review: 70, AutoReject: 50},
		{AutoApprove: 85, Review: 40, AutoReject: 50},
		{AutoApprove: 85, Review: 70, AutoReject: -1},
	}
	for _, th := range bad {
		_, err := decision.NewEngine(decision.Config{Thresholds: th})
		require.Error(t, err, "%+v", th)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	}

	_, err := decision.NewEngine(decision.Config{Thresholds: decision.Thresholds{AutoApprove: 70, Review: 70, AutoReject: 70}})
	assert.NoError(t, err, "equal thresholds are allowed")
}

func boolPtr(b bool) *bool { return &b }
