package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/policy/models"
	"docverify/internal/policy/store/memory"
	dErrors "docverify/pkg/domain-errors"
)

func TestDefault(t *testing.T) {
	policies, err := Default()
	require.NoError(t, err)
	require.Len(t, policies, 3)

	kyc := policies[0]
	assert.Equal(t, "KYC-001", kyc.Code)
	require.Len(t, kyc.Rules, 4)
	assert.Equal(t, "KYC-001", kyc.Rules[0].PolicyCode)
	assert.True(t, kyc.Rules[0].Blocking)
	assert.Equal(t, models.KindRequiredDocument, kyc.Rules[0].Condition.Kind())

	age, ok := kyc.Rules[1].Condition.(models.FieldValidation)
	require.True(t, ok)
	assert.Equal(t, models.MinAge{Years: 18}, age.Predicate)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing code", "policies:\n  - name: x\n    category: kyc\n"},
		{"unknown category", "policies:\n  - code: P1\n    category: marketing\n"},
		{"duplicate policy", "policies:\n  - code: P1\n    category: kyc\n  - code: P1\n    category: aml\n"},
		{"bad condition", "policies:\n  - code: P1\n    category: kyc\n    rules:\n      - code: R1\n        condition:\n          kind: threshold\n          quantity: weather.today\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	policies, err := Default()
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, Apply(ctx, store, policies, now))

	stored, err := store.ListPolicies(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "ADDR-001", stored[0].Code)
	assert.Equal(t, now, stored[0].UpdatedAt)

	snap := models.NewSnapshot(stored, now)
	assert.Len(t, snap.RulesFor("savings"), 6)
	assert.Len(t, snap.RulesFor("current"), 7)
}
