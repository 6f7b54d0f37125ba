package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/verification/models"
)

func TestBuildResults(t *testing.T) {
	t.Run("field results", func(t *testing.T) {
		comps := []models.FieldComparison{
			{Field: "full_name", Type: models.FieldName, Score: 100, Classification: models.ClassExact},
			{Field: "address", Type: models.FieldAddress, Score: 40, Classification: models.ClassMismatch},
			{Field: "email", Type: models.FieldEmail, Score: 100, Classification: models.ClassMissing, Optional: true},
			{Field: "id_number", Type: models.FieldIdentifier, Score: 0, Classification: models.ClassMissing},
		}
		docs := []models.Document{{
			Type: models.DocumentPassport, Processed: true, OverallConfidence: 0.8,
			Fields: map[string]models.ExtractedField{"full_name": {Value: "JANE DOE", Confidence: 0.9}},
		}}

		results := buildResults(comps, docs)
		require.Len(t, results, 5)

		byName := make(map[string]models.Result)
		for _, r := range results {
			byName[r.CheckName] = r
		}
		assert.Equal(t, models.CheckIdentity, byName["full_name_match"].CheckType)
		assert.InDelta(t, 0.9, byName["full_name_match"].Confidence, 1e-9)
		assert.True(t, byName["full_name_match"].Passed)
		assert.Equal(t, models.CheckAddress, byName["address_match"].CheckType)
		assert.False(t, byName["address_match"].Passed)
		assert.True(t, byName["email_match"].Passed, "optional missing fields pass")
		assert.False(t, byName["id_number_match"].Passed)

		quality := byName["doc_passport_quality"]
		assert.Equal(t, models.CheckDocument, quality.CheckType)
		assert.Equal(t, 85.0, quality.Score)
		assert.True(t, quality.Passed)
	})

	t.Run("quality bands", func(t *testing.T) {
		cases := []struct {
			confidence float64
			score      float64
			passed     bool
		}{
			{0.95, 100, true},
			{0.90, 100, true},
			{0.75, 85, true},
			{0.60, 70, true},
			{0.59, 50, false},
		}
		for _, tc := range cases {
			results := buildResults(nil, []models.Document{{Type: models.DocumentUtilityBill, Processed: true, OverallConfidence: tc.confidence}})
			require.Len(t, results, 1)
			assert.Equal(t, tc.score, results[0].Score, "confidence %.2f", tc.confidence)
			assert.Equal(t, tc.passed, results[0].Passed, "confidence %.2f", tc.confidence)
		}
	})

	t.Run("no processed document", func(t *testing.T) {
		results := buildResults(nil, []models.Document{{Type: models.DocumentPassport, Processed: false, OverallConfidence: 0.99}})
		require.Len(t, results, 1)
		assert.Equal(t, "document_presence", results[0].CheckName)
		assert.Zero(t, results[0].Score)
		assert.False(t, results[0].Passed)
	})
}
