package discrepancy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/discrepancy"
	"docverify/internal/verification/models"
	id "docverify/pkg/domain"
)

func newDetector(t *testing.T, mutate func(*discrepancy.SeverityPolicy)) *discrepancy.Detector {
	t.Helper()
	policy := discrepancy.DefaultSeverityPolicy()
	if mutate != nil {
		mutate(&policy)
	}
	d, err := discrepancy.New(policy)
	require.NoError(t, err)
	return d
}

func cmp(field string, t models.FieldType, score float64, class models.Classification) models.FieldComparison {
	return models.FieldComparison{
		Field:          field,
		Type:           t,
		Entered:        "entered-" + field,
		Extracted:      "doc-" + field,
		Score:          score,
		Classification: class,
	}
}

func TestDetect_Grading(t *testing.T) {
	d := newDetector(t, nil)
	reqID := id.NewRequestID()

	got := d.Detect(reqID, []models.FieldComparison{
		cmp("phone", models.FieldPhone, 40, models.ClassMismatch),
		cmp("full_name", models.FieldName, 30, models.ClassMismatch),
		cmp("address", models.FieldAddress, 75, models.ClassFuzzy),
		cmp("email", models.FieldEmail, 100, models.ClassExact),
		cmp("date_of_birth", models.FieldDate, 80, models.ClassFuzzy),
	})

	require.Len(t, got, 3)
	assert.Equal(t, "address", got[0].Field)
	assert.Equal(t, models.SeverityMinor, got[0].Severity)
	assert.Equal(t, "full_name", got[1].Field)
	assert.Equal(t, models.SeverityCritical, got[1].Severity)
	assert.Equal(t, "phone", got[2].Field)
	assert.Equal(t, models.SeverityMajor, got[2].Severity)

	for _, disc := range got {
		assert.Equal(t, models.ResolutionUnresolved, disc.Resolution)
		assert.Equal(t, reqID, disc.RequestID)
		assert.NotEmpty(t, disc.Description)
		assert.Equal(t, "doc-"+disc.Field, disc.DocumentValue)
	}
}

func TestDetect_ExactMatchHasNoDiscrepancy(t *testing.T) {
	d := newDetector(t, nil)
	got := d.Detect(id.NewRequestID(), []models.FieldComparison{
		cmp("full_name", models.FieldName, 100, models.ClassExact),
	})
	assert.Empty(t, got)
}

func TestDetect_OptionalMissingHasNoDiscrepancy(t *testing.T) {
	d := newDetector(t, nil)
	got := d.Detect(id.NewRequestID(), []models.FieldComparison{
		{Field: "email", Type: models.FieldEmail, Score: 100, Classification: models.ClassMissing, Optional: true},
	})
	assert.Empty(t, got)
}

func TestDetect_Deterministic(t *testing.T) {
	d := newDetector(t, nil)
	reqID := id.NewRequestID()
	input := []models.FieldComparison{
		cmp("phone", models.FieldPhone, 40, models.ClassMismatch),
		cmp("address", models.FieldAddress, 60, models.ClassFuzzy),
	}

	first := d.Detect(reqID, input)
	second := d.Detect(reqID, []models.FieldComparison{input[1], input[0]})

	assert.Equal(t, first, second)
	assert.Equal(t, discrepancy.DiscrepancyID(reqID, "phone"), first[1].ID)
	assert.NotEqual(t, first[0].ID, d.Detect(id.NewRequestID(), input)[0].ID, "IDs are scoped to the request")
}

func TestDetect_TypeOverridesAndInfoBand(t *testing.T) {
	d := newDetector(t, func(p *discrepancy.SeverityPolicy) {
		p.InfoBelow = 95
		p.Overrides = map[models.FieldType]discrepancy.Thresholds{
			models.FieldAddress: {CriticalBelow: 30, AcceptAt: 60},
		}
	})

	got := d.Detect(id.NewRequestID(), []models.FieldComparison{
		cmp("address", models.FieldAddress, 65, models.ClassFuzzy),
		cmp("email", models.FieldEmail, 90, models.ClassFuzzy),
	})

	require.Len(t, got, 2)
	assert.Equal(t, models.SeverityInfo, got[0].Severity, "address accepted under override, inside info band")
	assert.Equal(t, models.SeverityInfo, got[1].Severity)
}

func TestDetect_MissingDescription(t *testing.T) {
	d := newDetector(t, nil)
	got := d.Detect(id.NewRequestID(), []models.FieldComparison{
		{Field: "id_number", Type: models.FieldIdentifier, Entered: "123", Score: 0, Classification: models.ClassMissing},
	})
	require.Len(t, got, 1)
	assert.Equal(t, models.SeverityCritical, got[0].Severity)
	assert.Contains(t, got[0].Description, "could not be found")
}

func TestSeverityPolicyValidation(t *testing.T) {
	p := discrepancy.DefaultSeverityPolicy()
	p.CriticalBelow = 90
	_, err := discrepancy.New(p)
	assert.Error(t, err)

	p = discrepancy.DefaultSeverityPolicy()
	p.InfoBelow = 70
	_, err = discrepancy.New(p)
	assert.Error(t, err)
}
