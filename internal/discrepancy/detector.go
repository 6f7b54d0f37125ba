// Package discrepancy turns field comparisons into graded discrepancies.
package discrepancy

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"docverify/internal/verification/models"
	id "docverify/pkg/domain"
	dErrors "docverify/pkg/domain-errors"
)

// Thresholds grades a similarity score. Scores below CriticalBelow are critical or
// major, scores below AcceptAt are minor.
type Thresholds struct {
	CriticalBelow float64 `yaml:"critical_below"`
	AcceptAt      float64 `yaml:"accept_at"`
}

// SeverityPolicy configures the detector.
type SeverityPolicy struct {
	Thresholds `yaml:",inline"`

	// InfoBelow reports accepted scores under this value as info; 0 disables it.
	InfoBelow float64 `yaml:"info_below"`

	// CriticalFields escalate a low score from major to critical.
	CriticalFields []string `yaml:"critical_fields"`

	// Overrides replace the thresholds for a field type.
	Overrides map[models.FieldType]Thresholds `yaml:"overrides"`
}

// DefaultSeverityPolicy returns the production grading.
func DefaultSeverityPolicy() SeverityPolicy {
	return SeverityPolicy{
		Thresholds:     Thresholds{CriticalBelow: 50, AcceptAt: 80},
		CriticalFields: []string{"full_name", "id_number", "national_id", "passport_number", "date_of_birth"},
	}
}

// Validate checks threshold ordering.
func (p SeverityPolicy) Validate() error {
	if err := p.Thresholds.validate("default"); err != nil {
		return err
	}
	for t, th := range p.Overrides {
		if err := th.validate(string(t)); err != nil {
			return err
		}
	}
	if p.InfoBelow != 0 && (p.InfoBelow < p.AcceptAt || p.InfoBelow > 100) {
		return dErrors.New(dErrors.CodeConfiguration, "severity info_below must be 0 or between accept_at and 100")
	}
	return nil
}

func (t Thresholds) validate(scope string) error {
	if t.CriticalBelow < 0 || t.AcceptAt > 100 || t.CriticalBelow > t.AcceptAt {
		return dErrors.Newf(dErrors.CodeConfiguration,
			"severity thresholds (%s) must satisfy 0 <= critical_below <= accept_at <= 100", scope)
	}
	return nil
}

// Detector grades comparisons. It is stateless apart from its policy and safe for
// concurrent use.
type Detector struct {
	policy   SeverityPolicy
	critical map[string]struct{}
}

// New validates the policy and builds a detector.
func New(policy SeverityPolicy) (*Detector, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	critical := make(map[string]struct{}, len(policy.CriticalFields))
	for _, f := range policy.CriticalFields {
		critical[f] = struct{}{}
	}
	return &Detector{policy: policy, critical: critical}, nil
}

// Detect returns one discrepancy per comparison that falls short of acceptance,
// sorted by field. The same input always yields the same IDs.
func (d *Detector) Detect(requestID id.RequestID, comparisons []models.FieldComparison) []models.Discrepancy {
	out := make([]models.Discrepancy, 0)
	for _, c := range comparisons {
		sev, ok := d.Grade(c)
		if !ok {
			continue
		}
		out = append(out, models.Discrepancy{
			ID:              DiscrepancyID(requestID, c.Field),
			RequestID:       requestID,
			Field:           c.Field,
			FieldType:       c.Type,
			EnteredValue:    c.Entered,
			DocumentValue:   c.Extracted,
			Severity:        sev,
			SimilarityScore: c.Score,
			Description:     describe(c, sev),
			Resolution:      models.ResolutionUnresolved,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// Grade returns the severity for a comparison, or false when no discrepancy is due.
func (d *Detector) Grade(c models.FieldComparison) (models.Severity, bool) {
	th := d.policy.Thresholds
	if o, ok := d.policy.Overrides[c.Type]; ok {
		th = o
	}
	switch {
	case c.Score < th.CriticalBelow:
		if _, critical := d.critical[c.Field]; critical {
			return models.SeverityCritical, true
		}
		return models.SeverityMajor, true
	case c.Score < th.AcceptAt:
		return models.SeverityMinor, true
	case d.policy.InfoBelow > 0 && c.Score < d.policy.InfoBelow:
		return models.SeverityInfo, true
	default:
		return "", false
	}
}

// DiscrepancyID derives a stable ID from the request and field.
func DiscrepancyID(requestID id.RequestID, field string) id.DiscrepancyID {
	return id.DiscrepancyID(uuid.NewSHA1(uuid.UUID(requestID), []byte("discrepancy:"+field)))
}

func describe(c models.FieldComparison, sev models.Severity) string {
	switch {
	case c.Classification == models.ClassMissing && c.Extracted == "":
		return fmt.Sprintf("%s could not be found on the submitted documents", c.Field)
	case c.Classification == models.ClassMissing:
		return fmt.Sprintf("%s was not provided by the customer", c.Field)
	default:
		return fmt.Sprintf("%s differs from document value (%s, similarity %.1f)", c.Field, sev, c.Score)
	}
}
