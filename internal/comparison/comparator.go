// Package comparison scores customer-entered values against values extracted from
// identity documents.
//
// Each field runs through an ordered chain of pure strategies (exact, phonetic,
// fuzzy, ocr). The comparator never fails: missing values are reported with the
// missing classification.
package comparison

import (
	"sort"
	"strings"

	"docverify/internal/verification/models"
	dErrors "docverify/pkg/domain-errors"
)

// Comparator applies the configured strategy chain to each field.
type Comparator struct {
	cfg Config
}

// New validates cfg and builds a comparator.
func New(cfg Config) (*Comparator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fields := make(map[string]FieldPolicy, len(cfg.Fields))
	for name, p := range cfg.Fields {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return nil, dErrors.New(dErrors.CodeConfiguration, "field names must not be empty")
		}
		if _, dup := fields[key]; dup {
			return nil, dErrors.Newf(dErrors.CodeConfiguration, "field %s is configured more than once", key)
		}
		fields[key] = p
	}
	cfg.Fields = fields
	return &Comparator{cfg: cfg}, nil
}

// Config returns the comparator settings.
func (c *Comparator) Config() Config {
	return c.cfg
}

// Compare scores a single field under the given policy.
func (c *Comparator) Compare(field, entered, extracted string, policy FieldPolicy) models.FieldComparison {
	if policy.Type == "" {
		policy.Type = FieldTypeOf(field)
	}
	out := models.FieldComparison{
		Field:               field,
		Type:                policy.Type,
		Entered:             entered,
		Extracted:           extracted,
		NormalizedEntered:   Normalize(policy.Type, entered),
		NormalizedExtracted: Normalize(policy.Type, extracted),
		Optional:            policy.Optional,
	}

	if out.NormalizedEntered == "" || out.NormalizedExtracted == "" {
		out.Classification = models.ClassMissing
		if policy.Optional {
			out.Score = 100
		}
		return out
	}

	order := policy.Strategies
	if len(order) == 0 {
		order = DefaultStrategyOrder
	}

	best := -1.0
	for _, name := range order {
		strategy, ok := builtinStrategies[name]
		if !ok || !strategy.Applies(policy.Type) {
			continue
		}
		score, class := strategy.Score(policy.Type, out.NormalizedEntered, out.NormalizedExtracted)
		if score > best {
			best = score
			out.Score = score
			out.Strategy = strategy.Name()
			out.Classification = class
		}
		if c.cfg.Mode == ModeShortCircuit && score >= c.cfg.HighConfidence {
			break
		}
	}

	if best < 0 {
		out.Score = 0
		out.Classification = models.ClassMismatch
		return out
	}
	if out.Score < c.cfg.MatchFloor {
		out.Classification = models.ClassMismatch
	}
	return out
}

// CompareAll compares every entered field, plus every configured field, against
// the values merged from the processed documents. Fields absent on both sides are
// skipped. Results are sorted by field name.
func (c *Comparator) CompareAll(customerData map[string]string, docs []models.Document) []models.FieldComparison {
	extracted := MergeExtracted(docs)

	fields := make(map[string]struct{}, len(customerData)+len(c.cfg.Fields))
	for f := range customerData {
		fields[strings.ToLower(strings.TrimSpace(f))] = struct{}{}
	}
	for f := range c.cfg.Fields {
		fields[f] = struct{}{}
	}

	entered := make(map[string]string, len(customerData))
	for k, v := range customerData {
		entered[strings.ToLower(strings.TrimSpace(k))] = v
	}

	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	out := make([]models.FieldComparison, 0, len(names))
	for _, f := range names {
		ev := strings.TrimSpace(entered[f])
		xv := strings.TrimSpace(extracted[f].Value)
		if ev == "" && xv == "" {
			continue
		}
		out = append(out, c.Compare(f, ev, xv, c.cfg.PolicyFor(f)))
	}
	return out
}

// MergeExtracted merges fields across processed documents, keeping the value read
// with the highest confidence. Ties keep the earlier document.
func MergeExtracted(docs []models.Document) map[string]models.ExtractedField {
	merged := make(map[string]models.ExtractedField)
	for _, doc := range docs {
		if !doc.Processed {
			continue
		}
		for name, f := range doc.Fields {
			key := strings.ToLower(strings.TrimSpace(name))
			if strings.TrimSpace(f.Value) == "" {
				continue
			}
			if cur, ok := merged[key]; !ok || f.Confidence > cur.Confidence {
				merged[key] = f
			}
		}
	}
	return merged
}
