package comparison

import (
	"fmt"
	"strings"

	"docverify/internal/verification/models"
	dErrors "docverify/pkg/domain-errors"
)

// Mode selects how the strategy chain picks its answer.
type Mode string

const (
	// ModeShortCircuit stops at the first strategy scoring at least HighConfidence.
	ModeShortCircuit Mode = "short_circuit"
	// ModeBestOf runs every applicable strategy and keeps the highest score.
	ModeBestOf Mode = "best_of"
)

// FieldPolicy configures comparison of a single field.
type FieldPolicy struct {
	Type       models.FieldType `yaml:"type" json:"type"`
	Optional   bool             `yaml:"optional" json:"optional"`
	Strategies []string         `yaml:"strategies,omitempty" json:"strategies,omitempty"`
}

// Config drives the comparator.
type Config struct {
	Mode           Mode                   `yaml:"mode"`
	HighConfidence float64                `yaml:"high_confidence"`
	MatchFloor     float64                `yaml:"match_floor"`
	Fields         map[string]FieldPolicy `yaml:"fields"`
}

// DefaultStrategyOrder is used for fields without their own strategy list.
var DefaultStrategyOrder = []string{StrategyExact, StrategyPhonetic, StrategyFuzzy, StrategyOCR}

// defaultFieldTypes maps well-known customer data keys to field types.
var defaultFieldTypes = map[string]models.FieldType{
	"full_name":           models.FieldName,
	"first_name":          models.FieldName,
	"last_name":           models.FieldName,
	"surname":             models.FieldName,
	"given_name":          models.FieldName,
	"id_number":           models.FieldIdentifier,
	"national_id":         models.FieldIdentifier,
	"passport_number":     models.FieldIdentifier,
	"license_number":      models.FieldIdentifier,
	"date_of_birth":       models.FieldDate,
	"dob":                 models.FieldDate,
	"issue_date":          models.FieldDate,
	"expiry_date":         models.FieldDate,
	"phone":               models.FieldPhone,
	"mobile":              models.FieldPhone,
	"email":               models.FieldEmail,
	"address":             models.FieldAddress,
	"residential_address": models.FieldAddress,
	"postal_address":      models.FieldAddress,
}

// DefaultConfig returns the production comparator settings.
func DefaultConfig() Config {
	return Config{
		Mode:           ModeShortCircuit,
		HighConfidence: 90,
		MatchFloor:     70,
		Fields:         map[string]FieldPolicy{},
	}
}

// Validate rejects settings the comparator cannot run with.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeShortCircuit, ModeBestOf:
	default:
		return dErrors.Newf(dErrors.CodeConfiguration, "comparison mode %q is not supported", c.Mode)
	}
	if c.MatchFloor < 0 || c.HighConfidence > 100 || c.MatchFloor > c.HighConfidence {
		return dErrors.New(dErrors.CodeConfiguration, "comparison thresholds must satisfy 0 <= match_floor <= high_confidence <= 100")
	}
	for field, p := range c.Fields {
		if p.Type != "" && !p.Type.IsValid() {
			return dErrors.Newf(dErrors.CodeConfiguration, "field %s: unknown field type %q", field, p.Type)
		}
		for _, name := range p.Strategies {
			if _, ok := builtinStrategies[name]; !ok {
				return dErrors.Newf(dErrors.CodeConfiguration, "field %s: unknown strategy %q", field, name)
			}
		}
	}
	return nil
}

// PolicyFor resolves the policy for a field, falling back to the well-known field
// types and then to free text.
func (c Config) PolicyFor(field string) FieldPolicy {
	key := strings.ToLower(strings.TrimSpace(field))
	p, ok := c.Fields[key]
	if !ok {
		p = FieldPolicy{}
	}
	if p.Type == "" {
		p.Type = FieldTypeOf(key)
	}
	return p
}

// FieldTypeOf returns the default type for a field name.
func FieldTypeOf(field string) models.FieldType {
	if t, ok := defaultFieldTypes[strings.ToLower(field)]; ok {
		return t
	}
	return models.FieldText
}

func (p FieldPolicy) String() string {
	return fmt.Sprintf("type=%s optional=%t strategies=%v", p.Type, p.Optional, p.Strategies)
}
