package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	dErrors "docverify/pkg/domain-errors"
)

// Condition is a sealed union of the checks a rule can express.
type Condition interface {
	Kind() ConditionKind
	isCondition()
}

type ConditionKind string

const (
	KindRequiredDocument ConditionKind = "required_document"
	KindFieldValidation  ConditionKind = "field_validation"
	KindThreshold        ConditionKind = "threshold"
)

// RequiredDocument passes when every listed document type is attached and processed,
// or with AnyOf set, when at least one of them is.
type RequiredDocument struct {
	DocumentTypes []string
	AnyOf         bool
}

// FieldValidation checks a single customer field with a predicate.
type FieldValidation struct {
	Field     string
	Predicate Predicate
}

// Threshold compares a numeric quantity against bounds. Quantities are
// entered.<field>, match.<field>, match.average, ocr.<field> and ocr.overall; match
// and ocr quantities are on a 0-100 scale.
type Threshold struct {
	Quantity string
	Min      float64
	Max      *float64
}

func (RequiredDocument) Kind() ConditionKind { return KindRequiredDocument }
func (FieldValidation) Kind() ConditionKind  { return KindFieldValidation }
func (Threshold) Kind() ConditionKind        { return KindThreshold }

func (RequiredDocument) isCondition() {}
func (FieldValidation) isCondition()  {}
func (Threshold) isCondition()        {}

// Predicate is a sealed union of field predicates.
type Predicate interface {
	Name() string
	isPredicate()
}

// Required passes for any non-blank value.
type Required struct{}

// Pattern passes when the value matches the expression.
type Pattern struct {
	Expr *regexp.Regexp
}

// Range passes for numeric values within the inclusive bounds.
type Range struct {
	Min *float64
	Max *float64
}

// OneOf passes when the value equals one of Values, ignoring case.
type OneOf struct {
	Values []string
}

// MinAge passes when the date value is at least Years before the evaluation date.
type MinAge struct {
	Years int
}

func (Required) Name() string { return "required" }
func (Pattern) Name() string  { return "pattern" }
func (Range) Name() string    { return "range" }
func (OneOf) Name() string    { return "one_of" }
func (MinAge) Name() string   { return "min_age" }

func (Required) isPredicate() {}
func (Pattern) isPredicate()  {}
func (Range) isPredicate()    {}
func (OneOf) isPredicate()    {}
func (MinAge) isPredicate()   {}

// ConditionSpec is the flat wire form of a Condition used by the YAML seed, the
// database and the snapshot cache.
type ConditionSpec struct {
	Kind          ConditionKind `json:"kind" yaml:"kind"`
	DocumentTypes []string      `json:"document_types,omitempty" yaml:"document_types,omitempty"`
	Match         string        `json:"match,omitempty" yaml:"match,omitempty"`
	Field         string        `json:"field,omitempty" yaml:"field,omitempty"`
	Predicate     string        `json:"predicate,omitempty" yaml:"predicate,omitempty"`
	Pattern       string        `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Values        []string      `json:"values,omitempty" yaml:"values,omitempty"`
	Years         int           `json:"years,omitempty" yaml:"years,omitempty"`
	Quantity      string        `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Min           *float64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max           *float64      `json:"max,omitempty" yaml:"max,omitempty"`
}

var quantityPrefixes = []string{"entered.", "match.", "ocr."}

// Decode builds the Condition described by s.
func (s ConditionSpec) Decode() (Condition, error) {
	switch s.Kind {
	case KindRequiredDocument:
		if len(s.DocumentTypes) == 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "required_document needs document_types")
		}
		var anyOf bool
		switch s.Match {
		case "", "all":
		case "any":
			anyOf = true
		default:
			return nil, dErrors.Newf(dErrors.CodeValidation, "required_document match %q must be any or all", s.Match)
		}
		return RequiredDocument{DocumentTypes: append([]string(nil), s.DocumentTypes...), AnyOf: anyOf}, nil

	case KindFieldValidation:
		if strings.TrimSpace(s.Field) == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "field_validation needs a field")
		}
		pred, err := s.decodePredicate()
		if err != nil {
			return nil, err
		}
		return FieldValidation{Field: s.Field, Predicate: pred}, nil

	case KindThreshold:
		if !validQuantity(s.Quantity) {
			return nil, dErrors.Newf(dErrors.CodeValidation, "threshold quantity %q is not supported", s.Quantity)
		}
		lo := 0.0
		if s.Min != nil {
			lo = *s.Min
		}
		if s.Max != nil && *s.Max < lo {
			return nil, dErrors.New(dErrors.CodeValidation, "threshold max is below min")
		}
		return Threshold{Quantity: s.Quantity, Min: lo, Max: s.Max}, nil

	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "condition kind %q is not supported", s.Kind)
	}
}

func (s ConditionSpec) decodePredicate() (Predicate, error) {
	switch s.Predicate {
	case "", "required":
		return Required{}, nil
	case "pattern":
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid pattern")
		}
		return Pattern{Expr: re}, nil
	case "range":
		if s.Min == nil && s.Max == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "range needs min or max")
		}
		return Range{Min: s.Min, Max: s.Max}, nil
	case "one_of":
		if len(s.Values) == 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "one_of needs values")
		}
		return OneOf{Values: append([]string(nil), s.Values...)}, nil
	case "min_age":
		if s.Years <= 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "min_age needs positive years")
		}
		return MinAge{Years: s.Years}, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "predicate %q is not supported", s.Predicate)
	}
}

func validQuantity(q string) bool {
	for _, p := range quantityPrefixes {
		if rest, ok := strings.CutPrefix(q, p); ok && rest != "" {
			return true
		}
	}
	return false
}

// EncodeCondition returns the wire form of c.
func EncodeCondition(c Condition) ConditionSpec {
	switch c := c.(type) {
	case RequiredDocument:
		spec := ConditionSpec{Kind: KindRequiredDocument, DocumentTypes: c.DocumentTypes}
		if c.AnyOf {
			spec.Match = "any"
		}
		return spec
	case FieldValidation:
		spec := ConditionSpec{Kind: KindFieldValidation, Field: c.Field}
		switch p := c.Predicate.(type) {
		case Required:
			spec.Predicate = p.Name()
		case Pattern:
			spec.Predicate = p.Name()
			if p.Expr != nil {
				spec.Pattern = p.Expr.String()
			}
		case Range:
			spec.Predicate, spec.Min, spec.Max = p.Name(), p.Min, p.Max
		case OneOf:
			spec.Predicate, spec.Values = p.Name(), p.Values
		case MinAge:
			spec.Predicate, spec.Years = p.Name(), p.Years
		}
		return spec
	case Threshold:
		lo := c.Min
		return ConditionSpec{Kind: KindThreshold, Quantity: c.Quantity, Min: &lo, Max: c.Max}
	default:
		return ConditionSpec{}
	}
}

// RuleSpec is the wire form of a Rule.
type RuleSpec struct {
	Code         string        `json:"code" yaml:"code"`
	Name         string        `json:"name" yaml:"name"`
	PolicyCode   string        `json:"policy_code,omitempty" yaml:"policy_code,omitempty"`
	Category     Category      `json:"category,omitempty" yaml:"category,omitempty"`
	DocumentSets []string      `json:"document_sets,omitempty" yaml:"document_sets,omitempty"`
	Condition    ConditionSpec `json:"condition" yaml:"condition"`
	Weight       *float64      `json:"weight,omitempty" yaml:"weight,omitempty"`
	Blocking     bool          `json:"blocking" yaml:"blocking"`
	ErrorMessage string        `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Active       *bool         `json:"active,omitempty" yaml:"active,omitempty"`
}

// Spec returns the wire form of the rule.
func (r Rule) Spec() RuleSpec {
	weight, active := r.Weight, r.Active
	return RuleSpec{
		Code:         r.Code,
		Name:         r.Name,
		PolicyCode:   r.PolicyCode,
		Category:     r.Category,
		DocumentSets: r.DocumentSets,
		Condition:    EncodeCondition(r.Condition),
		Weight:       &weight,
		Blocking:     r.Blocking,
		ErrorMessage: r.ErrorMessage,
		Active:       &active,
	}
}

// Rule decodes the spec. Weight defaults to 1 and Active to true.
func (s RuleSpec) Rule() (Rule, error) {
	if strings.TrimSpace(s.Code) == "" {
		return Rule{}, dErrors.New(dErrors.CodeValidation, "rule code is required")
	}
	cond, err := s.Condition.Decode()
	if err != nil {
		return Rule{}, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("rule %s", s.Code))
	}
	r := Rule{
		Code:         s.Code,
		Name:         s.Name,
		PolicyCode:   s.PolicyCode,
		Category:     s.Category,
		DocumentSets: s.DocumentSets,
		Condition:    cond,
		Weight:       1,
		Blocking:     s.Blocking,
		ErrorMessage: s.ErrorMessage,
		Active:       true,
	}
	if r.Name == "" {
		r.Name = r.Code
	}
	if s.Weight != nil {
		if *s.Weight < 0 {
			return Rule{}, dErrors.Newf(dErrors.CodeValidation, "rule %s: weight must not be negative", s.Code)
		}
		r.Weight = *s.Weight
	}
	if s.Active != nil {
		r.Active = *s.Active
	}
	return r, nil
}

func (r Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Spec())
}

func (r *Rule) UnmarshalJSON(data []byte) error {
	var spec RuleSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	decoded, err := spec.Rule()
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// UnmarshalYAML lets policy seed files describe rules in their wire form.
func (r *Rule) UnmarshalYAML(unmarshal func(any) error) error {
	var spec RuleSpec
	if err := unmarshal(&spec); err != nil {
		return err
	}
	decoded, err := spec.Rule()
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}
