// Package compliance evaluates policy rules against a verification request.
//
// Evaluation never fails: a rule whose inputs are missing produces a failed check
// that explains what was missing.
package compliance

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"docverify/internal/comparison"
	policymodels "docverify/internal/policy/models"
	"docverify/internal/verification/models"
)

// Input is everything a rule may look at.
type Input struct {
	DocumentSet  string
	CustomerData map[string]string
	Documents    []models.Document
	Comparisons  []models.FieldComparison
	AsOf         time.Time
}

// Evaluator runs snapshot rules. It holds no state and is safe for concurrent use.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate returns one check per rule in force for the document set, in snapshot order.
func (e *Evaluator) Evaluate(in Input, snapshot *policymodels.Snapshot) []models.ComplianceCheck {
	rules := snapshot.RulesFor(in.DocumentSet)
	env := newEnv(in)

	checks := make([]models.ComplianceCheck, 0, len(rules))
	for _, rule := range rules {
		checks = append(checks, e.evaluateRule(env, rule))
	}
	return checks
}

// BlockingFailures returns the failed blocking checks, keeping their order.
func BlockingFailures(checks []models.ComplianceCheck) []models.ComplianceCheck {
	var out []models.ComplianceCheck
	for _, c := range checks {
		if c.Blocking && !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// CheckTypeFor maps a policy category to the check type it scores under.
func CheckTypeFor(c policymodels.Category) models.CheckType {
	if c == policymodels.CategoryInstitutional {
		return models.CheckPolicy
	}
	return models.CheckCompliance
}

type outcome struct {
	passed  bool
	score   float64
	message string
	details map[string]any
}

func failed(format string, args ...any) outcome {
	return outcome{message: fmt.Sprintf(format, args...)}
}

func (e *Evaluator) evaluateRule(env *env, rule policymodels.Rule) models.ComplianceCheck {
	var res outcome
	switch c := rule.Condition.(type) {
	case policymodels.RequiredDocument:
		res = env.requiredDocument(c)
	case policymodels.FieldValidation:
		res = env.fieldValidation(c)
	case policymodels.Threshold:
		res = env.threshold(c)
	default:
		res = failed("rule has no evaluable condition")
	}

	if !res.passed && rule.ErrorMessage != "" {
		if res.message == "" {
			res.message = rule.ErrorMessage
		} else {
			res.message = rule.ErrorMessage + ": " + res.message
		}
	}

	return models.ComplianceCheck{
		RuleCode:   rule.Code,
		RuleName:   rule.Name,
		PolicyCode: rule.PolicyCode,
		CheckType:  CheckTypeFor(rule.Category),
		Passed:     res.passed,
		Score:      res.score,
		Weight:     rule.Weight,
		Blocking:   rule.Blocking,
		Message:    res.message,
		Details:    res.details,
		CheckedAt:  env.asOf,
	}
}

// env precomputes lookups shared by every rule in a pass.
type env struct {
	asOf        time.Time
	entered     map[string]string
	extracted   map[string]models.ExtractedField
	comparisons map[string]models.FieldComparison
	processed   map[string]bool
	docs        []models.Document
	all         []models.FieldComparison
}

func newEnv(in Input) *env {
	e := &env{
		asOf:        in.AsOf,
		entered:     make(map[string]string, len(in.CustomerData)),
		extracted:   comparison.MergeExtracted(in.Documents),
		comparisons: make(map[string]models.FieldComparison, len(in.Comparisons)),
		processed:   make(map[string]bool),
		docs:        in.Documents,
		all:         in.Comparisons,
	}
	if e.asOf.IsZero() {
		e.asOf = time.Now()
	}
	for k, v := range in.CustomerData {
		e.entered[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	for _, c := range in.Comparisons {
		e.comparisons[strings.ToLower(strings.TrimSpace(c.Field))] = c
	}
	for _, d := range in.Documents {
		if d.Processed {
			e.processed[string(d.Type)] = true
		}
	}
	return e
}

func (e *env) requiredDocument(c policymodels.RequiredDocument) outcome {
	var missing []string
	for _, t := range c.DocumentTypes {
		if !e.processed[t] {
			missing = append(missing, t)
		}
	}
	required := len(c.DocumentTypes)
	satisfied := required - len(missing)
	if c.AnyOf {
		details := map[string]any{"any_of": c.DocumentTypes}
		if satisfied > 0 {
			return outcome{passed: true, score: 100, details: details}
		}
		return outcome{
			score:   0,
			message: "none of the accepted documents is processed: " + strings.Join(c.DocumentTypes, ", "),
			details: details,
		}
	}
	res := outcome{
		passed:  len(missing) == 0,
		score:   100,
		details: map[string]any{"required": c.DocumentTypes, "missing": missing},
	}
	if required > 0 {
		res.score = math.Round(100*float64(satisfied)/float64(required)*100) / 100
	}
	if !res.passed {
		res.message = "missing or unprocessed documents: " + strings.Join(missing, ", ")
	}
	return res
}

// value prefers the customer's entry and falls back to the document.
func (e *env) value(field string) string {
	key := strings.ToLower(field)
	if v := e.entered[key]; v != "" {
		return v
	}
	return strings.TrimSpace(e.extracted[key].Value)
}

func (e *env) fieldValidation(c policymodels.FieldValidation) outcome {
	v := e.value(c.Field)
	details := map[string]any{"field": c.Field, "predicate": predicateName(c.Predicate)}

	pass := func() outcome { return outcome{passed: true, score: 100, details: details} }
	fail := func(format string, args ...any) outcome {
		o := failed(format, args...)
		o.details = details
		return o
	}

	if v == "" {
		return fail("%s is missing", c.Field)
	}

	switch p := c.Predicate.(type) {
	case policymodels.Required, nil:
		return pass()

	case policymodels.Pattern:
		if p.Expr == nil || !p.Expr.MatchString(v) {
			return fail("%s does not match the expected format", c.Field)
		}
		return pass()

	case policymodels.Range:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fail("%s is not numeric", c.Field)
		}
		if (p.Min != nil && n < *p.Min) || (p.Max != nil && n > *p.Max) {
			return fail("%s is out of range", c.Field)
		}
		return pass()

	case policymodels.OneOf:
		for _, allowed := range p.Values {
			if strings.EqualFold(strings.TrimSpace(allowed), v) {
				return pass()
			}
		}
		return fail("%s is not an accepted value", c.Field)

	case policymodels.MinAge:
		dob, ok := comparison.ParseDate(v)
		if !ok {
			return fail("%s is not a recognizable date", c.Field)
		}
		age := ageAt(dob, e.asOf)
		details["age"] = age
		if age < p.Years {
			return fail("customer is %d, minimum age is %d", age, p.Years)
		}
		return pass()

	default:
		return fail("unsupported predicate")
	}
}

func predicateName(p policymodels.Predicate) string {
	if p == nil {
		return "required"
	}
	return p.Name()
}

func ageAt(dob, at time.Time) int {
	years := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		years--
	}
	return years
}

func (e *env) threshold(c policymodels.Threshold) outcome {
	v, ok, reason := e.quantity(c.Quantity)
	details := map[string]any{"quantity": c.Quantity, "min": c.Min}
	if c.Max != nil {
		details["max"] = *c.Max
	}
	if !ok {
		o := failed("%s unavailable: %s", c.Quantity, reason)
		o.details = details
		return o
	}
	details["value"] = v
	if v < c.Min || (c.Max != nil && v > *c.Max) {
		o := failed("%s is %.2f, outside the allowed bounds", c.Quantity, v)
		o.details = details
		return o
	}
	return outcome{passed: true, score: 100, details: details}
}

func (e *env) quantity(q string) (float64, bool, string) {
	switch {
	case q == "match.average":
		if len(e.all) == 0 {
			return 0, false, "no fields were compared"
		}
		var sum float64
		for _, c := range e.all {
			sum += c.Score
		}
		return sum / float64(len(e.all)), true, ""

	case q == "ocr.overall":
		var sum float64
		var n int
		for _, d := range e.docs {
			if d.Processed {
				sum += d.OverallConfidence
				n++
			}
		}
		if n == 0 {
			return 0, false, "no processed documents"
		}
		return sum / float64(n) * 100, true, ""

	case strings.HasPrefix(q, "match."):
		field := strings.ToLower(strings.TrimPrefix(q, "match."))
		c, ok := e.comparisons[field]
		if !ok {
			return 0, false, "field was not compared"
		}
		return c.Score, true, ""

	case strings.HasPrefix(q, "ocr."):
		field := strings.ToLower(strings.TrimPrefix(q, "ocr."))
		f, ok := e.extracted[field]
		if !ok {
			return 0, false, "field was not extracted"
		}
		return f.Confidence * 100, true, ""

	case strings.HasPrefix(q, "entered."):
		field := strings.ToLower(strings.TrimPrefix(q, "entered."))
		raw, ok := e.entered[field]
		if !ok || raw == "" {
			return 0, false, "field was not entered"
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false, "value is not numeric"
		}
		return n, true, ""

	default:
		return 0, false, "unknown quantity"
	}
}
