package compliance_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docverify/internal/compliance"
	policymodels "docverify/internal/policy/models"
	"docverify/internal/verification/models"
)

type EvaluatorSuite struct {
	suite.Suite
	evaluator *compliance.Evaluator
	asOf      time.Time
	input     compliance.Input
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.evaluator = compliance.NewEvaluator()
	s.asOf = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s.input = compliance.Input{
		DocumentSet: "savings",
		CustomerData: map[string]string{
			"full_name":      "Jane Doe",
			"date_of_birth":  "2008-06-02",
			"id_number":      "12345678",
			"monthly_income": "4200",
			"country":        "KE",
		},
		Documents: []models.Document{
			{
				Type:              models.DocumentNationalID,
				Processed:         true,
				OverallConfidence: 0.8,
				Fields: map[string]models.ExtractedField{
					"full_name": {Value: "JANE DOE", Confidence: 0.9},
				},
			},
			{Type: models.DocumentUtilityBill, Processed: false, OverallConfidence: 0.99},
		},
		Comparisons: []models.FieldComparison{
			{Field: "full_name", Score: 100},
			{Field: "id_number", Score: 80},
		},
		AsOf: s.asOf,
	}
}

func snapshot(rules ...policymodels.Rule) *policymodels.Snapshot {
	for i := range rules {
		rules[i].Active = true
		if rules[i].Name == "" {
			rules[i].Name = rules[i].Code
		}
	}
	return policymodels.NewSnapshot([]policymodels.Policy{{Code: "P1", Category: policymodels.CategoryKYC, Active: true, Rules: rules}}, time.Now())
}

func (s *EvaluatorSuite) evaluateOne(rule policymodels.Rule) models.ComplianceCheck {
	if rule.Weight == 0 {
		rule.Weight = 1
	}
	checks := s.evaluator.Evaluate(s.input, snapshot(rule))
	s.Require().Len(checks, 1)
	return checks[0]
}

func (s *EvaluatorSuite) TestRequiredDocument() {
	s.Run("processed documents satisfy the rule", func() {
		check := s.evaluateOne(policymodels.Rule{Code: "doc", Condition: policymodels.RequiredDocument{DocumentTypes: []string{"national_id"}}})
		s.True(check.Passed)
		s.Equal(100.0, check.Score)
	})

	s.Run("unprocessed documents do not count", func() {
		check := s.evaluateOne(policymodels.Rule{Code: "doc", Condition: policymodels.RequiredDocument{DocumentTypes: []string{"national_id", "utility_bill"}}})
		s.False(check.Passed)
		s.Equal(50.0, check.Score)
		s.Contains(check.Message, "utility_bill")
	})

	s.Run("any of accepts one processed document", func() {
		check := s.evaluateOne(policymodels.Rule{Code: "doc", Condition: policymodels.RequiredDocument{
			DocumentTypes: []string{"passport", "national_id"}, AnyOf: true,
		}})
		s.True(check.Passed)
		s.Equal(100.0, check.Score)
	})

	s.Run("any of with nothing processed fails outright", func() {
		check := s.evaluateOne(policymodels.Rule{Code: "doc", Condition: policymodels.RequiredDocument{
			DocumentTypes: []string{"passport", "utility_bill"}, AnyOf: true,
		}})
		s.False(check.Passed)
		s.Equal(0.0, check.Score)
	})
}

func (s *EvaluatorSuite) TestFieldValidation() {
	cases := []struct {
		name   string
		cond   policymodels.FieldValidation
		passed bool
	}{
		{"required present", policymodels.FieldValidation{Field: "full_name", Predicate: policymodels.Required{}}, true},
		{"required missing", policymodels.FieldValidation{Field: "email", Predicate: policymodels.Required{}}, false},
		{"pattern match", policymodels.FieldValidation{Field: "id_number", Predicate: policymodels.Pattern{Expr: regexp.MustCompile(`^[0-9]{8}$`)}}, true},
		{"pattern mismatch", policymodels.FieldValidation{Field: "full_name", Predicate: policymodels.Pattern{Expr: regexp.MustCompile(`^[0-9]+$`)}}, false},
		{"range inside", policymodels.FieldValidation{Field: "monthly_income", Predicate: policymodels.Range{Min: ptr(1000)}}, true},
		{"range outside", policymodels.FieldValidation{Field: "monthly_income", Predicate: policymodels.Range{Max: ptr(1000)}}, false},
		{"range non numeric", policymodels.FieldValidation{Field: "full_name", Predicate: policymodels.Range{Min: ptr(1)}}, false},
		{"one of ignores case", policymodels.FieldValidation{Field: "country", Predicate: policymodels.OneOf{Values: []string{"ke", "ug"}}}, true},
		{"one of rejects", policymodels.FieldValidation{Field: "country", Predicate: policymodels.OneOf{Values: []string{"TZ"}}}, false},
		{"min age one day short", policymodels.FieldValidation{Field: "date_of_birth", Predicate: policymodels.MinAge{Years: 18}}, false},
		{"min age met", policymodels.FieldValidation{Field: "date_of_birth", Predicate: policymodels.MinAge{Years: 17}}, true},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			check := s.evaluateOne(policymodels.Rule{Code: "fv", Condition: tc.cond})
			s.Equal(tc.passed, check.Passed, check.Message)
			if !tc.passed {
				s.NotEmpty(check.Message)
				s.Equal(0.0, check.Score)
			}
		})
	}
}

func (s *EvaluatorSuite) TestFieldValidationFallsBackToDocument() {
	delete(s.input.CustomerData, "full_name")
	check := s.evaluateOne(policymodels.Rule{Code: "fv", Condition: policymodels.FieldValidation{Field: "full_name", Predicate: policymodels.Required{}}})
	s.True(check.Passed)
}

func (s *EvaluatorSuite) TestThreshold() {
	cases := []struct {
		name   string
		cond   policymodels.Threshold
		passed bool
	}{
		{"match average", policymodels.Threshold{Quantity: "match.average", Min: 90}, true},
		{"match field below", policymodels.Threshold{Quantity: "match.id_number", Min: 85}, false},
		{"match field is case insensitive", policymodels.Threshold{Quantity: "match.Full_Name", Min: 95}, true},
		{"ocr overall ignores unprocessed", policymodels.Threshold{Quantity: "ocr.overall", Min: 75, Max: ptr(85)}, true},
		{"ocr field", policymodels.Threshold{Quantity: "ocr.full_name", Min: 95}, false},
		{"entered field is case insensitive", policymodels.Threshold{Quantity: "entered.Monthly_Income", Min: 3000}, true},
		{"entered numeric", policymodels.Threshold{Quantity: "entered.monthly_income", Min: 3000}, true},
		{"missing quantity fails with message", policymodels.Threshold{Quantity: "match.passport_number", Min: 1}, false},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			check := s.evaluateOne(policymodels.Rule{Code: "th", Condition: tc.cond})
			s.Equal(tc.passed, check.Passed, check.Message)
		})
	}
}

func (s *EvaluatorSuite) TestCheckTypeAndMetadata() {
	policies := []policymodels.Policy{
		{Code: "INST", Category: policymodels.CategoryInstitutional, Active: true, Rules: []policymodels.Rule{
			{Code: "inst", Name: "institutional", Condition: policymodels.FieldValidation{Field: "full_name", Predicate: policymodels.Required{}}, Weight: 2, Active: true},
		}},
		{Code: "AML", Category: policymodels.CategoryAML, Active: true, Rules: []policymodels.Rule{
			{Code: "aml", Name: "aml", Condition: policymodels.FieldValidation{Field: "email", Predicate: policymodels.Required{}}, Weight: 1, Blocking: true, ErrorMessage: "contact email required", Active: true},
		}},
	}
	checks := s.evaluator.Evaluate(s.input, policymodels.NewSnapshot(policies, time.Now()))

	s.Require().Len(checks, 2)
	s.Equal("aml", checks[0].RuleCode, "blocking rules first")
	s.Equal(models.CheckCompliance, checks[0].CheckType)
	s.True(checks[0].Blocking)
	s.Contains(checks[0].Message, "contact email required")
	s.Equal(s.asOf, checks[0].CheckedAt)

	s.Equal(models.CheckPolicy, checks[1].CheckType)
	s.Equal("INST", checks[1].PolicyCode)
	s.Equal(2.0, checks[1].Weight)

	blocking := compliance.BlockingFailures(checks)
	s.Require().Len(blocking, 1)
	s.Equal("aml", blocking[0].RuleCode)
}

func (s *EvaluatorSuite) TestDocumentSetScoping() {
	policies := []policymodels.Policy{
		{Code: "BIZ", Category: policymodels.CategoryKYC, DocumentSets: []string{"business"}, Active: true, Rules: []policymodels.Rule{
			{Code: "biz", Name: "biz", Condition: policymodels.RequiredDocument{DocumentTypes: []string{"utility_bill"}}, Weight: 1, Active: true},
		}},
	}
	checks := s.evaluator.Evaluate(s.input, policymodels.NewSnapshot(policies, time.Now()))
	s.Empty(checks)
}

func (s *EvaluatorSuite) TestNilSnapshot() {
	s.Empty(s.evaluator.Evaluate(s.input, nil))
}

func ptr(v float64) *float64 { return &v }
