package models

import (
	"time"

	id "docverify/pkg/domain"
)

// Request is a single customer verification: the data the customer entered plus the
// decision the pipeline reached for it.
type Request struct {
	ID               id.RequestID      `json:"id"`
	CustomerID       string            `json:"customer_id"`
	AccountReference string            `json:"account_reference"`
	DocumentSet      string            `json:"document_set"`
	CustomerData     map[string]string `json:"customer_data"`
	Priority         int               `json:"priority"`
	Status           Status            `json:"status"`

	OverallScore   *float64        `json:"overall_score,omitempty"`
	Approved       *bool           `json:"approved,omitempty"`
	DecisionReason string          `json:"decision_reason,omitempty"`
	Escalated      bool            `json:"escalated"`
	PolicyVersion  string          `json:"policy_version,omitempty"`
	Breakdown      *ScoreBreakdown `json:"breakdown,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ReviewedBy  string     `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ReviewNotes string     `json:"review_notes,omitempty"`
}

const (
	DefaultPriority = 5
	MinPriority     = 1
	MaxPriority     = 10
)

// DocumentType names a kind of identity or supporting document.
type DocumentType string

const (
	DocumentNationalID      DocumentType = "national_id"
	DocumentPassport        DocumentType = "passport"
	DocumentDriversLicense  DocumentType = "drivers_license"
	DocumentUtilityBill     DocumentType = "utility_bill"
	DocumentBankStatement   DocumentType = "bank_statement"
	DocumentApplicationForm DocumentType = "application_form"
)

// ExtractedField is a single value read from a document together with the reader's
// confidence in it.
type ExtractedField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Document is the already-extracted content of one uploaded document.
type Document struct {
	ID                id.DocumentID             `json:"id"`
	RequestID         id.RequestID              `json:"request_id"`
	Type              DocumentType              `json:"document_type"`
	Processed         bool                      `json:"processed"`
	RawText           string                    `json:"raw_text,omitempty"`
	Fields            map[string]ExtractedField `json:"fields"`
	OverallConfidence float64                   `json:"overall_confidence"`
	CreatedAt         time.Time                 `json:"created_at"`
}

// FieldType selects normalization and comparison strategies for a field.
type FieldType string

const (
	FieldName       FieldType = "name"
	FieldIdentifier FieldType = "identifier"
	FieldDate       FieldType = "date"
	FieldPhone      FieldType = "phone"
	FieldEmail      FieldType = "email"
	FieldAddress    FieldType = "address"
	FieldText       FieldType = "text"
)

func (t FieldType) IsValid() bool {
	switch t {
	case FieldName, FieldIdentifier, FieldDate, FieldPhone, FieldEmail, FieldAddress, FieldText:
		return true
	}
	return false
}

// Classification describes how an entered value matched its document value.
type Classification string

const (
	ClassExact    Classification = "exact"
	ClassFuzzy    Classification = "fuzzy"
	ClassPhonetic Classification = "phonetic"
	ClassMismatch Classification = "mismatch"
	ClassMissing  Classification = "missing"
)

// FieldComparison is the immutable outcome of comparing one entered field with the
// value extracted from the documents.
type FieldComparison struct {
	Field               string         `json:"field"`
	Type                FieldType      `json:"field_type"`
	Entered             string         `json:"entered_value"`
	Extracted           string         `json:"extracted_value"`
	NormalizedEntered   string         `json:"normalized_entered"`
	NormalizedExtracted string         `json:"normalized_extracted"`
	Strategy            string         `json:"strategy,omitempty"`
	Score               float64        `json:"score"`
	Classification      Classification `json:"classification"`
	Optional            bool           `json:"optional"`
}

// Severity ranks a discrepancy.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

// CheckType groups results for weighted scoring.
type CheckType string

const (
	CheckIdentity   CheckType = "identity"
	CheckAddress    CheckType = "address"
	CheckDocument   CheckType = "document"
	CheckCompliance CheckType = "compliance"
	CheckPolicy     CheckType = "policy"
)

// CheckTypes lists every check type in canonical scoring order.
var CheckTypes = []CheckType{CheckIdentity, CheckDocument, CheckCompliance, CheckPolicy, CheckAddress}

func (t CheckType) IsValid() bool {
	switch t {
	case CheckIdentity, CheckAddress, CheckDocument, CheckCompliance, CheckPolicy:
		return true
	}
	return false
}

// ComplianceCheck is the immutable outcome of evaluating one compliance rule.
type ComplianceCheck struct {
	RuleCode   string         `json:"rule_code"`
	RuleName   string         `json:"rule_name"`
	PolicyCode string         `json:"policy_code"`
	CheckType  CheckType      `json:"check_type"`
	Passed     bool           `json:"passed"`
	Score      float64        `json:"score"`
	Weight     float64        `json:"weight"`
	Blocking   bool           `json:"blocking"`
	Message    string         `json:"message,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CheckedAt  time.Time      `json:"checked_at"`
}

// Result is one scored verification check that feeds the overall score.
type Result struct {
	CheckType  CheckType      `json:"check_type"`
	CheckName  string         `json:"check_name"`
	Score      float64        `json:"score"`
	Confidence float64        `json:"confidence"`
	Passed     bool           `json:"passed"`
	Message    string         `json:"message,omitempty"`
	Evidence   map[string]any `json:"evidence,omitempty"`
}

// TypeScore is the per-check-type line of a score breakdown.
type TypeScore struct {
	CheckType       CheckType `json:"check_type"`
	Average         float64   `json:"average"`
	Weight          float64   `json:"weight"`
	EffectiveWeight float64   `json:"effective_weight"`
	Count           int       `json:"count"`
	Present         bool      `json:"present"`
}

// ScoreBreakdown explains how the overall score was reached.
type ScoreBreakdown struct {
	Overall float64     `json:"overall"`
	Raw     float64     `json:"raw"`
	Types   []TypeScore `json:"types"`
}

// Outcome is the decision reached for a request.
type Outcome struct {
	Status        Status          `json:"status"`
	OverallScore  float64         `json:"overall_score"`
	Approved      *bool           `json:"approved,omitempty"`
	Reason        string          `json:"reason"`
	Escalated     bool            `json:"escalated"`
	Breakdown     *ScoreBreakdown `json:"breakdown,omitempty"`
	PolicyVersion string          `json:"policy_version,omitempty"`
}
