package models

import (
	"strings"

	dErrors "docverify/pkg/domain-errors"
)

// CreateRequest is the input for opening a verification request.
type CreateRequest struct {
	CustomerID       string            `json:"customer_id"`
	AccountReference string            `json:"account_reference"`
	DocumentSet      string            `json:"document_set"`
	CustomerData     map[string]string `json:"customer_data"`
	Priority         int               `json:"priority,omitempty"`
}

// Validate trims the input, defaults the priority and rejects bad values.
func (r *CreateRequest) Validate() error {
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	r.AccountReference = strings.TrimSpace(r.AccountReference)
	r.DocumentSet = strings.ToLower(strings.TrimSpace(r.DocumentSet))
	if r.CustomerID == "" {
		return dErrors.New(dErrors.CodeValidation, "customer_id is required")
	}
	if r.DocumentSet == "" {
		return dErrors.New(dErrors.CodeValidation, "document_set is required")
	}
	if len(r.CustomerData) == 0 {
		return dErrors.New(dErrors.CodeValidation, "customer_data is required")
	}
	if r.Priority == 0 {
		r.Priority = DefaultPriority
	}
	if r.Priority < MinPriority || r.Priority > MaxPriority {
		return dErrors.Newf(dErrors.CodeValidation, "priority must be between %d and %d", MinPriority, MaxPriority)
	}
	data := make(map[string]string, len(r.CustomerData))
	for k, v := range r.CustomerData {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			return dErrors.New(dErrors.CodeValidation, "customer_data keys must not be empty")
		}
		data[key] = v
	}
	r.CustomerData = data
	return nil
}

// AttachDocumentRequest carries the OCR collaborator's output for one document.
type AttachDocumentRequest struct {
	Type              DocumentType              `json:"document_type"`
	Processed         bool                      `json:"processed"`
	RawText           string                    `json:"raw_text,omitempty"`
	Fields            map[string]ExtractedField `json:"fields"`
	OverallConfidence float64                   `json:"overall_confidence"`
}

func (r *AttachDocumentRequest) Validate() error {
	r.Type = DocumentType(strings.ToLower(strings.TrimSpace(string(r.Type))))
	if r.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "document_type is required")
	}
	if r.OverallConfidence < 0 || r.OverallConfidence > 1 {
		return dErrors.New(dErrors.CodeValidation, "overall_confidence must be between 0 and 1")
	}
	fields := make(map[string]ExtractedField, len(r.Fields))
	for k, f := range r.Fields {
		if f.Confidence < 0 || f.Confidence > 1 {
			return dErrors.Newf(dErrors.CodeValidation, "confidence of %s must be between 0 and 1", k)
		}
		fields[strings.ToLower(strings.TrimSpace(k))] = f
	}
	r.Fields = fields
	return nil
}

// Document builds the document value the store persists.
func (r *AttachDocumentRequest) Document() Document {
	return Document{
		Type:              r.Type,
		Processed:         r.Processed,
		RawText:           r.RawText,
		Fields:            r.Fields,
		OverallConfidence: r.OverallConfidence,
	}
}

// ResolveDiscrepancyRequest is a reviewer's resolution of one discrepancy.
type ResolveDiscrepancyRequest struct {
	Resolution Resolution `json:"resolution"`
	Note       string     `json:"note"`
}

func (r *ResolveDiscrepancyRequest) Validate() error {
	r.Note = strings.TrimSpace(r.Note)
	if !r.Resolution.IsValid() || r.Resolution == ResolutionUnresolved {
		return dErrors.New(dErrors.CodeValidation, "resolution must be accepted, corrected or dismissed")
	}
	return nil
}

// OverrideRequest is a supervisor's manual decision.
type OverrideRequest struct {
	Approve *bool  `json:"approve"`
	Reason  string `json:"reason"`
}

func (r *OverrideRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Approve == nil {
		return dErrors.New(dErrors.CodeValidation, "approve is required")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}
