package models

import (
	"fmt"
	"time"

	id "docverify/pkg/domain"
	"docverify/pkg/platform/sentinel"
)

// Resolution is the manual review state of a discrepancy.
type Resolution string

const (
	ResolutionUnresolved Resolution = "unresolved"
	ResolutionAccepted   Resolution = "accepted"
	ResolutionCorrected  Resolution = "corrected"
	ResolutionDismissed  Resolution = "dismissed"
)

func (r Resolution) IsValid() bool {
	switch r {
	case ResolutionUnresolved, ResolutionAccepted, ResolutionCorrected, ResolutionDismissed:
		return true
	}
	return false
}

// Discrepancy records a field whose entered and document values disagree.
// Rows are never deleted; only Resolve mutates them.
type Discrepancy struct {
	ID              id.DiscrepancyID `json:"id"`
	RequestID       id.RequestID     `json:"request_id"`
	Field           string           `json:"field"`
	FieldType       FieldType        `json:"field_type"`
	EnteredValue    string           `json:"entered_value"`
	DocumentValue   string           `json:"document_value"`
	Severity        Severity         `json:"severity"`
	SimilarityScore float64          `json:"similarity_score"`
	Description     string           `json:"description"`
	Resolution      Resolution       `json:"resolution"`
	ResolvedBy      string           `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time       `json:"resolved_at,omitempty"`
	ResolutionNote  string           `json:"resolution_note,omitempty"`
}

// IsResolved reports whether a reviewer has acted on the discrepancy.
func (d *Discrepancy) IsResolved() bool {
	return d.Resolution != "" && d.Resolution != ResolutionUnresolved
}

// Resolve records a reviewer's resolution. Only unresolved discrepancies can be resolved.
func (d *Discrepancy) Resolve(status Resolution, actor, note string, now time.Time) error {
	if !status.IsValid() || status == ResolutionUnresolved {
		return fmt.Errorf("resolution %q: %w", status, sentinel.ErrInvalidState)
	}
	if d.IsResolved() {
		return fmt.Errorf("discrepancy already %s: %w", d.Resolution, sentinel.ErrInvalidState)
	}
	d.Resolution = status
	d.ResolvedBy = actor
	d.ResolvedAt = &now
	d.ResolutionNote = note
	return nil
}
