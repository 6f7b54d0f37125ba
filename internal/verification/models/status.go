package models

import (
	"fmt"
	"time"

	"docverify/pkg/platform/sentinel"
)

// Status is the lifecycle state of a verification request.
type Status string

const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusReviewRequired Status = "review_required"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusReviewRequired:
		return true
	}
	return false
}

// IsTerminal reports whether no automatic transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusReviewRequired
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusReviewRequired, StatusFailed},
}

// CanTransition reports whether the automatic pipeline may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves the request along the automatic lifecycle and stamps the
// matching timestamps.
func (r *Request) Transition(to Status, now time.Time) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("transition %s -> %s: %w", r.Status, to, sentinel.ErrInvalidState)
	}
	r.Status = to
	switch {
	case to == StatusProcessing:
		r.StartedAt = &now
	case to.IsTerminal():
		r.CompletedAt = &now
	}
	return nil
}

// ApplyOutcome records a decision on a processing request.
func (r *Request) ApplyOutcome(o Outcome, now time.Time) error {
	if err := r.Transition(o.Status, now); err != nil {
		return err
	}
	score := o.OverallScore
	r.OverallScore = &score
	r.Approved = o.Approved
	r.DecisionReason = o.Reason
	r.Escalated = o.Escalated
	r.Breakdown = o.Breakdown
	r.PolicyVersion = o.PolicyVersion
	return nil
}

// Fail moves a processing request to failed with the failure reason.
func (r *Request) Fail(reason string, now time.Time) error {
	if err := r.Transition(StatusFailed, now); err != nil {
		return err
	}
	r.DecisionReason = reason
	r.Approved = nil
	return nil
}

// CanOverride reports whether a supervisor may manually decide the request.
func (r *Request) CanOverride() bool {
	return r.Status == StatusReviewRequired || r.Status == StatusCompleted
}

// ApplyOverride records a manual supervisor decision. It is not an automatic
// transition and so is allowed out of review_required and completed.
func (r *Request) ApplyOverride(actor string, approve bool, reason string, now time.Time) error {
	if !r.CanOverride() {
		return fmt.Errorf("override from %s: %w", r.Status, sentinel.ErrInvalidState)
	}
	r.Status = StatusCompleted
	r.Approved = &approve
	if approve {
		r.DecisionReason = "manually approved: " + reason
	} else {
		r.DecisionReason = "manually rejected: " + reason
	}
	r.Escalated = false
	r.ReviewedBy = actor
	r.ReviewedAt = &now
	r.ReviewNotes = reason
	if r.CompletedAt == nil {
		r.CompletedAt = &now
	}
	return nil
}
