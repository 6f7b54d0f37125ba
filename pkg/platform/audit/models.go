package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose so stores and
// sinks can apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers decisions with regulatory significance. These are
	// written fail-closed in the same transaction as the change they describe.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	EventVerificationCreated     AuditEvent = "verification_created"
	EventVerificationProcessed   AuditEvent = "verification_processed"
	EventVerificationFailed      AuditEvent = "verification_failed"
	EventVerificationOverridden  AuditEvent = "verification_overridden"
	EventDiscrepancyResolved     AuditEvent = "discrepancy_resolved"
	EventPolicySnapshotRefreshed AuditEvent = "policy_snapshot_refreshed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventVerificationProcessed:  CategoryCompliance,
	EventVerificationFailed:     CategoryCompliance,
	EventVerificationOverridden: CategoryCompliance,
	EventDiscrepancyResolved:    CategoryCompliance,

	EventVerificationCreated:     CategoryOperations,
	EventPolicySnapshotRefreshed: CategoryOperations,
}

// AggregateType names the kind of entity the event's Subject identifies.
func (e AuditEvent) AggregateType() string {
	if e == EventPolicySnapshotRefreshed {
		return "policy_snapshot"
	}
	return "verification_request"
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. It stays
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Category  EventCategory `json:"category"`
	Action    AuditEvent    `json:"action"`
	Timestamp time.Time     `json:"timestamp"`

	// Subject is the verification request, or the policy snapshot version, the event is about.
	Subject string `json:"subject"`

	// ActorID is the reviewer or supervisor, empty for automatic decisions.
	ActorID string `json:"actor_id,omitempty"`

	// RequestID is the HTTP correlation ID.
	RequestID string `json:"request_id,omitempty"`

	Decision string         `json:"decision,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Message is an audit record on its way to an external sink.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}
