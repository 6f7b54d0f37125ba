package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "docverify/pkg/domain-errors"
)

// Typed identifiers keep request, document and discrepancy IDs from being mixed up
// at compile time.
type (
	RequestID     uuid.UUID
	DocumentID    uuid.UUID
	DiscrepancyID uuid.UUID
	CheckID       uuid.UUID
)

func (id RequestID) String() string     { return uuid.UUID(id).String() }
func (id DocumentID) String() string    { return uuid.UUID(id).String() }
func (id DiscrepancyID) String() string { return uuid.UUID(id).String() }
func (id CheckID) String() string       { return uuid.UUID(id).String() }

func (id RequestID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DiscrepancyID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewRequestID returns a random request ID.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewDocumentID returns a random document ID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// ParseRequestID parses a request ID at a trust boundary.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s, "request_id")
	return RequestID(u), err
}

// ParseDocumentID parses a document ID at a trust boundary.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document_id")
	return DocumentID(u), err
}

// ParseDiscrepancyID parses a discrepancy ID at a trust boundary.
func ParseDiscrepancyID(s string) (DiscrepancyID, error) {
	u, err := parseUUID(s, "discrepancy_id")
	return DiscrepancyID(u), err
}

// parseUUID rejects empty, malformed and nil UUIDs.
func parseUUID(s, name string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", name)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must be a valid UUID", name)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be nil", name)
	}
	return u, nil
}
