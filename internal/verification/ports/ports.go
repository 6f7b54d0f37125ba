// Package ports declares what the verification service consumes from other modules.
package ports

import (
	"context"

	policymodels "docverify/internal/policy/models"
	"docverify/internal/verification/models"
	id "docverify/pkg/domain"
	audit "docverify/pkg/platform/audit"
)

//go:generate mockgen -source=ports.go -destination=mocks/ports-mocks.go -package=mocks DocumentSource,PolicySource,AuditPublisher

// DocumentSource supplies the extracted documents of a request.
type DocumentSource interface {
	ListDocuments(ctx context.Context, requestID id.RequestID) ([]models.Document, error)
}

// PolicySource supplies the compliance snapshot a processing pass binds to.
type PolicySource interface {
	Current(ctx context.Context) (*policymodels.Snapshot, error)
}

// AuditPublisher records decisions. Emit must fail when the event cannot be stored.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
