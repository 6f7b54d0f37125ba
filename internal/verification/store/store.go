// Package store defines persistence for verification requests and everything a
// processing pass produces.
package store

import (
	"context"

	"docverify/internal/verification/models"
	id "docverify/pkg/domain"
)

// Store returns sentinel.ErrNotFound for missing rows. Result rows (comparisons,
// checks, results) are written once per request and never updated.
type Store interface {
	CreateRequest(ctx context.Context, req *models.Request) error
	GetRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	// GetRequestForUpdate locks the request row until the surrounding transaction ends.
	GetRequestForUpdate(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	UpdateRequest(ctx context.Context, req *models.Request) error
	// ListByStatus orders by priority (1 first), then oldest first.
	ListByStatus(ctx context.Context, status models.Status, limit int) ([]models.Request, error)

	AddDocument(ctx context.Context, doc *models.Document) error
	ListDocuments(ctx context.Context, requestID id.RequestID) ([]models.Document, error)

	SaveComparisons(ctx context.Context, requestID id.RequestID, comps []models.FieldComparison) error
	ListComparisons(ctx context.Context, requestID id.RequestID) ([]models.FieldComparison, error)

	SaveDiscrepancies(ctx context.Context, discrepancies []models.Discrepancy) error
	ListDiscrepancies(ctx context.Context, requestID id.RequestID) ([]models.Discrepancy, error)
	GetDiscrepancy(ctx context.Context, requestID id.RequestID, discrepancyID id.DiscrepancyID) (*models.Discrepancy, error)
	UpdateDiscrepancy(ctx context.Context, d *models.Discrepancy) error

	SaveComplianceChecks(ctx context.Context, requestID id.RequestID, checks []models.ComplianceCheck) error
	ListComplianceChecks(ctx context.Context, requestID id.RequestID) ([]models.ComplianceCheck, error)

	SaveResults(ctx context.Context, requestID id.RequestID, results []models.Result) error
	ListResults(ctx context.Context, requestID id.RequestID) ([]models.Result, error)

	// RunInTx runs fn atomically. Stores reached through the fn argument or through
	// the context share the transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
