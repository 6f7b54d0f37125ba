// Package store defines persistence for compliance policies.
package store

import (
	"context"

	"docverify/internal/policy/models"
)

// Store persists policies together with their rules.
type Store interface {
	// ListPolicies returns every policy, active or not, ordered by code.
	ListPolicies(ctx context.Context) ([]models.Policy, error)
	// UpsertPolicy replaces a policy and its full rule set.
	UpsertPolicy(ctx context.Context, p models.Policy) error
	// SetActive toggles a policy without touching its rules.
	SetActive(ctx context.Context, code string, active bool) error
}
