package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docverify/internal/policy/models"
	"docverify/internal/policy/store"
	"docverify/pkg/platform/sentinel"
)

// InMemoryStore keeps policies in a map keyed by code.
type InMemoryStore struct {
	mu       sync.RWMutex
	policies map[string]models.Policy
}

var _ store.Store = (*InMemoryStore)(nil)

func New() *InMemoryStore {
	return &InMemoryStore{policies: make(map[string]models.Policy)}
}

func (s *InMemoryStore) ListPolicies(_ context.Context) ([]models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, clonePolicy(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *InMemoryStore) UpsertPolicy(_ context.Context, p models.Policy) error {
	if p.Code == "" {
		return fmt.Errorf("policy code is required: %w", sentinel.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.Code] = clonePolicy(p)
	return nil
}

func (s *InMemoryStore) SetActive(_ context.Context, code string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[code]
	if !ok {
		return fmt.Errorf("policy %s: %w", code, sentinel.ErrNotFound)
	}
	p.Active = active
	s.policies[code] = p
	return nil
}

func clonePolicy(p models.Policy) models.Policy {
	p.DocumentSets = append([]string(nil), p.DocumentSets...)
	p.Rules = append([]models.Rule(nil), p.Rules...)
	return p
}
