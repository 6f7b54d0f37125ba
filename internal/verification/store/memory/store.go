package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"docverify/internal/verification/models"
	"docverify/internal/verification/store"
	id "docverify/pkg/domain"
	dErrors "docverify/pkg/domain-errors"
	"docverify/pkg/platform/sentinel"
)

type txKey struct{}

type state struct {
	requests      map[id.RequestID]models.Request
	documents     map[id.RequestID][]models.Document
	comparisons   map[id.RequestID][]models.FieldComparison
	discrepancies map[id.RequestID][]models.Discrepancy
	checks        map[id.RequestID][]models.ComplianceCheck
	results       map[id.RequestID][]models.Result
}

func newState() state {
	return state{
		requests:      make(map[id.RequestID]models.Request),
		documents:     make(map[id.RequestID][]models.Document),
		comparisons:   make(map[id.RequestID][]models.FieldComparison),
		discrepancies: make(map[id.RequestID][]models.Discrepancy),
		checks:        make(map[id.RequestID][]models.ComplianceCheck),
		results:       make(map[id.RequestID][]models.Result),
	}
}

// clone copies the maps. Slices are replaced, never appended in place, so sharing
// them between the copy and the live state is safe.
func (s state) clone() state {
	return state{
		requests:      maps.Clone(s.requests),
		documents:     maps.Clone(s.documents),
		comparisons:   maps.Clone(s.comparisons),
		discrepancies: maps.Clone(s.discrepancies),
		checks:        maps.Clone(s.checks),
		results:       maps.Clone(s.results),
	}
}

// InMemoryStore keeps everything in maps. Transactions are serialized and roll back
// by restoring a copy of the state taken when they began.
type InMemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data state
}

var _ store.Store = (*InMemoryStore)(nil)

func New() *InMemoryStore {
	return &InMemoryStore{data: newState()}
}

func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx, s)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	saved := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true), s); err != nil {
		s.mu.Lock()
		s.data = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

func cloneRequest(r models.Request) *models.Request {
	r.CustomerData = maps.Clone(r.CustomerData)
	if r.Breakdown != nil {
		b := *r.Breakdown
		b.Types = slices.Clone(b.Types)
		r.Breakdown = &b
	}
	return &r
}

func (s *InMemoryStore) CreateRequest(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.requests[req.ID]; ok {
		return fmt.Errorf("request %s: %w", req.ID, sentinel.ErrConflict)
	}
	s.data.requests[req.ID] = *cloneRequest(*req)
	return nil
}

func (s *InMemoryStore) GetRequest(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", requestID, sentinel.ErrNotFound)
	}
	return cloneRequest(r), nil
}

// GetRequestForUpdate relies on RunInTx serializing transactions.
func (s *InMemoryStore) GetRequestForUpdate(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	return s.GetRequest(ctx, requestID)
}

func (s *InMemoryStore) UpdateRequest(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.requests[req.ID]; !ok {
		return fmt.Errorf("request %s: %w", req.ID, sentinel.ErrNotFound)
	}
	s.data.requests[req.ID] = *cloneRequest(*req)
	return nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status models.Status, limit int) ([]models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Request
	for _, r := range s.data.requests {
		if r.Status == status {
			out = append(out, *cloneRequest(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) AddDocument(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.requests[doc.RequestID]; !ok {
		return fmt.Errorf("request %s: %w", doc.RequestID, sentinel.ErrNotFound)
	}
	d := *doc
	d.Fields = maps.Clone(doc.Fields)
	docs := slices.Clone(s.data.documents[doc.RequestID])
	s.data.documents[doc.RequestID] = append(docs, d)
	return nil
}

func (s *InMemoryStore) ListDocuments(_ context.Context, requestID id.RequestID) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := slices.Clone(s.data.documents[requestID])
	for i := range docs {
		docs[i].Fields = maps.Clone(docs[i].Fields)
	}
	return docs, nil
}

func (s *InMemoryStore) SaveComparisons(_ context.Context, requestID id.RequestID, comps []models.FieldComparison) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.comparisons[requestID]; ok {
		return fmt.Errorf("comparisons for %s: %w", requestID, sentinel.ErrConflict)
	}
	s.data.comparisons[requestID] = slices.Clone(comps)
	return nil
}

func (s *InMemoryStore) ListComparisons(_ context.Context, requestID id.RequestID) ([]models.FieldComparison, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.comparisons[requestID]), nil
}

func (s *InMemoryStore) SaveDiscrepancies(_ context.Context, discrepancies []models.Discrepancy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range discrepancies {
		existing := s.data.discrepancies[d.RequestID]
		for _, e := range existing {
			if e.ID == d.ID {
				return fmt.Errorf("discrepancy %s: %w", d.ID, sentinel.ErrConflict)
			}
		}
		s.data.discrepancies[d.RequestID] = append(slices.Clone(existing), d)
	}
	return nil
}

func (s *InMemoryStore) ListDiscrepancies(_ context.Context, requestID id.RequestID) ([]models.Discrepancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.data.discrepancies[requestID])
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, nil
}

func (s *InMemoryStore) GetDiscrepancy(_ context.Context, requestID id.RequestID, discrepancyID id.DiscrepancyID) (*models.Discrepancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.data.discrepancies[requestID] {
		if d.ID == discrepancyID {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("discrepancy %s: %w", discrepancyID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) UpdateDiscrepancy(_ context.Context, d *models.Discrepancy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := slices.Clone(s.data.discrepancies[d.RequestID])
	for i := range list {
		if list[i].ID == d.ID {
			list[i] = *d
			s.data.discrepancies[d.RequestID] = list
			return nil
		}
	}
	return fmt.Errorf("discrepancy %s: %w", d.ID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) SaveComplianceChecks(_ context.Context, requestID id.RequestID, checks []models.ComplianceCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.checks[requestID]; ok {
		return fmt.Errorf("compliance checks for %s: %w", requestID, sentinel.ErrConflict)
	}
	s.data.checks[requestID] = slices.Clone(checks)
	return nil
}

func (s *InMemoryStore) ListComplianceChecks(_ context.Context, requestID id.RequestID) ([]models.ComplianceCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.checks[requestID]), nil
}

func (s *InMemoryStore) SaveResults(_ context.Context, requestID id.RequestID, results []models.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.results[requestID]; ok {
		return fmt.Errorf("results for %s: %w", requestID, sentinel.ErrConflict)
	}
	s.data.results[requestID] = slices.Clone(results)
	return nil
}

func (s *InMemoryStore) ListResults(_ context.Context, requestID id.RequestID) ([]models.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.results[requestID]), nil
}
