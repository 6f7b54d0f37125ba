package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docverify/internal/policy/models"
	policystore "docverify/internal/policy/store"
	"docverify/internal/policy/store/memory"
	audit "docverify/pkg/platform/audit"
	"docverify/pkg/platform/audit/publishers/compliance"
	auditmemory "docverify/pkg/platform/audit/store/memory"
	"docverify/pkg/platform/sentinel"
)

type fakeCache struct {
	snap   *models.Snapshot
	getErr error
	sets   int
}

func (f *fakeCache) Get(context.Context) (*models.Snapshot, error) { return f.snap, f.getErr }

func (f *fakeCache) Set(_ context.Context, snap *models.Snapshot) error {
	f.snap = snap
	f.sets++
	return nil
}

type failingStore struct{ err error }

func (f failingStore) ListPolicies(context.Context) ([]models.Policy, error) { return nil, f.err }

type auditRecorder struct{ events []audit.Event }

func (a *auditRecorder) Emit(_ context.Context, e audit.Event) error {
	a.events = append(a.events, e)
	return nil
}

type ProviderSuite struct {
	suite.Suite
	ctx     context.Context
	store   policystore.Store
	cache   *fakeCache
	auditor *auditRecorder
	now     time.Time
	logger  *slog.Logger
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderSuite))
}

func (s *ProviderSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.cache = &fakeCache{}
	s.auditor = &auditRecorder{}
	s.now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.Require().NoError(s.store.UpsertPolicy(s.ctx, kycPolicy(2)))
}

func kycPolicy(weight float64) models.Policy {
	return models.Policy{
		Code: "KYC", Name: "KYC", Category: models.CategoryKYC, Active: true,
		Rules: []models.Rule{{
			Code: "KYC-R1", Name: "ID document", Weight: weight, Blocking: true, Active: true,
			Condition: models.RequiredDocument{DocumentTypes: []string{"passport"}},
		}},
	}
}

func (s *ProviderSuite) newProvider() *Provider {
	return New(s.store,
		WithCache(s.cache),
		WithAuditPublisher(s.auditor),
		WithLogger(s.logger),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *ProviderSuite) TestCurrentLoadsOnce() {
	p := s.newProvider()

	first, err := p.Current(s.ctx)
	s.Require().NoError(err)
	s.Len(first.Rules, 1)
	s.Equal("KYC", first.Rules[0].PolicyCode)
	s.Equal(1, s.cache.sets)

	second, err := p.Current(s.ctx)
	s.Require().NoError(err)
	s.Same(first, second)
}

func (s *ProviderSuite) TestWarmPrefersCache() {
	cached := models.NewSnapshot(nil, s.now.Add(-time.Hour))
	s.cache.snap = cached

	snap, err := s.newProvider().Current(s.ctx)
	s.Require().NoError(err)
	s.Same(cached, snap)
	s.Empty(s.auditor.events)
}

func (s *ProviderSuite) TestWarmIgnoresCacheErrors() {
	s.cache.getErr = errors.New("connection refused")

	snap, err := s.newProvider().Current(s.ctx)
	s.Require().NoError(err)
	s.Len(snap.Rules, 1)
}

func (s *ProviderSuite) TestRefreshAuditsVersionChangesOnly() {
	p := s.newProvider()

	first, err := p.Refresh(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(s.auditor.events, 1)
	s.Equal(audit.EventPolicySnapshotRefreshed, s.auditor.events[0].Action)
	s.Equal(first.Version, s.auditor.events[0].Subject)

	_, err = p.Refresh(s.ctx)
	s.Require().NoError(err)
	s.Len(s.auditor.events, 1, "same rules, same version, no event")

	s.Require().NoError(s.store.UpsertPolicy(s.ctx, kycPolicy(3)))
	second, err := p.Refresh(s.ctx)
	s.Require().NoError(err)
	s.NotEqual(first.Version, second.Version)
	s.Len(s.auditor.events, 2)
	s.Equal(first.Version, s.auditor.events[1].Details["previous_version"])
}

func (s *ProviderSuite) TestRefreshKeepsBoundSnapshotImmutable() {
	p := s.newProvider()
	bound, err := p.Current(s.ctx)
	s.Require().NoError(err)

	s.Require().NoError(s.store.SetActive(s.ctx, "KYC", false))
	_, err = p.Refresh(s.ctx)
	s.Require().NoError(err)

	s.Len(bound.Rules, 1)
	current, err := p.Current(s.ctx)
	s.Require().NoError(err)
	s.Empty(current.Rules)
}

func (s *ProviderSuite) TestStoreFailure() {
	s.Run("without a previous snapshot", func() {
		p := New(failingStore{err: errors.New("db down")}, WithLogger(s.logger))
		_, err := p.Current(s.ctx)
		s.Require().Error(err)
		s.ErrorIs(err, sentinel.ErrUnavailable)
	})

	s.Run("keeps the previous snapshot", func() {
		p := s.newProvider()
		prev, err := p.Refresh(s.ctx)
		s.Require().NoError(err)

		p.store = failingStore{err: errors.New("db down")}
		got, err := p.Refresh(s.ctx)
		s.Require().NoError(err)
		s.Same(prev, got)
	})
}

func (s *ProviderSuite) TestAuditThroughMemoryStore() {
	store := auditmemory.NewInMemoryStore()
	p := New(s.store, WithLogger(s.logger), WithAuditPublisher(compliance.New(store)), WithClock(func() time.Time { return s.now }))

	snap, err := p.Refresh(s.ctx)
	s.Require().NoError(err)
	events, err := store.ListBySubject(s.ctx, snap.Version)
	s.Require().NoError(err)
	s.Len(events, 1)
}
