// Package service serves immutable policy snapshots to the verification pipeline.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"docverify/internal/policy/metrics"
	"docverify/internal/policy/models"
	audit "docverify/pkg/platform/audit"
	"docverify/pkg/platform/sentinel"
)

// PolicyLister reads policies from the system of record.
type PolicyLister interface {
	ListPolicies(ctx context.Context) ([]models.Policy, error)
}

// SnapshotCache shares snapshots between instances. Optional.
type SnapshotCache interface {
	Get(ctx context.Context) (*models.Snapshot, error)
	Set(ctx context.Context, snap *models.Snapshot) error
}

// AuditPublisher records snapshot version changes. Optional.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Provider holds the current snapshot. Readers get an immutable value; a refresh
// swaps the pointer so passes already bound to the old snapshot are unaffected.
type Provider struct {
	store   PolicyLister
	cache   SnapshotCache
	auditor AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	current   atomic.Pointer[models.Snapshot]
	refreshMu sync.Mutex
}

type Option func(*Provider)

func WithCache(c SnapshotCache) Option {
	return func(p *Provider) { p.cache = c }
}

func WithAuditPublisher(a AuditPublisher) Option {
	return func(p *Provider) { p.auditor = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func New(store PolicyLister, opts ...Option) *Provider {
	p := &Provider{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Current returns the bound snapshot, loading one on first use.
func (p *Provider) Current(ctx context.Context) (*models.Snapshot, error) {
	if snap := p.current.Load(); snap != nil {
		return snap, nil
	}
	return p.Warm(ctx)
}

// Warm prefers a cached snapshot so new instances agree with running ones, and
// falls back to the store.
func (p *Provider) Warm(ctx context.Context) (*models.Snapshot, error) {
	if p.cache != nil {
		cached, err := p.cache.Get(ctx)
		if err != nil {
			p.logger.WarnContext(ctx, "policy snapshot cache read failed", "error", err)
		}
		if cached != nil {
			if p.current.CompareAndSwap(nil, cached) {
				p.metrics.RecordRefresh("cache", nil, len(cached.Rules), float64(cached.TakenAt.Unix()))
				p.logger.InfoContext(ctx, "policy snapshot loaded from cache", "version", cached.Version)
			}
			return p.current.Load(), nil
		}
	}
	return p.Refresh(ctx)
}

// Refresh rebuilds the snapshot from the store and publishes it. When the store is
// unreachable the previous snapshot stays in force.
func (p *Provider) Refresh(ctx context.Context) (*models.Snapshot, error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	policies, err := p.store.ListPolicies(ctx)
	if err != nil {
		p.metrics.RecordRefresh("store", err, 0, 0)
		p.logger.ErrorContext(ctx, "policy snapshot refresh failed", "error", err)
		if prev := p.current.Load(); prev != nil {
			return prev, nil
		}
		return nil, fmt.Errorf("load policies: %w: %w", sentinel.ErrUnavailable, err)
	}

	snap := models.NewSnapshot(policies, p.now().UTC())
	prev := p.current.Swap(snap)
	p.metrics.RecordRefresh("store", nil, len(snap.Rules), float64(snap.TakenAt.Unix()))

	if p.cache != nil {
		if err := p.cache.Set(ctx, snap); err != nil {
			p.logger.WarnContext(ctx, "policy snapshot cache write failed", "error", err)
		}
	}

	if prev == nil || prev.Version != snap.Version {
		previous := ""
		if prev != nil {
			previous = prev.Version
		}
		p.logger.InfoContext(ctx, "policy snapshot refreshed",
			"version", snap.Version,
			"previous_version", previous,
			"rules", len(snap.Rules),
		)
		if p.auditor != nil {
			if err := p.auditor.Emit(ctx, audit.Event{
				Action:  audit.EventPolicySnapshotRefreshed,
				Subject: snap.Version,
				Reason:  "policy snapshot refreshed",
				Details: map[string]any{"previous_version": previous, "rules": len(snap.Rules)},
			}); err != nil {
				p.logger.ErrorContext(ctx, "failed to audit policy refresh", "error", err)
			}
		}
	}
	return snap, nil
}
