// Package compliance provides a fail-closed audit publisher for regulatory events.
//
// Events are written synchronously and the caller blocks until the write succeeds.
// If the write fails, an error is returned and the calling operation must fail.
// Combined with the outbox store inside a transaction, the event and the decision
// it describes commit together.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "docverify/pkg/platform/audit"
	"docverify/pkg/requestcontext"
)

// Publisher emits compliance events with fail-closed semantics.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates a compliance publisher.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes an event to the audit store. ID, timestamp, category
// and correlation ID are filled in when absent.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := time.Now()

	if event.Subject == "" {
		return fmt.Errorf("compliance event requires Subject")
	}
	if event.Action == "" {
		return fmt.Errorf("compliance event requires Action")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	event.Category = event.Action.Category()

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.IncPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}

	p.metrics.ObservePersistDuration(time.Since(start))
	p.metrics.IncEventsEmitted(string(event.Action))
	return nil
}
