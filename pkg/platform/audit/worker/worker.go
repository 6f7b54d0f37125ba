// Package worker drains the audit outbox into an external sink.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "docverify/pkg/platform/audit"
	"docverify/pkg/platform/audit/store/postgres"
)

// Outbox is the store side of the relay.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]postgres.OutboxEntry, error)
	MarkProcessed(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Producer is the sink side of the relay.
type Producer interface {
	Produce(ctx context.Context, msgs []audit.Message) error
}

// TxRunner runs fn in a transaction carried by its context.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

const (
	defaultBatchSize = 100
	defaultInterval  = time.Second
)

// Worker polls the outbox and publishes pending events. A batch is marked processed
// only after the sink acknowledges it, so delivery is at least once.
type Worker struct {
	outbox    Outbox
	producer  Producer
	runInTx   TxRunner
	logger    *slog.Logger
	batchSize int
	interval  time.Duration
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func New(outbox Outbox, producer Producer, runInTx TxRunner, opts ...Option) *Worker {
	w := &Worker{
		outbox:    outbox,
		producer:  producer,
		runInTx:   runInTx,
		logger:    slog.Default(),
		batchSize: defaultBatchSize,
		interval:  defaultInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := w.Drain(ctx)
				if err != nil {
					w.logger.ErrorContext(ctx, "audit outbox relay failed", "error", err)
					break
				}
				if n < w.batchSize {
					break
				}
			}
		}
	}
}

// Drain publishes one batch and returns how many entries it relayed.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	var relayed int
	err := w.runInTx(ctx, func(ctx context.Context) error {
		entries, err := w.outbox.FetchPending(ctx, w.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		msgs := make([]audit.Message, len(entries))
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
			msgs[i] = audit.Message{
				Key:   e.AggregateID,
				Value: e.Payload,
				Headers: map[string]string{
					"event_type":     e.EventType,
					"aggregate_type": e.AggregateType,
					"outbox_id":      e.ID.String(),
				},
			}
		}
		if err := w.producer.Produce(ctx, msgs); err != nil {
			return err
		}
		if err := w.outbox.MarkProcessed(ctx, ids, time.Now()); err != nil {
			return err
		}
		relayed = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if relayed > 0 {
		w.logger.DebugContext(ctx, "audit outbox relayed", "count", relayed)
	}
	return relayed, nil
}
