package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "docverify/pkg/platform/audit"
	txcontext "docverify/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to audit_outbox inside the caller's transaction and published
// to Kafka by the outbox worker.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// OutboxEntry is an unpublished outbox row.
type OutboxEntry struct {
	ID            uuid.UUID
	EventType     string
	AggregateType string
	AggregateID   string
	Payload       []byte
	CreatedAt     time.Time
}

// Append writes an audit event to the outbox. Inside a transaction carried by ctx
// the row commits or rolls back with the business change.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	// Always derive category from action; eventCategories is the source of truth.
	event.Category = event.Action.Category()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (id, event_type, aggregate_type, aggregate_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Action),
		event.Action.AggregateType(),
		event.Subject,
		payload,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// FetchPending returns up to limit unpublished entries, oldest first. Rows are
// locked with SKIP LOCKED so several workers can drain the outbox; callers must
// run it inside a transaction for the lock to hold.
func (s *Store) FetchPending(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, event_type, aggregate_type, aggregate_id, payload, created_at
		FROM audit_outbox
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.EventType, &e.AggregateType, &e.AggregateID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkProcessed stamps entries as published.
func (s *Store) MarkProcessed(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	query := `UPDATE audit_outbox SET processed_at = $1 WHERE id = ANY($2::uuid[])`
	if _, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query, at, pq.Array(raw)); err != nil {
		return fmt.Errorf("mark outbox processed: %w", err)
	}
	return nil
}

// ListBySubject reads the outbox history for a verification request, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	query := `
		SELECT payload FROM audit_outbox
		WHERE aggregate_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var ev audit.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

// DB exposes the handle so the worker can open its own transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}
