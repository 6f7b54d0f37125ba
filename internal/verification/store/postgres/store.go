package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"docverify/internal/verification/models"
	"docverify/internal/verification/store"
	id "docverify/pkg/domain"
	"docverify/pkg/platform/sentinel"
	txcontext "docverify/pkg/platform/tx"
)

// PostgresStore persists verification requests and processing output. Structured
// values (customer data, document fields, breakdowns, details) are stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

var _ store.Store = (*PostgresStore)(nil)

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) exec(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFrom(ctx, s.db)
}

// RunInTx carries the transaction through ctx, so fn may use either the tx
// argument or any store sharing the database.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		return fn(ctx, s)
	})
}

const requestColumns = `
	id, customer_id, account_reference, document_set, customer_data, priority, status,
	overall_score, approved, decision_reason, escalated, policy_version, breakdown,
	created_at, started_at, completed_at, reviewed_by, reviewed_at, review_notes`

func (s *PostgresStore) CreateRequest(ctx context.Context, req *models.Request) error {
	data, breakdown, err := encodeRequest(req)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO verification_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO NOTHING
	`, uuid.UUID(req.ID), req.CustomerID, req.AccountReference, req.DocumentSet, data, req.Priority,
		string(req.Status), req.OverallScore, req.Approved, req.DecisionReason, req.Escalated,
		req.PolicyVersion, breakdown, req.CreatedAt, req.StartedAt, req.CompletedAt,
		req.ReviewedBy, req.ReviewedAt, req.ReviewNotes)
	if err != nil {
		return fmt.Errorf("insert request %s: %w", req.ID, err)
	}
	return requireRow(res, fmt.Sprintf("request %s", req.ID), sentinel.ErrConflict)
}

func (s *PostgresStore) GetRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	return s.getRequest(ctx, requestID, "")
}

func (s *PostgresStore) GetRequestForUpdate(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	return s.getRequest(ctx, requestID, " FOR UPDATE")
}

func (s *PostgresStore) getRequest(ctx context.Context, requestID id.RequestID, lock string) (*models.Request, error) {
	row := s.exec(ctx).QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM verification_requests WHERE id = $1`+lock, uuid.UUID(requestID))
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %s: %w", requestID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get request %s: %w", requestID, err)
	}
	return req, nil
}

func (s *PostgresStore) UpdateRequest(ctx context.Context, req *models.Request) error {
	data, breakdown, err := encodeRequest(req)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE verification_requests SET
			customer_data = $2, priority = $3, status = $4, overall_score = $5, approved = $6,
			decision_reason = $7, escalated = $8, policy_version = $9, breakdown = $10,
			started_at = $11, completed_at = $12, reviewed_by = $13, reviewed_at = $14, review_notes = $15
		WHERE id = $1
	`, uuid.UUID(req.ID), data, req.Priority, string(req.Status), req.OverallScore, req.Approved,
		req.DecisionReason, req.Escalated, req.PolicyVersion, breakdown, req.StartedAt,
		req.CompletedAt, req.ReviewedBy, req.ReviewedAt, req.ReviewNotes)
	if err != nil {
		return fmt.Errorf("update request %s: %w", req.ID, err)
	}
	return requireRow(res, fmt.Sprintf("request %s", req.ID), sentinel.ErrNotFound)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status, limit int) ([]models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM verification_requests
		WHERE status = $1 ORDER BY priority ASC, created_at ASC, id ASC`
	args := []any{string(status)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests by status: %w", err)
	}
	defer rows.Close()

	var out []models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AddDocument(ctx context.Context, doc *models.Document) error {
	fields, err := json.Marshal(nonNilMap(doc.Fields))
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	res, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO verification_documents (id, request_id, document_type, processed, raw_text, fields, overall_confidence, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE EXISTS (SELECT 1 FROM verification_requests WHERE id = $2)
	`, uuid.UUID(doc.ID), uuid.UUID(doc.RequestID), string(doc.Type), doc.Processed, doc.RawText,
		fields, doc.OverallConfidence, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	return requireRow(res, fmt.Sprintf("request %s", doc.RequestID), sentinel.ErrNotFound)
}

func (s *PostgresStore) ListDocuments(ctx context.Context, requestID id.RequestID) ([]models.Document, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT id, request_id, document_type, processed, raw_text, fields, overall_confidence, created_at
		FROM verification_documents WHERE request_id = $1 ORDER BY created_at, id
	`, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		var docID, reqID uuid.UUID
		var docType string
		var fields []byte
		if err := rows.Scan(&docID, &reqID, &docType, &d.Processed, &d.RawText, &fields,
			&d.OverallConfidence, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.ID, d.RequestID, d.Type = id.DocumentID(docID), id.RequestID(reqID), models.DocumentType(docType)
		if err := json.Unmarshal(fields, &d.Fields); err != nil {
			return nil, fmt.Errorf("decode fields of %s: %w", d.ID, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (s *PostgresStore) SaveComparisons(ctx context.Context, requestID id.RequestID, comps []models.FieldComparison) error {
	for _, c := range comps {
		_, err := s.exec(ctx).ExecContext(ctx, `
			INSERT INTO field_comparisons (request_id, field_name, field_type, entered_value, extracted_value,
				normalized_entered, normalized_extracted, strategy, score, classification, optional)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, uuid.UUID(requestID), c.Field, string(c.Type), c.Entered, c.Extracted, c.NormalizedEntered,
			c.NormalizedExtracted, c.Strategy, c.Score, string(c.Classification), c.Optional)
		if err != nil {
			return fmt.Errorf("insert comparison %s: %w", c.Field, translate(err))
		}
	}
	return nil
}

func (s *PostgresStore) ListComparisons(ctx context.Context, requestID id.RequestID) ([]models.FieldComparison, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT field_name, field_type, entered_value, extracted_value, normalized_entered,
			normalized_extracted, strategy, score, classification, optional
		FROM field_comparisons WHERE request_id = $1 ORDER BY field_name
	`, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list comparisons: %w", err)
	}
	defer rows.Close()

	var out []models.FieldComparison
	for rows.Next() {
		var c models.FieldComparison
		var fieldType, class string
		if err := rows.Scan(&c.Field, &fieldType, &c.Entered, &c.Extracted, &c.NormalizedEntered,
			&c.NormalizedExtracted, &c.Strategy, &c.Score, &class, &c.Optional); err != nil {
			return nil, fmt.Errorf("scan comparison: %w", err)
		}
		c.Type, c.Classification = models.FieldType(fieldType), models.Classification(class)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comparisons: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveDiscrepancies(ctx context.Context, discrepancies []models.Discrepancy) error {
	for _, d := range discrepancies {
		_, err := s.exec(ctx).ExecContext(ctx, `
			INSERT INTO discrepancies (id, request_id, field_name, field_type, entered_value, document_value,
				severity, similarity_score, description, resolution, resolved_by, resolved_at, resolution_note)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, uuid.UUID(d.ID), uuid.UUID(d.RequestID), d.Field, string(d.FieldType), d.EnteredValue,
			d.DocumentValue, string(d.Severity), d.SimilarityScore, d.Description, resolutionOf(d),
			d.ResolvedBy, d.ResolvedAt, d.ResolutionNote)
		if err != nil {
			return fmt.Errorf("insert discrepancy %s: %w", d.Field, translate(err))
		}
	}
	return nil
}

const discrepancyColumns = `id, request_id, field_name, field_type, entered_value, document_value,
	severity, similarity_score, description, resolution, resolved_by, resolved_at, resolution_note`

func (s *PostgresStore) ListDiscrepancies(ctx context.Context, requestID id.RequestID) ([]models.Discrepancy, error) {
	rows, err := s.exec(ctx).QueryContext(ctx,
		`SELECT `+discrepancyColumns+` FROM discrepancies WHERE request_id = $1 ORDER BY field_name, id`,
		uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list discrepancies: %w", err)
	}
	defer rows.Close()

	var out []models.Discrepancy
	for rows.Next() {
		d, err := scanDiscrepancy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discrepancy: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discrepancies: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetDiscrepancy(ctx context.Context, requestID id.RequestID, discrepancyID id.DiscrepancyID) (*models.Discrepancy, error) {
	row := s.exec(ctx).QueryRowContext(ctx,
		`SELECT `+discrepancyColumns+` FROM discrepancies WHERE request_id = $1 AND id = $2`,
		uuid.UUID(requestID), uuid.UUID(discrepancyID))
	d, err := scanDiscrepancy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("discrepancy %s: %w", discrepancyID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get discrepancy %s: %w", discrepancyID, err)
	}
	return d, nil
}

func (s *PostgresStore) UpdateDiscrepancy(ctx context.Context, d *models.Discrepancy) error {
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE discrepancies SET resolution = $3, resolved_by = $4, resolved_at = $5, resolution_note = $6
		WHERE request_id = $1 AND id = $2
	`, uuid.UUID(d.RequestID), uuid.UUID(d.ID), resolutionOf(*d), d.ResolvedBy, d.ResolvedAt, d.ResolutionNote)
	if err != nil {
		return fmt.Errorf("update discrepancy %s: %w", d.ID, err)
	}
	return requireRow(res, fmt.Sprintf("discrepancy %s", d.ID), sentinel.ErrNotFound)
}

func (s *PostgresStore) SaveComplianceChecks(ctx context.Context, requestID id.RequestID, checks []models.ComplianceCheck) error {
	for i, c := range checks {
		details, err := marshalOptional(c.Details)
		if err != nil {
			return fmt.Errorf("encode details of %s: %w", c.RuleCode, err)
		}
		_, err = s.exec(ctx).ExecContext(ctx, `
			INSERT INTO compliance_checks (request_id, position, rule_code, rule_name, policy_code, check_type,
				passed, score, weight, blocking, message, details, checked_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, uuid.UUID(requestID), i, c.RuleCode, c.RuleName, c.PolicyCode, string(c.CheckType), c.Passed,
			c.Score, c.Weight, c.Blocking, c.Message, details, c.CheckedAt)
		if err != nil {
			return fmt.Errorf("insert compliance check %s: %w", c.RuleCode, translate(err))
		}
	}
	return nil
}

func (s *PostgresStore) ListComplianceChecks(ctx context.Context, requestID id.RequestID) ([]models.ComplianceCheck, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT rule_code, rule_name, policy_code, check_type, passed, score, weight, blocking, message, details, checked_at
		FROM compliance_checks WHERE request_id = $1 ORDER BY position
	`, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list compliance checks: %w", err)
	}
	defer rows.Close()

	var out []models.ComplianceCheck
	for rows.Next() {
		var c models.ComplianceCheck
		var checkType string
		var details []byte
		if err := rows.Scan(&c.RuleCode, &c.RuleName, &c.PolicyCode, &checkType, &c.Passed, &c.Score,
			&c.Weight, &c.Blocking, &c.Message, &details, &c.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan compliance check: %w", err)
		}
		c.CheckType = models.CheckType(checkType)
		if err := unmarshalOptional(details, &c.Details); err != nil {
			return nil, fmt.Errorf("decode details of %s: %w", c.RuleCode, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compliance checks: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveResults(ctx context.Context, requestID id.RequestID, results []models.Result) error {
	for i, r := range results {
		evidence, err := marshalOptional(r.Evidence)
		if err != nil {
			return fmt.Errorf("encode evidence of %s: %w", r.CheckName, err)
		}
		_, err = s.exec(ctx).ExecContext(ctx, `
			INSERT INTO verification_results (request_id, position, check_type, check_name, score, confidence, passed, message, evidence)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, uuid.UUID(requestID), i, string(r.CheckType), r.CheckName, r.Score, r.Confidence, r.Passed,
			r.Message, evidence)
		if err != nil {
			return fmt.Errorf("insert result %s: %w", r.CheckName, translate(err))
		}
	}
	return nil
}

func (s *PostgresStore) ListResults(ctx context.Context, requestID id.RequestID) ([]models.Result, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT check_type, check_name, score, confidence, passed, message, evidence
		FROM verification_results WHERE request_id = $1 ORDER BY position
	`, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []models.Result
	for rows.Next() {
		var r models.Result
		var checkType string
		var evidence []byte
		if err := rows.Scan(&checkType, &r.CheckName, &r.Score, &r.Confidence, &r.Passed, &r.Message, &evidence); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.CheckType = models.CheckType(checkType)
		if err := unmarshalOptional(evidence, &r.Evidence); err != nil {
			return nil, fmt.Errorf("decode evidence of %s: %w", r.CheckName, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*models.Request, error) {
	var (
		req        models.Request
		reqID      uuid.UUID
		status     string
		data       []byte
		breakdown  []byte
		score      sql.NullFloat64
		approved   sql.NullBool
		startedAt  sql.NullTime
		completed  sql.NullTime
		reviewedAt sql.NullTime
	)
	if err := row.Scan(&reqID, &req.CustomerID, &req.AccountReference, &req.DocumentSet, &data,
		&req.Priority, &status, &score, &approved, &req.DecisionReason, &req.Escalated,
		&req.PolicyVersion, &breakdown, &req.CreatedAt, &startedAt, &completed, &req.ReviewedBy,
		&reviewedAt, &req.ReviewNotes); err != nil {
		return nil, err
	}
	req.ID, req.Status = id.RequestID(reqID), models.Status(status)
	if err := json.Unmarshal(data, &req.CustomerData); err != nil {
		return nil, fmt.Errorf("decode customer data: %w", err)
	}
	if err := unmarshalOptional(breakdown, &req.Breakdown); err != nil {
		return nil, fmt.Errorf("decode breakdown: %w", err)
	}
	if score.Valid {
		req.OverallScore = &score.Float64
	}
	if approved.Valid {
		req.Approved = &approved.Bool
	}
	req.StartedAt = timePtr(startedAt)
	req.CompletedAt = timePtr(completed)
	req.ReviewedAt = timePtr(reviewedAt)
	return &req, nil
}

func scanDiscrepancy(row scanner) (*models.Discrepancy, error) {
	var (
		d          models.Discrepancy
		discID     uuid.UUID
		reqID      uuid.UUID
		fieldType  string
		severity   string
		resolution string
		resolvedAt sql.NullTime
	)
	if err := row.Scan(&discID, &reqID, &d.Field, &fieldType, &d.EnteredValue, &d.DocumentValue,
		&severity, &d.SimilarityScore, &d.Description, &resolution, &d.ResolvedBy, &resolvedAt,
		&d.ResolutionNote); err != nil {
		return nil, err
	}
	d.ID, d.RequestID = id.DiscrepancyID(discID), id.RequestID(reqID)
	d.FieldType, d.Severity, d.Resolution = models.FieldType(fieldType), models.Severity(severity), models.Resolution(resolution)
	d.ResolvedAt = timePtr(resolvedAt)
	return &d, nil
}

func encodeRequest(req *models.Request) (data, breakdown []byte, err error) {
	data, err = json.Marshal(nonNilMap(req.CustomerData))
	if err != nil {
		return nil, nil, fmt.Errorf("encode customer data: %w", err)
	}
	breakdown, err = marshalOptional(req.Breakdown)
	if err != nil {
		return nil, nil, fmt.Errorf("encode breakdown: %w", err)
	}
	return data, breakdown, nil
}

// marshalOptional returns nil for nil values so the column stays NULL.
func marshalOptional[T any](v T) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	return raw, nil
}

func unmarshalOptional(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func nonNilMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return map[string]V{}
	}
	return m
}

func resolutionOf(d models.Discrepancy) string {
	if d.Resolution == "" {
		return string(models.ResolutionUnresolved)
	}
	return string(d.Resolution)
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func requireRow(res sql.Result, what string, sentinelErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, sentinelErr)
	}
	return nil
}

const uniqueViolation = "23505"

// translate maps unique violations onto sentinel.ErrConflict. Output rows are
// written once per request.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", sentinel.ErrConflict, pgErr.Message)
	}
	return err
}
