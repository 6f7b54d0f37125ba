package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"docverify/internal/policy/models"
	"docverify/internal/policy/store"
	"docverify/pkg/platform/sentinel"
	txcontext "docverify/pkg/platform/tx"
)

// PostgresStore persists policies in compliance_policies and compliance_rules.
// Conditions are stored as their JSON wire form.
type PostgresStore struct {
	db *sql.DB
}

var _ store.Store = (*PostgresStore)(nil)

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListPolicies(ctx context.Context) ([]models.Policy, error) {
	exec := txcontext.ExecutorFrom(ctx, s.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT code, name, category, document_sets, active, updated_at
		FROM compliance_policies
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var policies []models.Policy
	index := make(map[string]int)
	for rows.Next() {
		var p models.Policy
		var docSets []string
		if err := rows.Scan(&p.Code, &p.Name, &p.Category, pq.Array(&docSets), &p.Active, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		p.DocumentSets = docSets
		index[p.Code] = len(policies)
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}

	ruleRows, err := exec.QueryContext(ctx, `
		SELECT code, policy_code, name, condition, weight, blocking, error_message, active
		FROM compliance_rules
		ORDER BY policy_code, code
	`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer ruleRows.Close()

	for ruleRows.Next() {
		var spec models.RuleSpec
		var condition []byte
		var weight float64
		var active bool
		if err := ruleRows.Scan(&spec.Code, &spec.PolicyCode, &spec.Name, &condition, &weight,
			&spec.Blocking, &spec.ErrorMessage, &active); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		if err := json.Unmarshal(condition, &spec.Condition); err != nil {
			return nil, fmt.Errorf("rule %s: decode condition: %w", spec.Code, err)
		}
		spec.Weight, spec.Active = &weight, &active
		rule, err := spec.Rule()
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", spec.Code, err)
		}
		i, ok := index[rule.PolicyCode]
		if !ok {
			continue
		}
		policies[i].Rules = append(policies[i].Rules, rule)
	}
	if err := ruleRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return policies, nil
}

// UpsertPolicy replaces the policy row and all of its rules in one transaction.
func (s *PostgresStore) UpsertPolicy(ctx context.Context, p models.Policy) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		docSets := p.DocumentSets
		if docSets == nil {
			docSets = []string{}
		}
		_, err := exec.ExecContext(ctx, `
			INSERT INTO compliance_policies (code, name, category, document_sets, active, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (code) DO UPDATE SET
				name = EXCLUDED.name,
				category = EXCLUDED.category,
				document_sets = EXCLUDED.document_sets,
				active = EXCLUDED.active,
				updated_at = EXCLUDED.updated_at
		`, p.Code, p.Name, p.Category, pq.Array(docSets), p.Active, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upsert policy %s: %w", p.Code, err)
		}

		if _, err := exec.ExecContext(ctx, `DELETE FROM compliance_rules WHERE policy_code = $1`, p.Code); err != nil {
			return fmt.Errorf("clear rules of %s: %w", p.Code, err)
		}
		for _, r := range p.Rules {
			condition, err := json.Marshal(models.EncodeCondition(r.Condition))
			if err != nil {
				return fmt.Errorf("encode condition of %s: %w", r.Code, err)
			}
			_, err = exec.ExecContext(ctx, `
				INSERT INTO compliance_rules (code, policy_code, name, condition, weight, blocking, error_message, active)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, r.Code, p.Code, r.Name, condition, r.Weight, r.Blocking, r.ErrorMessage, r.Active)
			if err != nil {
				return fmt.Errorf("insert rule %s: %w", r.Code, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) SetActive(ctx context.Context, code string, active bool) error {
	exec := txcontext.ExecutorFrom(ctx, s.db)
	res, err := exec.ExecContext(ctx, `UPDATE compliance_policies SET active = $2 WHERE code = $1`, code, active)
	if err != nil {
		return fmt.Errorf("set policy %s active: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set policy %s active: %w", code, err)
	}
	if n == 0 {
		return fmt.Errorf("policy %s: %w", code, sentinel.ErrNotFound)
	}
	return nil
}
