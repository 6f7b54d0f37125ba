// Package seed loads compliance policies from YAML and writes them to a store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"docverify/internal/policy/models"
	dErrors "docverify/pkg/domain-errors"
)

//go:embed default.yaml
var defaultSeed []byte

// Writer is the part of the policy store the seeder needs.
type Writer interface {
	UpsertPolicy(ctx context.Context, p models.Policy) error
}

type file struct {
	Policies []models.Policy `yaml:"policies"`
}

// Default returns the built-in policies.
func Default() ([]models.Policy, error) {
	return Parse(defaultSeed)
}

// LoadFile reads policies from path, or the built-in set when path is empty.
func LoadFile(path string) ([]models.Policy, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy seed: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a seed document. Rule conditions are decoded by
// models.Rule, so a malformed rule fails the whole file.
func Parse(raw []byte) ([]models.Policy, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid policy seed")
	}
	seen := make(map[string]bool)
	for i, p := range f.Policies {
		if p.Code == "" {
			return nil, dErrors.Newf(dErrors.CodeValidation, "policy #%d has no code", i+1)
		}
		if seen[p.Code] {
			return nil, dErrors.Newf(dErrors.CodeValidation, "duplicate policy %s", p.Code)
		}
		seen[p.Code] = true
		if !p.Category.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeValidation, "policy %s: unknown category %q", p.Code, p.Category)
		}
		ruleCodes := make(map[string]bool)
		for j := range p.Rules {
			if ruleCodes[p.Rules[j].Code] {
				return nil, dErrors.Newf(dErrors.CodeValidation, "policy %s: duplicate rule %s", p.Code, p.Rules[j].Code)
			}
			ruleCodes[p.Rules[j].Code] = true
			f.Policies[i].Rules[j].PolicyCode = p.Code
		}
	}
	return f.Policies, nil
}

// Apply upserts every policy, stamping UpdatedAt with now.
func Apply(ctx context.Context, w Writer, policies []models.Policy, now time.Time) error {
	for _, p := range policies {
		p.UpdatedAt = now
		if err := w.UpsertPolicy(ctx, p); err != nil {
			return fmt.Errorf("seed policy %s: %w", p.Code, err)
		}
	}
	return nil
}
