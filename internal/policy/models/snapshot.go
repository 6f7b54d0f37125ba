package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// Snapshot is an immutable, versioned view of the active rules. A processing pass
// binds one snapshot and never sees later policy changes.
type Snapshot struct {
	Version string    `json:"version"`
	TakenAt time.Time `json:"taken_at"`
	Rules   []Rule    `json:"rules"`
}

// NewSnapshot flattens the active rules of the active policies and orders them
// blocking first, then by weight descending, then by name. The version is a content
// hash, so equal rule sets share a version regardless of when they were taken.
func NewSnapshot(policies []Policy, takenAt time.Time) *Snapshot {
	var rules []Rule
	for _, p := range policies {
		if !p.Active {
			continue
		}
		for _, r := range p.Rules {
			if !r.Active {
				continue
			}
			r.PolicyCode = p.Code
			if r.Category == "" {
				r.Category = p.Category
			}
			if len(r.DocumentSets) == 0 {
				r.DocumentSets = p.DocumentSets
			}
			rules = append(rules, r)
		}
	}
	SortRules(rules)
	return &Snapshot{
		Version: version(rules),
		TakenAt: takenAt,
		Rules:   rules,
	}
}

// SortRules orders rules for evaluation and reporting.
func SortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Blocking != b.Blocking {
			return a.Blocking
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Code < b.Code
	})
}

// RulesFor returns the rules in force for a document set, in snapshot order.
func (s *Snapshot) RulesFor(documentSet string) []Rule {
	if s == nil {
		return nil
	}
	out := make([]Rule, 0, len(s.Rules))
	for _, r := range s.Rules {
		if r.AppliesTo(documentSet) {
			out = append(out, r)
		}
	}
	return out
}

func version(rules []Rule) string {
	specs := make([]RuleSpec, len(rules))
	for i, r := range rules {
		specs[i] = r.Spec()
	}
	body, err := json.Marshal(specs)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:8])
}
