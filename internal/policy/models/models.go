package models

import (
	"time"
)

// Category classifies a compliance policy.
type Category string

const (
	CategoryKYC           Category = "kyc"
	CategoryAML           Category = "aml"
	CategoryInstitutional Category = "institutional"
	CategoryRegulatory    Category = "regulatory"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryKYC, CategoryAML, CategoryInstitutional, CategoryRegulatory:
		return true
	}
	return false
}

// Policy groups rules that apply to a set of document sets (account types).
// An empty DocumentSets applies the policy to every document set.
type Policy struct {
	Code         string    `json:"code" yaml:"code"`
	Name         string    `json:"name" yaml:"name"`
	Category     Category  `json:"category" yaml:"category"`
	DocumentSets []string  `json:"document_sets,omitempty" yaml:"document_sets,omitempty"`
	Active       bool      `json:"active" yaml:"active"`
	Rules        []Rule    `json:"rules" yaml:"rules"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}

// Rule is one compliance check. Condition is one of the Condition variants.
type Rule struct {
	Code         string
	Name         string
	PolicyCode   string
	Category     Category
	DocumentSets []string
	Condition    Condition
	Weight       float64
	Blocking     bool
	ErrorMessage string
	Active       bool
}

// AppliesTo reports whether the rule is in force for a document set.
func (r Rule) AppliesTo(documentSet string) bool {
	if len(r.DocumentSets) == 0 {
		return true
	}
	for _, ds := range r.DocumentSets {
		if ds == documentSet {
			return true
		}
	}
	return false
}
