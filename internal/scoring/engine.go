// Package scoring folds verification results into one weighted overall score.
package scoring

import (
	"math"
	"sort"

	"docverify/internal/verification/models"
	dErrors "docverify/pkg/domain-errors"
)

const weightTolerance = 1e-6

// Config holds the per-check-type weights. Optional lists, per document set, the
// check types whose weight is redistributed over the present types when absent.
type Config struct {
	Weights  map[models.CheckType]float64  `yaml:"weights"`
	Optional map[string][]models.CheckType `yaml:"optional"`
}

// DefaultConfig returns the production weights.
func DefaultConfig() Config {
	return Config{
		Weights: map[models.CheckType]float64{
			models.CheckIdentity:   0.35,
			models.CheckDocument:   0.20,
			models.CheckCompliance: 0.30,
			models.CheckPolicy:     0.10,
			models.CheckAddress:    0.05,
		},
		Optional: map[string][]models.CheckType{},
	}
}

// Validate requires a non-negative weight for every check type, summing to 1.
func (c Config) Validate() error {
	var sum float64
	for _, t := range models.CheckTypes {
		w, ok := c.Weights[t]
		if !ok {
			return dErrors.Newf(dErrors.CodeConfiguration, "scoring weight for %s is missing", t)
		}
		if w < 0 || math.IsNaN(w) {
			return dErrors.Newf(dErrors.CodeConfiguration, "scoring weight for %s must not be negative", t)
		}
		sum += w
	}
	for t := range c.Weights {
		if !t.IsValid() {
			return dErrors.Newf(dErrors.CodeConfiguration, "unknown check type %q in scoring weights", t)
		}
	}
	if math.Abs(sum-1) > weightTolerance {
		return dErrors.Newf(dErrors.CodeConfiguration, "scoring weights sum to %.6f, expected 1.0", sum)
	}
	for ds, types := range c.Optional {
		for _, t := range types {
			if !t.IsValid() {
				return dErrors.Newf(dErrors.CodeConfiguration, "unknown optional check type %q for %s", t, ds)
			}
		}
	}
	return nil
}

// Engine computes overall scores. It is pure and safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine rejects an invalid configuration.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Input is the scoring view of one request.
type Input struct {
	DocumentSet string
	Results     []models.Result
	Compliance  []models.ComplianceCheck
}

type entry struct {
	score  float64
	weight float64
}

// Score returns the weighted overall score, rounded half up to one decimal. The
// result depends only on the multiset of inputs, never on their order.
func (e *Engine) Score(in Input) (*models.ScoreBreakdown, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	entries := make(map[models.CheckType][]entry, len(models.CheckTypes))
	for _, r := range in.Results {
		entries[r.CheckType] = append(entries[r.CheckType], entry{score: r.Score, weight: 1})
	}
	for _, c := range in.Compliance {
		entries[c.CheckType] = append(entries[c.CheckType], entry{score: c.Score, weight: c.Weight})
	}

	optional := make(map[models.CheckType]bool)
	for _, t := range e.cfg.Optional[in.DocumentSet] {
		optional[t] = true
	}

	breakdown := &models.ScoreBreakdown{Types: make([]models.TypeScore, 0, len(models.CheckTypes))}
	var presentWeight, redistributed float64
	for _, t := range models.CheckTypes {
		ts := models.TypeScore{CheckType: t, Weight: e.cfg.Weights[t], Count: len(entries[t])}
		if ts.Count > 0 {
			ts.Present = true
			ts.Average = weightedMean(entries[t])
			presentWeight += ts.Weight
		} else if optional[t] {
			redistributed += ts.Weight
		}
		breakdown.Types = append(breakdown.Types, ts)
	}

	if presentWeight == 0 {
		return breakdown, nil
	}

	scale := (presentWeight + redistributed) / presentWeight
	var raw float64
	for i := range breakdown.Types {
		ts := &breakdown.Types[i]
		if !ts.Present {
			continue
		}
		ts.EffectiveWeight = ts.Weight * scale
		raw += ts.EffectiveWeight * ts.Average
	}

	breakdown.Raw = raw
	breakdown.Overall = RoundHalfUp1(raw)
	return breakdown, nil
}

// weightedMean sorts entries before summing so the float result is independent of
// input order. A type whose weights are all zero falls back to the plain mean.
func weightedMean(es []entry) float64 {
	sorted := append([]entry(nil), es...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].score != sorted[j].score {
			return sorted[i].score < sorted[j].score
		}
		return sorted[i].weight < sorted[j].weight
	})

	var sum, total float64
	for _, en := range sorted {
		sum += en.score * en.weight
		total += en.weight
	}
	if total == 0 {
		for _, en := range sorted {
			sum += en.score
		}
		return sum / float64(len(sorted))
	}
	return sum / total
}

// RoundHalfUp1 rounds to one decimal with ties going up. The value is first
// snapped to 1e-6 so binary noise such as 84.94999999 rounds like 84.95.
// Anything within 5e-7 below a tie is snapped too: a raw 84.9499996 reports
// 85.0 and so meets an AutoApprove threshold of 85, while 84.9499994 reports
// 84.9. Callers compare thresholds against the rounded value only.
func RoundHalfUp1(x float64) float64 {
	n := int64(math.Round(x * 1e6))
	var tenths int64
	if n >= 0 {
		tenths = (n + 50_000) / 100_000
	} else {
		tenths = -((-n + 49_999) / 100_000)
	}
	return float64(tenths) / 10
}
