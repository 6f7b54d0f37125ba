package scoring_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/scoring"
	"docverify/internal/verification/models"
	dErrors "docverify/pkg/domain-errors"
)

func sampleInput() scoring.Input {
	return scoring.Input{
		DocumentSet: "savings",
		Results: []models.Result{
			{CheckType: models.CheckIdentity, CheckName: "full_name", Score: 100},
			{CheckType: models.CheckIdentity, CheckName: "id_number", Score: 80},
			{CheckType: models.CheckDocument, CheckName: "national_id", Score: 70},
		},
		Compliance: []models.ComplianceCheck{
			{RuleCode: "a", CheckType: models.CheckCompliance, Score: 100, Weight: 2},
			{RuleCode: "b", CheckType: models.CheckCompliance, Score: 40, Weight: 1},
			{RuleCode: "c", CheckType: models.CheckPolicy, Score: 100, Weight: 1},
		},
	}
}

func TestScore_WeightedSum(t *testing.T) {
	engine, err := scoring.NewEngine(scoring.DefaultConfig())
	require.NoError(t, err)

	got, err := engine.Score(sampleInput())
	require.NoError(t, err)

	// .35*90 + .20*70 + .30*80 + .10*100 + .05*0
	assert.Equal(t, 79.5, got.Overall)
	require.Len(t, got.Types, 5)
	assert.Equal(t, models.CheckIdentity, got.Types[0].CheckType)
	assert.InDelta(t, 90.0, got.Types[0].Average, 1e-9)
	assert.InDelta(t, 80.0, got.Types[2].Average, 1e-9, "compliance is rule-weight weighted")
	assert.False(t, got.Types[4].Present)
	assert.Equal(t, 0.0, got.Types[4].EffectiveWeight)
}

func TestScore_OptionalTypeRedistributesWeight(t *testing.T) {
	cfg := scoring.DefaultConfig()
	cfg.Optional = map[string][]models.CheckType{"savings": {models.CheckAddress}}
	engine, err := scoring.NewEngine(cfg)
	require.NoError(t, err)

	got, err := engine.Score(sampleInput())
	require.NoError(t, err)

	// 79.5 / 0.95
	assert.Equal(t, 83.7, got.Overall)
	assert.InDelta(t, 0.35/0.95, got.Types[0].EffectiveWeight, 1e-9)

	other := sampleInput()
	other.DocumentSet = "business"
	got, err = engine.Score(other)
	require.NoError(t, err)
	assert.Equal(t, 79.5, got.Overall, "optional list is per document set")
}

func TestScore_Deterministic(t *testing.T) {
	engine, err := scoring.NewEngine(scoring.DefaultConfig())
	require.NoError(t, err)

	in := sampleInput()
	in.Results = append(in.Results,
		models.Result{CheckType: models.CheckIdentity, Score: 33.3},
		models.Result{CheckType: models.CheckIdentity, Score: 66.7},
		models.Result{CheckType: models.CheckAddress, Score: 12.34},
	)
	want, err := engine.Score(in)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := in
		shuffled.Results = append([]models.Result(nil), in.Results...)
		shuffled.Compliance = append([]models.ComplianceCheck(nil), in.Compliance...)
		rng.Shuffle(len(shuffled.Results), func(a, b int) {
			shuffled.Results[a], shuffled.Results[b] = shuffled.Results[b], shuffled.Results[a]
		})
		rng.Shuffle(len(shuffled.Compliance), func(a, b int) {
			shuffled.Compliance[a], shuffled.Compliance[b] = shuffled.Compliance[b], shuffled.Compliance[a]
		})

		got, err := engine.Score(shuffled)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestScore_NothingPresent(t *testing.T) {
	engine, err := scoring.NewEngine(scoring.DefaultConfig())
	require.NoError(t, err)

	got, err := engine.Score(scoring.Input{DocumentSet: "savings"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Overall)
}

func TestScore_ZeroRuleWeightsFallBackToMean(t *testing.T) {
	engine, err := scoring.NewEngine(scoring.DefaultConfig())
	require.NoError(t, err)

	got, err := engine.Score(scoring.Input{Compliance: []models.ComplianceCheck{
		{CheckType: models.CheckCompliance, Score: 100},
		{CheckType: models.CheckCompliance, Score: 50},
	}})
	require.NoError(t, err)
	assert.InDelta(t, 75.0, got.Types[2].Average, 1e-9)
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*scoring.Config)
	}{
		{"sum below one", func(c *scoring.Config) { c.Weights[models.CheckIdentity] = 0.25 }},
		{"sum above one", func(c *scoring.Config) { c.Weights[models.CheckAddress] = 0.06 }},
		{"missing type", func(c *scoring.Config) { delete(c.Weights, models.CheckPolicy) }},
		{"negative weight", func(c *scoring.Config) {
			c.Weights[models.CheckAddress] = -0.05
			c.Weights[models.CheckIdentity] = 0.45
		}},
		{"unknown type", func(c *scoring.Config) { c.Weights["liveness"] = 0 }},
		{"unknown optional type", func(c *scoring.Config) {
			c.Optional = map[string][]models.CheckType{"savings": {"liveness"}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := scoring.DefaultConfig()
			tc.mutate(&cfg)
			_, err := scoring.NewEngine(cfg)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
		})
	}

	t.Run("tolerates float noise", func(t *testing.T) {
		cfg := scoring.DefaultConfig()
		cfg.Weights[models.CheckIdentity] = 0.35 + 1e-9
		_, err := scoring.NewEngine(cfg)
		assert.NoError(t, err)
	})
}

func TestScore_RevalidatesBeforeScoring(t *testing.T) {
	cfg := scoring.DefaultConfig()
	engine, err := scoring.NewEngine(cfg)
	require.NoError(t, err)

	cfg.Weights[models.CheckIdentity] = 0.9

	got, err := engine.Score(sampleInput())
	assert.Nil(t, got)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}

func TestRoundHalfUp1(t *testing.T) {
	cases := map[float64]float64{
		84.95:       85.0,
		84.94:       84.9,
		84.94999999: 85.0,
		84.9499996:  85.0,
		84.9499994:  84.9,
		0.05:        0.1,
		0.04:        0.0,
		70:          70.0,
		99.99:       100.0,
	}
	for in, want := range cases {
		assert.Equal(t, want, scoring.RoundHalfUp1(in), "RoundHalfUp1(%v)", in)
	}
}
