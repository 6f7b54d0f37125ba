package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/comparison"
	"docverify/internal/verification/models"
	dErrors "docverify/pkg/domain-errors"
)

func TestDefaultEngineIsValid(t *testing.T) {
	require.NoError(t, DefaultEngine().Validate())
}

func TestParseEngine(t *testing.T) {
	t.Run("overrides keep unspecified defaults", func(t *testing.T) {
		eng := DefaultEngine()
		raw := []byte(`
comparison:
  mode: best_of
  fields:
    middle_name:
      type: name
      optional: true
decision:
  auto_approve: 90
  review: 75
process_timeout: 45s
`)
		require.NoError(t, ParseEngine(raw, &eng))

		assert.Equal(t, comparison.ModeBestOf, eng.Comparison.Mode)
		assert.Equal(t, 90.0, eng.Comparison.HighConfidence)
		assert.True(t, eng.Comparison.Fields["middle_name"].Optional)
		assert.Equal(t, 90.0, eng.Decision.AutoApprove)
		assert.Equal(t, 75.0, eng.Decision.Review)
		assert.Equal(t, 50.0, eng.Decision.AutoReject)
		assert.Equal(t, 45*time.Second, eng.ProcessTime)
		assert.InDelta(t, 0.35, eng.Scoring.Weights[models.CheckIdentity], 1e-9)
	})

	t.Run("weights that do not sum to one are fatal", func(t *testing.T) {
		eng := DefaultEngine()
		raw := []byte(`
scoring:
  weights:
    identity: 0.5
`)
		err := ParseEngine(raw, &eng)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	})

	t.Run("inverted thresholds are fatal", func(t *testing.T) {
		eng := DefaultEngine()
		err := ParseEngine([]byte("decision:\n  auto_approve: 60\n"), &eng)
		require.Error(t, err)
		assert.ErrorContains(t, err, "decision")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		eng := DefaultEngine()
		assert.Error(t, ParseEngine([]byte("comparison: [\n"), &eng))
	})
}

func TestLoadEngine(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		eng, err := LoadEngine("")
		require.NoError(t, err)
		assert.Equal(t, DefaultEngine().Decision, eng.Decision)
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "engine.yaml")
		require.NoError(t, os.WriteFile(path, []byte("severity:\n  critical_below: 40\n"), 0o600))

		eng, err := LoadEngine(path)
		require.NoError(t, err)
		assert.Equal(t, 40.0, eng.Severity.CriticalBelow)
		assert.Equal(t, 80.0, eng.Severity.AcceptAt)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadEngine(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DOCVERIFY_ADDR", ":9090")
	t.Setenv("DOCVERIFY_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DOCVERIFY_OUTBOX_BATCH_SIZE", "not-a-number")
	t.Setenv("DOCVERIFY_REDIS_SNAPSHOT_TTL", "90s")

	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 100, cfg.Kafka.RelayBatchSize)
	assert.Equal(t, 90*time.Second, cfg.Redis.SnapshotTTL)
	assert.NotEmpty(t, cfg.Server.JWTSigningKey)
	assert.False(t, cfg.Server.IsProduction())
}
