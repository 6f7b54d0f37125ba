// Package config loads service settings from the environment and the engine
// tuning from a YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"docverify/internal/comparison"
	"docverify/internal/decision"
	"docverify/internal/discrepancy"
	"docverify/internal/scoring"
	platformstrings "docverify/pkg/platform/strings"
)

// Config is the full runtime configuration.
type Config struct {
	Server   Server
	Database Database
	Redis    RedisConfig
	Kafka    Kafka
	Policy   Policy
	Engine   Engine
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	LogLevel        string
	JWTSigningKey   string
	ShutdownTimeout time.Duration
}

// Database is the PostgreSQL connection. An empty URL selects the in-memory stores.
type Database struct {
	URL          string
	MaxOpenConns int
}

// RedisConfig configures the policy snapshot cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SnapshotTTL  time.Duration
}

// Kafka configures the audit outbox relay. No brokers disables it.
type Kafka struct {
	Brokers           []string
	AuditTopic        string
	Partitions        int32
	ReplicationFactor int16
	RelayInterval     time.Duration
	RelayBatchSize    int
}

// Policy configures where compliance rules come from and how often they reload.
type Policy struct {
	SeedFile        string
	RefreshSchedule string
}

// Engine is the tuning surface of the scoring pipeline, normally loaded from YAML.
type Engine struct {
	Comparison  comparison.Config          `yaml:"comparison"`
	Severity    discrepancy.SeverityPolicy `yaml:"severity"`
	Scoring     scoring.Config             `yaml:"scoring"`
	Decision    decision.Config            `yaml:"decision"`
	ProcessTime time.Duration              `yaml:"process_timeout"`
}

// DefaultEngine returns the built-in tuning.
func DefaultEngine() Engine {
	return Engine{
		Comparison:  comparison.DefaultConfig(),
		Severity:    discrepancy.DefaultSeverityPolicy(),
		Scoring:     scoring.DefaultConfig(),
		Decision:    decision.DefaultConfig(),
		ProcessTime: 30 * time.Second,
	}
}

// Validate checks every engine section. Any failure is fatal at startup.
func (e Engine) Validate() error {
	var errs []error
	if err := e.Comparison.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("comparison: %w", err))
	}
	if err := e.Severity.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("severity: %w", err))
	}
	if err := e.Scoring.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring: %w", err))
	}
	if err := e.Decision.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("decision: %w", err))
	}
	if e.ProcessTime <= 0 {
		errs = append(errs, errors.New("process_timeout must be positive"))
	}
	return errors.Join(errs...)
}

// LoadEngine decodes a YAML file over the defaults. Keys missing from the file keep
// their default value; map entries are merged.
func LoadEngine(path string) (Engine, error) {
	eng := DefaultEngine()
	if path == "" {
		return eng, eng.Validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Engine{}, fmt.Errorf("read engine config: %w", err)
	}
	if err := ParseEngine(raw, &eng); err != nil {
		return Engine{}, err
	}
	return eng, nil
}

// ParseEngine decodes raw YAML into eng and validates the result.
func ParseEngine(raw []byte, eng *Engine) error {
	if err := yaml.Unmarshal(raw, eng); err != nil {
		return fmt.Errorf("parse engine config: %w", err)
	}
	if err := eng.Validate(); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	return nil
}

// Load reads .env (if present), the environment and the engine file named by
// DOCVERIFY_ENGINE_CONFIG.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := FromEnv()
	eng, err := LoadEngine(getEnv("DOCVERIFY_ENGINE_CONFIG", ""))
	if err != nil {
		return nil, err
	}
	cfg.Engine = eng
	if d := getDuration("DOCVERIFY_PROCESS_TIMEOUT", 0); d > 0 {
		cfg.Engine.ProcessTime = d
	}
	return &cfg, nil
}

// FromEnv builds everything except the engine tuning from environment variables.
func FromEnv() Config {
	signingKey := getEnv("DOCVERIFY_JWT_SIGNING_KEY", "")
	if signingKey == "" {
		// development default, must be overridden in production
		signingKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Server: Server{
			Addr:            getEnv("DOCVERIFY_ADDR", ":8080"),
			Environment:     getEnv("DOCVERIFY_ENV", "development"),
			LogLevel:        getEnv("DOCVERIFY_LOG_LEVEL", "info"),
			JWTSigningKey:   signingKey,
			ShutdownTimeout: getDuration("DOCVERIFY_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: Database{
			URL:          getEnv("DOCVERIFY_DATABASE_URL", ""),
			MaxOpenConns: getInt("DOCVERIFY_DATABASE_MAX_OPEN_CONNS", 10),
		},
		Redis: RedisConfig{
			URL:          getEnv("DOCVERIFY_REDIS_URL", ""),
			PoolSize:     getInt("DOCVERIFY_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("DOCVERIFY_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("DOCVERIFY_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("DOCVERIFY_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("DOCVERIFY_REDIS_WRITE_TIMEOUT", 3*time.Second),
			SnapshotTTL:  getDuration("DOCVERIFY_REDIS_SNAPSHOT_TTL", 10*time.Minute),
		},
		Kafka: Kafka{
			Brokers:           platformstrings.SplitList(getEnv("DOCVERIFY_KAFKA_BROKERS", "")),
			AuditTopic:        getEnv("DOCVERIFY_KAFKA_AUDIT_TOPIC", "docverify.audit"),
			Partitions:        int32(getInt("DOCVERIFY_KAFKA_PARTITIONS", 3)),
			ReplicationFactor: int16(getInt("DOCVERIFY_KAFKA_REPLICATION_FACTOR", 1)),
			RelayInterval:     getDuration("DOCVERIFY_OUTBOX_INTERVAL", time.Second),
			RelayBatchSize:    getInt("DOCVERIFY_OUTBOX_BATCH_SIZE", 100),
		},
		Policy: Policy{
			SeedFile:        getEnv("DOCVERIFY_POLICY_SEED", ""),
			RefreshSchedule: getEnv("DOCVERIFY_POLICY_REFRESH", "@every 5m"),
		},
		Engine: DefaultEngine(),
	}
}

// IsProduction reports whether the service runs with production logging.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
		return fallback
	}
	return d
}
