package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"

	jwttoken "docverify/internal/jwt_token"
	"docverify/internal/platform/config"
	"docverify/internal/platform/httpserver"
	"docverify/internal/platform/logger"
	"docverify/internal/platform/metrics"
	"docverify/internal/platform/middleware"
	platformredis "docverify/internal/platform/redis"
	policycache "docverify/internal/policy/cache"
	policyhandler "docverify/internal/policy/handler"
	policymetrics "docverify/internal/policy/metrics"
	policymodels "docverify/internal/policy/models"
	"docverify/internal/policy/seed"
	policyservice "docverify/internal/policy/service"
	policystore "docverify/internal/policy/store"
	policymemory "docverify/internal/policy/store/memory"
	policypostgres "docverify/internal/policy/store/postgres"
	verificationhandler "docverify/internal/verification/handler"
	verificationmetrics "docverify/internal/verification/metrics"
	verificationservice "docverify/internal/verification/service"
	verificationstore "docverify/internal/verification/store"
	verificationmemory "docverify/internal/verification/store/memory"
	verificationpostgres "docverify/internal/verification/store/postgres"
	"docverify/migrations"
	audit "docverify/pkg/platform/audit"
	"docverify/pkg/platform/audit/kafka"
	"docverify/pkg/platform/audit/publishers/compliance"
	auditmemory "docverify/pkg/platform/audit/store/memory"
	auditpostgres "docverify/pkg/platform/audit/store/postgres"
	"docverify/pkg/platform/audit/worker"
	txcontext "docverify/pkg/platform/tx"
)

// stores groups the persistence chosen at startup.
type stores struct {
	db           *sql.DB
	verification verificationstore.Store
	policies     policystore.Store
	audit        audit.Store
	outbox       *auditpostgres.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.Environment, cfg.Server.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	reg := metrics.New()

	st, err := openStores(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}

	auditor := compliance.New(st.audit,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics(reg.Registry)),
	)

	providerOpts := []policyservice.Option{
		policyservice.WithAuditPublisher(auditor),
		policyservice.WithMetrics(policymetrics.New(reg.Registry)),
		policyservice.WithLogger(log),
	}
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		// the cache is an optimisation, the store stays authoritative
		log.Warn("policy cache disabled", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		providerOpts = append(providerOpts, policyservice.WithCache(policycache.NewRedisCache(redisClient, cfg.Redis.SnapshotTTL)))
	}

	if err := seedPolicies(ctx, cfg.Policy, st.policies); err != nil {
		return err
	}
	provider := policyservice.New(st.policies, providerOpts...)
	snap, err := provider.Warm(ctx)
	if err != nil {
		return err
	}
	log.Info("policy snapshot loaded", "version", snap.Version, "rules", len(snap.Rules))

	refresher := policyservice.NewRefresher(provider, log)
	if err := refresher.Start(ctx, cfg.Policy.RefreshSchedule); err != nil {
		return err
	}
	defer refresher.Stop(context.Background())

	pipeline, err := verificationservice.NewPipeline(cfg.Engine)
	if err != nil {
		return err
	}
	verifications := verificationservice.New(st.verification, provider, auditor, pipeline,
		verificationservice.WithMetrics(verificationmetrics.New(reg.Registry)),
		verificationservice.WithLogger(log),
	)

	relay, producer, err := startRelay(ctx, cfg.Kafka, st, log)
	if err != nil {
		return err
	}
	if relay != nil {
		defer producer.Close()
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit relay stopped", "error", err)
			}
		}()
	}

	jwtValidator := jwttoken.NewValidator(jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "docverify", "docverify-api"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.AccessLog(log, reg))
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", reg.Handler())
	r.Get("/health", health(st.db, redisClient))
	verificationhandler.New(verifications, log, jwtValidator).Register(r)
	policyhandler.New(provider, log, jwtValidator).Register(r)

	srv := httpserver.New(cfg.Server.Addr, r)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down server", "signal", sig.String())
	case err := <-serveErr:
		return err
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// openStores picks PostgreSQL when a database URL is configured, otherwise the
// in-memory stores.
func openStores(ctx context.Context, cfg config.Database, log *slog.Logger) (*stores, error) {
	if cfg.URL == "" {
		log.Warn("no database configured, using in-memory stores")
		return &stores{
			verification: verificationmemory.New(),
			policies:     policymemory.New(),
			audit:        auditmemory.NewInMemoryStore(),
		}, nil
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrations.Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	outbox := auditpostgres.New(db)
	return &stores{
		db:           db,
		verification: verificationpostgres.New(db),
		policies:     policypostgres.New(db),
		audit:        outbox,
		outbox:       outbox,
	}, nil
}

func seedPolicies(ctx context.Context, cfg config.Policy, w seed.Writer) error {
	var (
		policies []policymodels.Policy
		err      error
	)
	if cfg.SeedFile != "" {
		policies, err = seed.LoadFile(cfg.SeedFile)
	} else {
		policies, err = seed.Default()
	}
	if err != nil {
		return err
	}
	return seed.Apply(ctx, w, policies, time.Now().UTC())
}

// startRelay wires the outbox to Kafka. It returns nil when either side is missing.
func startRelay(ctx context.Context, cfg config.Kafka, st *stores, log *slog.Logger) (*worker.Worker, *kafka.Producer, error) {
	if len(cfg.Brokers) == 0 || st.outbox == nil {
		log.Info("audit relay disabled")
		return nil, nil, nil
	}
	producer, err := kafka.NewProducer(cfg.Brokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	if err := producer.EnsureTopic(ctx, cfg.Partitions, cfg.ReplicationFactor); err != nil {
		producer.Close()
		return nil, nil, err
	}
	runInTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return txcontext.Run(ctx, st.db, fn)
	}
	relay := worker.New(st.outbox, producer, runInTx,
		worker.WithLogger(log),
		worker.WithBatchSize(cfg.RelayBatchSize),
		worker.WithInterval(cfg.RelayInterval),
	)
	return relay, producer, nil
}

func health(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
