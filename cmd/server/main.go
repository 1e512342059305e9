package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"geopulse/internal/audit"
	"geopulse/internal/jobs"
	jwttoken "geopulse/internal/jwt_token"
	"geopulse/internal/ledger"
	"geopulse/internal/payments"
	paymentshandler "geopulse/internal/payments/handler"
	"geopulse/internal/platform/config"
	"geopulse/internal/platform/httpserver"
	"geopulse/internal/platform/logger"
	platformmetrics "geopulse/internal/platform/metrics"
	platformredis "geopulse/internal/platform/redis"
	"geopulse/internal/screening/country"
	"geopulse/internal/screening/decision"
	screeninghandler "geopulse/internal/screening/handler"
	screeningmetrics "geopulse/internal/screening/metrics"
	"geopulse/internal/screening/policy"
	"geopulse/internal/screening/sanctions"
	"geopulse/internal/screening/textrisk"
	"geopulse/internal/storage"
	"geopulse/internal/storage/postgres"
	httptransport "geopulse/internal/transport/http"
	"geopulse/pkg/platform/middleware/auth"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("geopulse stopped with error", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	transactions storage.TransactionStore
	scores       storage.RiskScoreStore
	events       storage.EventStore
	db           *sql.DB
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := platformmetrics.New(reg)
	screenMetrics := screeningmetrics.New(reg)

	pol, err := policy.Load(cfg.Screening.PolicyFile)
	if err != nil {
		return fmt.Errorf("load screening policy: %w", err)
	}

	st, err := openStores(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	g, gctx := errgroup.WithContext(ctx)

	publisher, closeAudit, err := openAudit(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	if async, ok := publisher.(*audit.AsyncPublisher); ok {
		g.Go(func() error {
			if err := async.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	recorder := audit.NewRecorder(publisher, log)

	matcher := sanctions.NewFromFile(cfg.Screening.SanctionsFile, pol, log)
	scorer := country.New(pol)
	engine, err := decision.New(matcher, scorer, pol,
		decision.WithLogger(log),
		decision.WithMetrics(screenMetrics),
	)
	if err != nil {
		return fmt.Errorf("build decision engine: %w", err)
	}
	classifier := newClassifier(cfg, pol, redisClient, screenMetrics, log)

	ledgerClient, err := openLedger(cfg.Ledger, log)
	if err != nil {
		return err
	}
	paymentService, err := payments.New(engine, ledgerClient, st.transactions,
		payments.WithAuditRecorder(recorder),
		payments.WithLogger(log),
		payments.WithCurrency(cfg.Ledger.Currency),
	)
	if err != nil {
		return fmt.Errorf("build payments service: %w", err)
	}

	var validator auth.JWTValidator
	if cfg.Server.JWTSigningKey != "" {
		jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
		validator = jwttoken.NewJWTServiceAdapter(jwtService)
	} else {
		log.Warn("JWT_SIGNING_KEY not set; /transactions is unauthenticated")
	}

	checks := map[string]httptransport.HealthCheck{}
	if st.db != nil {
		checks["postgres"] = st.db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = redisClient.Health
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Metrics:  httpMetrics,
		Gatherer: reg,
		Checks:   checks,
		Handlers: []httptransport.Registrar{
			screeninghandler.New(engine, classifier, st.scores, st.events, recorder, log),
			paymentshandler.New(paymentService, validator, log),
		},
	})

	scheduler, err := newScheduler(cfg, scorer, ledgerClient, st, recorder, httpMetrics, log)
	if err != nil {
		return err
	}
	scheduler.Start()

	srv := httpserver.New(cfg.Server.Addr, router)
	g.Go(func() error {
		log.Info("starting geopulse",
			"addr", cfg.Server.Addr,
			"sanctions_entries", matcher.Len(),
			"llm_enabled", classifier.LLMEnabled(),
			"scheduled_jobs", scheduler.Len(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := scheduler.Stop(shutdownCtx); err != nil {
			log.Warn("scheduler did not stop in time", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStores(ctx context.Context, cfg config.Database) (stores, error) {
	if cfg.URL == "" {
		return stores{
			transactions: storage.NewInMemoryTransactionStore(),
			scores:       storage.NewInMemoryRiskScoreStore(),
			events:       storage.NewInMemoryEventStore(),
		}, nil
	}
	db, err := postgres.Open(ctx, cfg.URL)
	if err != nil {
		return stores{}, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return stores{}, fmt.Errorf("migrate postgres: %w", err)
	}
	return stores{
		transactions: postgres.NewTransactionStore(db),
		scores:       postgres.NewRiskScoreStore(db),
		events:       postgres.NewEventStore(db),
		db:           db,
	}, nil
}

// openAudit returns the Kafka sink behind an async queue. Without brokers it
// returns a nil publisher and the recorder discards events.
func openAudit(ctx context.Context, cfg config.Kafka, log *slog.Logger) (audit.Publisher, func(), error) {
	if len(cfg.Brokers) == 0 {
		log.Warn("KAFKA_BROKERS not set; audit events are discarded")
		return nil, func() {}, nil
	}
	kafka, err := audit.NewKafkaPublisher(ctx, audit.KafkaConfig{Brokers: cfg.Brokers, Topic: cfg.AuditTopic})
	if err != nil {
		return nil, nil, fmt.Errorf("connect kafka: %w", err)
	}
	return audit.NewAsyncPublisher(kafka, cfg.AuditBuffer, log), kafka.Close, nil
}

func openLedger(cfg config.Ledger, log *slog.Logger) (ledger.Client, error) {
	if cfg.URL == "" {
		log.Warn("XRPL_RPC_URL not set; using in-process fake ledger")
		return ledger.NewFake(), nil
	}
	client, err := ledger.NewJSONRPCClient(ledger.Config{
		URL:           cfg.URL,
		IssuerAccount: cfg.IssuerAccount,
		IssuerSecret:  cfg.IssuerSecret,
		Currency:      cfg.Currency,
		Timeout:       cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build ledger client: %w", err)
	}
	return client, nil
}

func newClassifier(cfg config.Config, pol policy.Policy, redisClient *platformredis.Client, m *screeningmetrics.Metrics, log *slog.Logger) *textrisk.Classifier {
	opts := []textrisk.Option{
		textrisk.WithTimeout(cfg.LLM.Timeout),
		textrisk.WithLogger(log),
		textrisk.WithMetrics(m),
	}
	llm := textrisk.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	// redisClient is a concrete pointer; keep a nil one out of the Cache interface.
	if llm != nil && redisClient != nil {
		llm = textrisk.NewCachedLLM(llm, redisClient, cfg.LLM.CacheTTL, log)
	}
	opts = append(opts, textrisk.WithLLM(llm))
	return textrisk.New(textrisk.NewHeuristic(pol, textrisk.NewLexiconAnalyzer()), opts...)
}

func newScheduler(
	cfg config.Config,
	scorer *country.Scorer,
	ledgerClient ledger.Client,
	st stores,
	recorder *audit.Recorder,
	m *platformmetrics.Metrics,
	log *slog.Logger,
) (*jobs.Scheduler, error) {
	scheduler := jobs.NewScheduler(log)

	if cfg.Jobs.RiskRefreshSpec != config.JobDisabled {
		refresher, err := jobs.NewRiskRefresher(scorer, st.scores,
			jobs.WithCountries(cfg.Jobs.RefreshCountries),
			jobs.WithRefresherConcurrency(cfg.Jobs.Concurrency),
			jobs.WithRefresherLogger(log),
			jobs.WithRefresherMetrics(m),
		)
		if err != nil {
			return nil, err
		}
		if err := scheduler.Add(jobs.JobRiskRefresh, cfg.Jobs.RiskRefreshSpec, jobs.RefreshJob(refresher)); err != nil {
			return nil, err
		}
	}

	if cfg.Jobs.ReconcileSpec != config.JobDisabled {
		reconciler, err := jobs.NewReconciler(ledgerClient, st.transactions,
			jobs.WithReconcilerConcurrency(cfg.Jobs.Concurrency),
			jobs.WithReconcilerLogger(log),
			jobs.WithReconcilerMetrics(m),
			jobs.WithAuditRecorder(recorder),
		)
		if err != nil {
			return nil, err
		}
		if err := scheduler.Add(jobs.JobReconcile, cfg.Jobs.ReconcileSpec, jobs.ReconcileJob(reconciler)); err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}
