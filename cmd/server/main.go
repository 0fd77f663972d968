package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	anchorCache "certus/internal/anchor/cache"
	anchorHandler "certus/internal/anchor/handler"
	"certus/internal/anchor/ledger"
	anchorMetrics "certus/internal/anchor/metrics"
	anchorService "certus/internal/anchor/service"
	catalogStore "certus/internal/catalog/store"
	certHandler "certus/internal/certificate/handler"
	certService "certus/internal/certificate/service"
	certStore "certus/internal/certificate/store"
	enrollHandler "certus/internal/enrollment/handler"
	enrollService "certus/internal/enrollment/service"
	enrollStore "certus/internal/enrollment/store"
	examHandler "certus/internal/exam/handler"
	examMetrics "certus/internal/exam/metrics"
	examService "certus/internal/exam/service"
	examStore "certus/internal/exam/store"
	jwttoken "certus/internal/jwt_token"
	"certus/internal/platform/config"
	"certus/internal/platform/httpserver"
	"certus/internal/platform/kafka"
	"certus/internal/platform/logger"
	"certus/internal/platform/postgres"
	"certus/internal/platform/redis"
	"certus/internal/platform/scheduler"
	"certus/internal/ratelimit"
	httptransport "certus/internal/transport/http"
	"certus/pkg/platform/audit"
	"certus/pkg/platform/audit/publisher"
	auditmemory "certus/pkg/platform/audit/store/memory"
	pgaudit "certus/pkg/platform/audit/store/postgres"
	"certus/pkg/platform/audit/worker"
	"certus/pkg/platform/circuit"
	"certus/pkg/platform/tx"
)

// main wires dependencies and runs the HTTP server, the outbox relay and the
// maintenance jobs until SIGINT or SIGTERM. Business logic lives in the
// internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("certus exited with error", "error", err)
		os.Exit(1)
	}
}

// infrastructure is the set of backing stores chosen from configuration.
type infrastructure struct {
	db      *sql.DB
	redis   *redis.Client
	runner  tx.Runner
	catalog interface {
		certService.Directory
		examService.QuestionBank
		examService.CertificationLookup
		enrollService.CertificationLookup
	}
	enrollments  enrollService.Store
	exams        examService.Store
	certificates certService.Store
	audit        interface {
		audit.Store
		audit.Outbox
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.close(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pub := publisher.New(infra.audit, publisher.WithLogger(log))

	enrollments, err := enrollService.New(infra.enrollments, infra.catalog, infra.runner,
		enrollService.WithLogger(log),
		enrollService.WithAuditPublisher(pub),
	)
	if err != nil {
		return err
	}
	certificates, err := certService.New(infra.certificates, infra.catalog, infra.runner,
		certService.WithLogger(log),
		certService.WithAuditPublisher(pub),
	)
	if err != nil {
		return err
	}
	exams, err := examService.New(infra.exams, enrollments, infra.catalog, infra.catalog, certificates, infra.runner,
		examService.WithLogger(log),
		examService.WithAuditPublisher(pub),
		examService.WithMetrics(examMetrics.New(reg)),
		examService.WithQuestionCount(cfg.Exam.QuestionCount),
	)
	if err != nil {
		return err
	}
	anchors, err := newAnchorService(cfg, infra, certificates, reg, log)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Server:    cfg.Server,
		Logger:    log,
		Registry:  reg,
		Validator: jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)),
		Health:    infra.healthChecks(),
		Handlers: []httptransport.Routes{
			enrollHandler.New(enrollments, log),
			examHandler.New(exams, log),
			certHandler.New(certificates, log),
			anchorHandler.New(anchors, log),
		},
		Limiter:   newRateLimiter(cfg, infra, log),
		RateLimit: cfg.RateLimit,
	})
	srv := httpserver.New(cfg.Server, router)

	jobs := scheduler.New(log)
	if err := jobs.Add("certificate-expiry", cfg.Exam.ExpirySweepSchedule, certificates.ExpireDue); err != nil {
		return err
	}
	if err := jobs.Add("anchor-reconcile", cfg.Anchor.ReconcileSchedule, anchors.Reconcile); err != nil {
		return err
	}

	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	var relay *worker.Relay
	if producer != nil {
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
			return err
		}
		relay = worker.NewRelay(infra.audit, kafka.NewOutboxSink(producer), infra.runner,
			worker.WithInterval(cfg.Kafka.PollInterval),
			worker.WithBatchSize(cfg.Kafka.BatchSize),
			worker.WithLogger(log),
		)
		log.Info("outbox relay enabled", "topic", cfg.Kafka.Topic)
	} else {
		log.Warn("KAFKA_BROKERS not set; domain events stay in the outbox")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	g.Go(func() error {
		return jobs.Run(ctx)
	})
	if relay != nil {
		g.Go(func() error {
			return relay.Run(ctx)
		})
	}

	log.Info("certus started",
		"addr", cfg.Server.Addr,
		"postgres", infra.db != nil,
		"redis", infra.redis != nil,
		"anchoring", anchors.Enabled(),
	)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("certus stopped")
	return nil
}

// openInfra uses Postgres when DATABASE_URL is set and in-memory stores
// otherwise.
func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infrastructure, error) {
	out := &infrastructure{}
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	out.redis = rc

	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set; using in-memory stores with an empty catalog")
		out.runner = tx.NewLocker()
		out.catalog = catalogStore.NewInMemory()
		out.enrollments = enrollStore.NewInMemory()
		out.exams = examStore.NewInMemory()
		out.certificates = certStore.NewInMemory()
		out.audit = auditmemory.NewInMemoryStore()
		return out, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		out.close(log)
		return nil, err
	}
	out.db = db
	if err := postgres.Migrate(ctx, db); err != nil {
		out.close(log)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	out.runner = postgres.NewTxRunner(db)
	out.catalog = catalogStore.NewPostgres(db)
	out.enrollments = enrollStore.NewPostgres(db)
	out.exams = examStore.NewPostgres(db)
	out.certificates = certStore.NewPostgres(db)
	out.audit = pgaudit.New(db)
	return out, nil
}

func (i *infrastructure) healthChecks() []httptransport.HealthCheck {
	var checks []httptransport.HealthCheck
	if i.db != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: i.db.PingContext})
	}
	if i.redis != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: i.redis.Health})
	}
	return checks
}

func (i *infrastructure) close(log *slog.Logger) {
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Warn("close redis", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Warn("close postgres", "error", err)
		}
	}
}

// newAnchorService builds anchoring; with ANCHOR_ENABLED=false it runs
// without a ledger and reports unavailable.
func newAnchorService(cfg config.Config, infra *infrastructure, certificates *certService.Service, reg prometheus.Registerer, log *slog.Logger) (*anchorService.Service, error) {
	settings := anchorService.Settings{
		PackageID:       cfg.Anchor.PackageID,
		ImageURL:        cfg.Anchor.ImageURL,
		ExplorerBaseURL: cfg.Anchor.ExplorerBaseURL,
		ReconcileGrace:  cfg.Anchor.ReconcileGrace,
	}
	opts := []anchorService.Option{
		anchorService.WithLogger(log),
		anchorService.WithMetrics(anchorMetrics.New(reg)),
		anchorService.WithBreaker(circuit.New("sui")),
	}
	if infra.redis != nil {
		opts = append(opts, anchorService.WithCache(anchorCache.NewRedisCache(infra.redis.Client, cfg.Anchor.ValidateCacheTTL)))
	} else {
		opts = append(opts, anchorService.WithCache(anchorCache.NewMemoryCache(cfg.Anchor.ValidateCacheTTL)))
	}

	if !cfg.Anchor.Enabled {
		log.Warn("anchoring disabled; anchor endpoints report unavailable")
		return anchorService.New(certificates, nil, settings, opts...)
	}

	signer, err := ledger.NewEd25519Signer(cfg.Anchor.SignerKey)
	if err != nil {
		return nil, fmt.Errorf("anchor signer: %w", err)
	}
	client, err := ledger.NewClient(ledger.Config{
		URL:             cfg.Anchor.NetworkURL,
		PackageID:       cfg.Anchor.PackageID,
		GasBudget:       cfg.Anchor.GasBudget,
		RequestTimeout:  cfg.Anchor.RequestTimeout,
		FinalityTimeout: cfg.Anchor.FinalityTimeout,
	}, signer, ledger.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("ledger client: %w", err)
	}
	log.Info("anchoring enabled",
		"network", cfg.Anchor.NetworkURL,
		"package", cfg.Anchor.PackageID,
		"admin_address", signer.Address(),
	)
	return anchorService.New(certificates, client, settings, opts...)
}

// newRateLimiter shares windows through Redis when it is configured.
func newRateLimiter(cfg config.Config, infra *infrastructure, log *slog.Logger) *ratelimit.Middleware {
	var store ratelimit.Store = ratelimit.NewInMemoryStore()
	if infra.redis != nil {
		store = ratelimit.NewRedisStore(infra.redis.Client)
	}
	return ratelimit.New(store, log, ratelimit.WithDisabled(!cfg.RateLimit.Enabled))
}
