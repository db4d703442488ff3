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
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"revalidation/internal/cycle/handler"
	cyclemetrics "revalidation/internal/cycle/metrics"
	"revalidation/internal/cycle/outbox"
	"revalidation/internal/cycle/ports"
	"revalidation/internal/cycle/reconcile"
	"revalidation/internal/cycle/service"
	"revalidation/internal/cycle/snapshot"
	"revalidation/internal/cycle/store"
	"revalidation/internal/cycle/store/archivecache"
	evidenceclient "revalidation/internal/evidence/client"
	evidencememory "revalidation/internal/evidence/memory"
	jwttoken "revalidation/internal/jwt_token"
	"revalidation/internal/platform/config"
	"revalidation/internal/platform/httpserver"
	"revalidation/internal/platform/kafka"
	"revalidation/internal/platform/logger"
	platformmetrics "revalidation/internal/platform/metrics"
	"revalidation/internal/platform/redis"
	"revalidation/migrations"
	"revalidation/pkg/platform/circuit"
	"revalidation/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.DefaultRegisterer
	platformMetrics := platformmetrics.New(reg)
	cycleMetrics := cyclemetrics.New(reg)

	infra, err := buildInfra(ctx, cfg, log, platformMetrics)
	if err != nil {
		return err
	}
	defer infra.close()

	builder := snapshot.New(buildEvidenceSource(cfg, log),
		snapshot.WithLogger(log),
		snapshot.WithMetrics(cycleMetrics),
		snapshot.WithTimeout(cfg.Snapshot.Timeout),
	)

	opts := []service.Option{service.WithLogger(log), service.WithMetrics(cycleMetrics)}
	if infra.redis != nil {
		opts = append(opts, service.WithArchiveCache(archivecache.New(infra.redis.Client, cfg.Redis.CacheTTL)))
	}
	svc := service.New(infra.cycles, infra.tx, builder, opts...)

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	cycleHandler := handler.New(svc, log, platformMetrics, jwttoken.NewJWTServiceAdapter(jwtService), cfg.Server.AdminToken, cfg.Server.RequestTimeout)

	router := chi.NewRouter()
	router.Get("/healthz", infra.health)
	router.Handle("/metrics", promhttp.Handler())
	cycleHandler.Register(router)

	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.RequestTimeout)

	scheduler := reconcile.NewScheduler(svc, log, cfg.Reconcile.Schedule, cfg.Reconcile.Timeout)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting revalidation service", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if infra.outbox != nil {
		g.Go(func() error {
			if err := infra.outbox.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// infra holds the storage and messaging dependencies. Without DATABASE_URL
// the service runs on the in-memory stores and publishes nothing.
type infra struct {
	db       *sql.DB
	redis    *redis.Client
	producer *kafka.Producer
	cycles   ports.CycleStore
	tx       ports.Tx
	outbox   *outbox.Worker
	closers  []func()
}

func buildInfra(ctx context.Context, cfg config.Config, log *slog.Logger, m *platformmetrics.Metrics) (*infra, error) {
	in := &infra{}

	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		cycles := store.NewInMemory()
		in.cycles = cycles
		in.tx = store.NewInMemoryTx(cycles, store.NewInMemoryAudit())
	} else {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		in.closers = append(in.closers, func() { _ = db.Close() })
		if err := db.PingContext(ctx); err != nil {
			in.close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		if err := migrations.Apply(ctx, db); err != nil {
			in.close()
			return nil, err
		}
		in.db = db
		cycles := store.NewPostgres(db)
		in.cycles = cycles
		in.tx = store.NewPostgresTx(db, cycles, store.NewPostgresAudit(db)).WithTimeout(cfg.Database.TxTimeout)
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.close()
		return nil, err
	}
	if rc != nil {
		in.redis = rc
		in.closers = append(in.closers, func() { _ = rc.Close() })
	}

	if len(cfg.Kafka.Brokers) > 0 && in.db != nil {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			in.close()
			return nil, err
		}
		in.closers = append(in.closers, producer.Close)
		if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("could not ensure outbox topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		in.producer = producer
		in.outbox = outbox.NewWorker(outbox.NewPostgresStore(in.db), producer, log, m,
			cfg.Kafka.PollInterval, cfg.Kafka.BatchSize)
	}
	return in, nil
}

func (in *infra) close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		in.closers[i]()
	}
}

func (in *infra) health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if in.db != nil {
		if err := in.db.PingContext(ctx); err != nil {
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	if in.redis != nil {
		if err := in.redis.Health(ctx); err != nil {
			status["redis"] = "unavailable"
		}
	}
	if in.producer != nil {
		if err := in.producer.Ping(ctx); err != nil {
			status["kafka"] = "unavailable"
		}
	}
	if code != http.StatusOK {
		status["status"] = "degraded"
	}
	httputil.WriteJSON(w, code, status)
}

func buildEvidenceSource(cfg config.Config, log *slog.Logger) ports.EvidenceSource {
	if cfg.Evidence.BaseURL == "" {
		log.Warn("EVIDENCE_BASE_URL not set, using in-memory evidence source")
		return evidencememory.New()
	}
	return evidenceclient.New(cfg.Evidence.BaseURL, cfg.Evidence.Timeout,
		evidenceclient.WithLogger(log),
		evidenceclient.WithBreakerOptions(
			circuit.WithFailureThreshold(cfg.Evidence.BreakerThreshold),
			circuit.WithCooldown(cfg.Evidence.BreakerCooldown),
		),
	)
}
