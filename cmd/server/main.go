package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"zkattest/internal/attestation/circuit"
	"zkattest/internal/attestation/engine"
	"zkattest/internal/attestation/handler"
	attestationmetrics "zkattest/internal/attestation/metrics"
	"zkattest/internal/attestation/offload"
	"zkattest/internal/attestation/service"
	"zkattest/internal/attestation/signer"
	"zkattest/internal/attestation/store"
	"zkattest/internal/attestation/zk"
	"zkattest/internal/audit"
	"zkattest/internal/platform/config"
	"zkattest/internal/platform/httpserver"
	"zkattest/internal/platform/kafka"
	"zkattest/internal/platform/logger"
	"zkattest/internal/platform/metrics"
	"zkattest/internal/platform/postgres"
	"zkattest/internal/platform/redis"
	"zkattest/pkg/platform/middleware/metadata"
	"zkattest/pkg/platform/middleware/requestid"
	"zkattest/pkg/platform/middleware/requesttime"
)

// main wires dependencies and runs the HTTP server, the proving pool and the
// audit worker until a shutdown signal arrives.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level)
	if err := logger.ConfigureGnark(os.Stderr, cfg.Log.GnarkLevel); err != nil {
		log.Warn("invalid gnark log level, gnark logging disabled", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("zkattest stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("zkattest stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := metrics.NewRegistry()
	m := attestationmetrics.New(reg)
	httpMetrics := metrics.NewHTTP(reg)

	keys := zk.NewKeyCache(zk.WithLogger(log), zk.WithMetrics(m))
	eng := engine.New(keys, m, engine.WithLogger(log))
	pool := offload.NewPool(eng,
		offload.WithWorkers(cfg.Offload.Workers),
		offload.WithQueueSize(cfg.Offload.QueueSize),
		offload.WithLogger(log),
		offload.WithMetrics(m),
	)
	client := offload.NewClient(pool, cfg.Offload.CallTimeout)

	records, closeRecords, err := buildRecordStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRecords()

	auditStore, closeAudit, err := buildAuditStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	publisher := audit.NewPublisher(auditStore,
		audit.WithAsyncBuffer(cfg.Kafka.AuditBuffer),
		audit.WithLogger(log),
	)

	svc := service.New(client, records,
		signer.New(cfg.Provider.SigningKey, cfg.Provider.Issuer, circuit.Version),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(m),
		service.WithLogger(log),
	)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(httpMetrics.Middleware)
	handler.New(svc, log).Register(r)
	r.Handle("/metrics", metrics.Handler(reg))

	srv := httpserver.New(cfg.Server.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pool.Run(gctx)
	})
	if worker := publisher.Worker(); worker != nil {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}
	if cfg.Offload.PrecompileOnStart {
		g.Go(func() error {
			// The key cache remembers the failure; proving calls report it.
			if err := eng.Warm(gctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("circuit precompilation failed", "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})

	err = g.Wait()
	pool.Wait()
	return err
}

func buildRecordStore(ctx context.Context, cfg config.Config) (service.RecordStore, func(), error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return pg, func() { _ = db.Close() }, nil
	case config.StoreRedis:
		rc, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedis(rc.Client, store.WithTTL(cfg.Redis.RecordTTL)), func() { _ = rc.Close() }, nil
	default:
		return store.NewInMemoryStore(), func() {}, nil
	}
}

func buildAuditStore(ctx context.Context, cfg config.Config, log *slog.Logger) (audit.Store, func(), error) {
	client, err := kafka.NewClient(ctx, cfg.Kafka)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("no kafka brokers configured, audit events stay in memory")
		return audit.NewInMemoryStore(), func() {}, nil
	}
	ks := audit.NewKafka(client, cfg.Kafka.AuditTopic)
	if err := ks.EnsureTopic(ctx, 1, 1); err != nil {
		client.Close()
		return nil, nil, err
	}
	return ks, client.Close, nil
}
