package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"vigil/internal/evidence"
	"vigil/internal/integrity"
	integrityhandler "vigil/internal/integrity/handler"
	"vigil/internal/platform/config"
	"vigil/internal/platform/httpserver"
	"vigil/internal/platform/logger"
	"vigil/internal/platform/metrics"
	"vigil/internal/platform/observability"
	"vigil/internal/platform/redis"
	"vigil/internal/ratelimit"
	"vigil/internal/session"
	sessionhandler "vigil/internal/session/handler"
	"vigil/internal/token"
	httptransport "vigil/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	configPath := flag.String("config", os.Getenv("VIGIL_CONFIG"), "path to YAML config file")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.Setup(ctx, cfg.Observer, log)
	if err != nil {
		log.Error("observability setup failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	checks := make(map[string]httptransport.HealthChecker)

	// Ledger store: Postgres when a DSN is configured, in-memory otherwise.
	var ledgerStore integrity.Store = integrity.NewInMemoryStore()
	var pool *pgxpool.Pool
	if cfg.Database.DSN != "" {
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
		if err != nil {
			log.Error("invalid database DSN", "error", err)
			os.Exit(1)
		}
		poolCfg.MaxConns = cfg.Database.MaxConns
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			log.Error("database connect failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := integrity.Migrate(ctx, pool); err != nil {
			log.Error("database migration failed", "error", err)
			os.Exit(1)
		}
		ledgerStore = integrity.NewPostgresStore(pool)
		checks["postgres"] = poolHealth{pool}
		log.Info("integrity ledger backed by postgres")
	}

	ledger := integrity.NewService(ledgerStore, cfg.Integrity.SnapshotDir, log)

	// Live state mirror, optional.
	var states session.StateStore
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		states = session.NewRedisStateStore(redisClient, 2*time.Minute)
		checks["redis"] = redisClient
		log.Info("session state mirrored to redis")
	}

	// Evidence fan-out: the in-process ledger always, remote backends when
	// configured.
	sinks := evidence.Multi{integrity.NewStoreSink(ledger)}
	if cfg.Evidence.BaseURL != "" {
		sinks = append(sinks, evidence.NewHTTPSink(cfg.Evidence.BaseURL, cfg.Evidence.Timeout, log))
		log.Info("remote evidence sink enabled", "base_url", cfg.Evidence.BaseURL)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := evidence.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("kafka connect failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = kafkaSink.Close(closeCtx)
		}()
		sinks = append(sinks, kafkaSink)
		log.Info("kafka evidence sink enabled", "topic", cfg.Kafka.Topic)
	}

	accessHash, err := resolveAccessHash(cfg, log)
	if err != nil {
		log.Error("access code setup failed", "error", err)
		os.Exit(1)
	}

	tokens := token.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.TokenTTL)
	manager := session.NewManager(session.DefaultConfig(), accessHash, tokens, sinks, states, log, m)
	defer manager.CloseAll()

	joinLimiter := ratelimit.New(10, time.Minute)
	router := httptransport.NewRouter(httptransport.Deps{
		Sessions:  sessionhandler.New(manager, tokens, joinLimiter, log),
		Integrity: integrityhandler.New(ledger, log),
		Logger:    log,
		Checks:    checks,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("vigil listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return httpserver.Shutdown(srv)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}

	obsCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := obs.Shutdown(obsCtx); err != nil {
		log.Warn("tracer shutdown failed", "error", err)
	}
}

// resolveAccessHash returns the bcrypt hash candidates join against. When
// nothing is configured a one-off code is generated and logged, which keeps
// local development usable without ever running with a known default.
func resolveAccessHash(cfg config.Config, log *slog.Logger) (string, error) {
	if cfg.Auth.AccessCodeHash != "" {
		return cfg.Auth.AccessCodeHash, nil
	}
	code := cfg.Auth.AccessCode
	if code == "" {
		generated, err := session.GenerateAccessCode()
		if err != nil {
			return "", err
		}
		code = generated
		log.Info("generated assessment access code", "access_code", code)
	}
	return session.HashAccessCode(code)
}

type poolHealth struct {
	pool *pgxpool.Pool
}

func (p poolHealth) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
