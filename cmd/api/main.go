package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/token-gateway/internal/api/http"
	"github.com/spec-kit/token-gateway/internal/api/http/handlers"
	"github.com/spec-kit/token-gateway/internal/auth"
	"github.com/spec-kit/token-gateway/internal/config"
	"github.com/spec-kit/token-gateway/internal/events"
	"github.com/spec-kit/token-gateway/internal/observability"
	"github.com/spec-kit/token-gateway/internal/persistence"
	"github.com/spec-kit/token-gateway/internal/repository"
	"github.com/spec-kit/token-gateway/internal/service"
	"github.com/spec-kit/token-gateway/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	codec, err := auth.NewTokenCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTokenTTL())
	if err != nil {
		logger.Fatal("failed to init token codec", zap.Error(err))
	}

	keys := auth.NewKeyRegistry(cfg.Auth.APIKeys...)
	for _, hash := range cfg.Auth.APIKeyHashes {
		if err := keys.AddHashed(hash); err != nil {
			logger.Fatal("invalid AUTH_API_KEY_HASHES entry", zap.Error(err))
		}
	}
	if keys.Len() == 0 {
		logger.Warn("no API keys registered; every issuance request will be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	issuanceRepo := repository.NewIssuanceRepository(pg.PoolHandle())
	counters := repository.NewRedisUsageCounter(redis.ClientHandle(), cfg.Redis.KeyPrefix, nil)

	dispatcher := events.NewInMemoryDispatcher()
	auditWorker := worker.NewAuditWorker(service.NewAuditService(logger, issuanceRepo, counters), logger, cfg.Audit.BufferSize)
	auditWorker.Subscribe(dispatcher, service.AuditedEvents...)
	auditWorker.Start()
	defer auditWorker.Close()

	issuanceService := service.NewIssuanceService(service.IssuanceDependencies{
		Keys:       keys,
		Tokens:     codec,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	app := httptransport.NewApp(logger, observability.NewMetrics(), cfg.App.RequestTimeout(), httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Token:     handlers.NewTokenHandler(issuanceService),
		Protected: handlers.NewProtectedHandler(),
		Gate:      auth.NewGate(codec, logger, dispatcher),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.Int("api_keys", keys.Len()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
