// server runs the auth API: company signup, tenant login, refresh rotation,
// and the bearer-protected profile endpoints.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	authhandler "company-portal/backend/internal/auth/handler"
	authrepo "company-portal/backend/internal/auth/repository"
	authservice "company-portal/backend/internal/auth/service"
	"company-portal/backend/internal/authevents"
	"company-portal/backend/internal/config"
	"company-portal/backend/internal/db"
	healthhandler "company-portal/backend/internal/health/handler"
	"company-portal/backend/internal/platform/logging"
	"company-portal/backend/internal/security"
	"company-portal/backend/internal/server"
	"company-portal/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "company-portal-backend")
	if err != nil {
		logger.Fatal("telemetry", zap.Error(err))
	}
	providers.SetGlobal()
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	hasher := security.NewHasher(cfg.ArgonMemoryKiB, cfg.ArgonTime, cfg.ArgonThreads)
	codec := security.NewTokenCodec(
		[]byte(cfg.JWTAccessSecret), []byte(cfg.JWTRefreshSecret),
		cfg.AccessTTL(), cfg.RefreshTTL(),
	)

	store := authrepo.NewPostgres(pool)
	svc, err := authservice.NewAuthService(store, hasher, codec)
	if err != nil {
		logger.Fatal("auth service", zap.Error(err))
	}

	var events authevents.Emitter
	if emitter := authevents.NewKafkaEmitter(cfg.KafkaBrokersList(), cfg.AuthEventsTopic); emitter != nil {
		events = emitter
		defer func() { _ = emitter.Close() }()
		logger.Info("auth events enabled", zap.String("topic", cfg.AuthEventsTopic))
	}

	router := server.NewRouter(server.Deps{
		Auth: authhandler.NewAuthHandler(svc, events, logger, authhandler.CookieConfig{
			Domain: cfg.CookieDomain,
			Secure: cfg.CookieSecure,
		}),
		Health: healthhandler.NewHealthHandler(pool, logger),
		Codec:  codec,
		Logger: logger,
	})

	if err := server.New(cfg.HTTPAddr, router, logger).Run(ctx); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
	logger.Info("server stopped")
}
