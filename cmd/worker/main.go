// worker periodically reaps refresh sessions that can no longer authenticate:
// expired rows, and revoked rows past the audit retention window.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"company-portal/backend/internal/config"
	"company-portal/backend/internal/db"
	"company-portal/backend/internal/platform/logging"
	sessionrepo "company-portal/backend/internal/session/repository"
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

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	cleaner := sessionrepo.NewPostgres(pool)
	interval := cfg.CleanupInterval()
	retention := cfg.RevokedRetention()

	logger.Info("session cleanup worker started",
		zap.Duration("interval", interval),
		zap.Duration("retention", retention),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	reap(ctx, cleaner, retention, logger)
	for {
		select {
		case <-ctx.Done():
			logger.Info("session cleanup worker stopped")
			return
		case <-ticker.C:
			reap(ctx, cleaner, retention, logger)
		}
	}
}

func reap(ctx context.Context, cleaner sessionrepo.Cleaner, retention time.Duration, logger *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	removed, err := cleaner.DeleteExpired(runCtx, time.Now().UTC(), retention)
	if err != nil {
		logger.Error("session cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		logger.Info("sessions reaped", zap.Int64("count", removed))
	}
}
