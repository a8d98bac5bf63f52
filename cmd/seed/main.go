// seed bootstraps the first company and admin account from SEED_* env vars.
// Idempotent: exits cleanly when the admin email already exists. Intended for
// local development and fresh deployments.
package main

import (
	"context"
	"log"
	"strings"

	authrepo "company-portal/backend/internal/auth/repository"
	authservice "company-portal/backend/internal/auth/service"
	"company-portal/backend/internal/config"
	"company-portal/backend/internal/db"
	"company-portal/backend/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" || cfg.SeedCompanyName == "" {
		log.Fatal("SEED_ADMIN_EMAIL, SEED_ADMIN_PASSWORD, and SEED_COMPANY_NAME are required")
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	store := authrepo.NewPostgres(pool)

	existing, err := store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(cfg.SeedAdminEmail)))
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", cfg.SeedAdminEmail)
		return
	}

	hasher := security.NewHasher(cfg.ArgonMemoryKiB, cfg.ArgonTime, cfg.ArgonThreads)
	codec := security.NewTokenCodec(
		[]byte(cfg.JWTAccessSecret), []byte(cfg.JWTRefreshSecret),
		cfg.AccessTTL(), cfg.RefreshTTL(),
	)
	svc, err := authservice.NewAuthService(store, hasher, codec)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	result, err := svc.SignupCompany(ctx, authservice.SignupInput{
		CompanyName: cfg.SeedCompanyName,
		FullName:    cfg.SeedAdminName,
		Email:       cfg.SeedAdminEmail,
		Password:    cfg.SeedAdminPassword,
	}, authservice.Meta{UserAgent: "cmd/seed"})
	if err != nil {
		log.Fatalf("seed signup: %v", err)
	}

	// The session issued as a side effect of signup is not handed out; revoke
	// it so the seed leaves no live credentials behind.
	svc.Logout(ctx, result.RefreshToken)

	log.Printf("Seed completed: company %q, admin %s", cfg.SeedCompanyName, cfg.SeedAdminEmail)
}
