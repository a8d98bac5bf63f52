// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment. It is
// built once at process start and passed by reference into the components
// that need it; nothing reads ambient env state after Load returns.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :3001).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTAccessSecret signs access tokens. Min 32 bytes. Independent from the refresh secret.
	JWTAccessSecret string `mapstructure:"JWT_ACCESS_SECRET"`
	// JWTRefreshSecret signs refresh tokens. Min 32 bytes.
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// ArgonMemoryKiB is the Argon2id memory cost in KiB; 0 uses the default (65536).
	ArgonMemoryKiB uint32 `mapstructure:"ARGON_MEMORY_KIB"`
	// ArgonTime is the Argon2id iteration count; 0 uses the default (3).
	ArgonTime uint32 `mapstructure:"ARGON_TIME"`
	// ArgonThreads is the Argon2id parallelism; 0 uses the default (1).
	ArgonThreads uint8 `mapstructure:"ARGON_THREADS"`
	// CookieDomain is the optional Domain attribute for the refresh cookie.
	CookieDomain string `mapstructure:"COOKIE_DOMAIN"`
	// CookieSecure sets the Secure attribute on the refresh cookie.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`
	// Env is the application environment ("development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint enables OpenTelemetry export when set (e.g. localhost:4317).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`

	// KafkaBrokers is a comma-separated broker list; when set, auth lifecycle
	// events (signup, login, refresh, logout) are emitted to AuthEventsTopic.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuthEventsTopic is the Kafka topic for auth lifecycle events.
	AuthEventsTopic string `mapstructure:"AUTH_EVENTS_TOPIC"`

	// WorkerCleanupInterval is how often the worker reaps dead refresh sessions (e.g. "1h").
	WorkerCleanupInterval string `mapstructure:"WORKER_CLEANUP_INTERVAL"`
	// WorkerRevokedRetention is how long revoked sessions are kept for audit before cleanup (e.g. "720h").
	WorkerRevokedRetention string `mapstructure:"WORKER_REVOKED_RETENTION"`

	// Seed-only: bootstrap admin account for cmd/seed.
	SeedAdminEmail    string `mapstructure:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `mapstructure:"SEED_ADMIN_PASSWORD"`
	SeedAdminName     string `mapstructure:"SEED_ADMIN_NAME"`
	SeedCompanyName   string `mapstructure:"SEED_COMPANY_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI); env vars
// override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":3001")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("ARGON_MEMORY_KIB", 0)
	v.SetDefault("ARGON_TIME", 0)
	v.SetDefault("ARGON_THREADS", 0)
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUTH_EVENTS_TOPIC", "auth-events")
	v.SetDefault("WORKER_CLEANUP_INTERVAL", "1h")
	v.SetDefault("WORKER_REVOKED_RETENTION", "720h") // 30d
	v.SetDefault("SEED_ADMIN_EMAIL", "")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")
	v.SetDefault("SEED_ADMIN_NAME", "Admin")
	v.SetDefault("SEED_COMPANY_NAME", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if len(cfg.JWTAccessSecret) < 32 {
		return nil, errors.New("config: JWT_ACCESS_SECRET must be at least 32 bytes")
	}
	if len(cfg.JWTRefreshSecret) < 32 {
		return nil, errors.New("config: JWT_REFRESH_SECRET must be at least 32 bytes")
	}
	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// CleanupInterval parses WorkerCleanupInterval. Returns 1h if unset or invalid.
func (c *Config) CleanupInterval() time.Duration {
	d, err := time.ParseDuration(c.WorkerCleanupInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// RevokedRetention parses WorkerRevokedRetention. Returns 720h if unset or invalid.
func (c *Config) RevokedRetention() time.Duration {
	d, err := time.ParseDuration(c.WorkerRevokedRetention)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// KafkaBrokersList returns broker addresses from the comma-separated config.
// An empty list means auth event emission is disabled.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
