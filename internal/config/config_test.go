package config

import (
	"strings"
	"testing"
	"time"
)

const (
	validAccessSecret  = "access-secret-that-is-32-bytes!!"
	validRefreshSecret = "refresh-secret-that-is-32-bytes!"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_ACCESS_SECRET", validAccessSecret)
	t.Setenv("JWT_REFRESH_SECRET", validRefreshSecret)
}

func TestLoadDefaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":3001" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 168*time.Hour {
		t.Errorf("RefreshTTL = %v", cfg.RefreshTTL())
	}
	if cfg.AuthEventsTopic != "auth-events" {
		t.Errorf("AuthEventsTopic = %q", cfg.AuthEventsTopic)
	}
	if cfg.CleanupInterval() != time.Hour {
		t.Errorf("CleanupInterval = %v", cfg.CleanupInterval())
	}
	if cfg.RevokedRetention() != 720*time.Hour {
		t.Errorf("RevokedRetention = %v", cfg.RevokedRetention())
	}
}

func TestLoadShortSecret(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "short")
	t.Setenv("JWT_REFRESH_SECRET", validRefreshSecret)

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_ACCESS_SECRET") {
		t.Fatalf("expected short-secret error, got %v", err)
	}
}

func TestLoadEqualSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", validAccessSecret)
	t.Setenv("JWT_REFRESH_SECRET", validAccessSecret)

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("expected equal-secret error, got %v", err)
	}
}

func TestTTLOverrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("JWT_REFRESH_TTL", "48h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AccessTTL() != 5*time.Minute {
		t.Errorf("AccessTTL = %v", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 48*time.Hour {
		t.Errorf("RefreshTTL = %v", cfg.RefreshTTL())
	}
}

func TestTTLInvalidFallsBack(t *testing.T) {
	setValidEnv(t)
	t.Setenv("JWT_ACCESS_TTL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want default", cfg.AccessTTL())
	}
}

func TestKafkaBrokersList(t *testing.T) {
	setValidEnv(t)
	t.Setenv("KAFKA_BROKERS", " broker-1:9092, broker-2:9092 ,,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.KafkaBrokersList()
	if len(got) != 2 || got[0] != "broker-1:9092" || got[1] != "broker-2:9092" {
		t.Fatalf("KafkaBrokersList = %v", got)
	}

	var none *Config
	if list := none.KafkaBrokersList(); list != nil {
		t.Fatalf("nil config brokers = %v", list)
	}
}
