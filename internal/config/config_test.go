package config

import (
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Address())
	}
	if !cfg.IDRPerUSDFallback.Equal(cfg.IDRPerUSDFallback.Truncate(0)) || cfg.IDRPerUSDFallback.IntPart() != 17000 {
		t.Fatalf("unexpected IDR fallback %s", cfg.IDRPerUSDFallback)
	}
	if cfg.RatesRefreshInterval != 5*time.Minute {
		t.Fatalf("unexpected refresh interval %s", cfg.RatesRefreshInterval)
	}
	if cfg.FallbackSponsorCode != "TPCGLOBAL" {
		t.Fatalf("unexpected sponsor fallback %s", cfg.FallbackSponsorCode)
	}
}

func TestLoadRequiresBackendOutsideDev(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing DATABASE_URL error")
	}
}

func TestLoadRequiresPresaleStartOutsideDev(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/tpc")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("PRESALE_START", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing PRESALE_START error")
	}

	t.Setenv("PRESALE_START", "2026-03-01T00:00:00Z")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.PresaleStart.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected presale start %s", cfg.PresaleStart)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv(shutdownDurationEnvVar, "soon")
	t.Setenv(shutdownSecondsEnvVar, "")

	if _, err := Load(); err == nil {
		t.Fatal("expected invalid shutdown duration error")
	}
}

func TestLoadRejectsNonPositiveDecimal(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("MIN_ORDER_USD", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected invalid MIN_ORDER_USD error")
	}
}

func TestLoadPresaleStart(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PRESALE_START", "2026-01-15T00:00:00Z")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.PresaleStart.Equal(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected presale start %s", cfg.PresaleStart)
	}

	t.Setenv("PRESALE_START", "next monday")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid PRESALE_START error")
	}
}
