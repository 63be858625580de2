package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("RATE_LIMIT_STORE", "")
	t.Setenv("RATE_LIMIT_PER_HOUR", "")
	t.Setenv("RATE_LIMIT_RETENTION", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("SITE_URL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.RateLimitStore != "postgres" {
		t.Fatalf("expected postgres rate limit store, got %s", cfg.RateLimitStore)
	}
	if cfg.RateLimitPerHour != 5 {
		t.Fatalf("expected 5 submissions per hour, got %d", cfg.RateLimitPerHour)
	}
	if cfg.RateLimitRetention != 24*time.Hour {
		t.Fatalf("expected 24h retention, got %s", cfg.RateLimitRetention)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.SiteURL != "http://localhost:8080" {
		t.Fatalf("unexpected site url %s", cfg.SiteURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("SITE_URL", "https://clinic.example/")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("RATE_LIMIT_STORE", " Redis ")
	t.Setenv("RATE_LIMIT_PER_HOUR", "10")
	t.Setenv("RATE_LIMIT_RETENTION", "6h")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("WHATSAPP_NUMBER", "447700900123")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.SiteURL != "https://clinic.example" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.SiteURL)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.RateLimitStore != "redis" {
		t.Fatalf("expected normalized store name, got %q", cfg.RateLimitStore)
	}
	if cfg.RateLimitPerHour != 10 {
		t.Fatalf("expected limit override, got %d", cfg.RateLimitPerHour)
	}
	if cfg.RateLimitRetention != 6*time.Hour {
		t.Fatalf("expected retention override, got %s", cfg.RateLimitRetention)
	}
	if cfg.AdminPassword != "hunter2" {
		t.Fatalf("expected admin password override")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestContactNumberPrefersDisplay(t *testing.T) {
	cfg := &Config{WhatsAppNumber: "447700900123"}
	if got := cfg.ContactNumber(); got != "447700900123" {
		t.Fatalf("expected raw number, got %s", got)
	}
	cfg.WhatsAppDisplayNumber = "+44 7700 900123"
	if got := cfg.ContactNumber(); got != "+44 7700 900123" {
		t.Fatalf("expected display number, got %s", got)
	}
	var nilCfg *Config
	if nilCfg.ContactNumber() != "" {
		t.Fatal("nil config should yield empty number")
	}
}
