package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.Server.Port)
	}
	if cfg.MPesa.HTTPTimeout != 30*time.Second {
		t.Errorf("expected 30s gateway timeout, got %s", cfg.MPesa.HTTPTimeout)
	}
	if cfg.JWT.TTL != 12*time.Hour {
		t.Errorf("expected 12h token ttl, got %s", cfg.JWT.TTL)
	}
	if cfg.SMTP.Port != 465 {
		t.Errorf("expected smtp port 465, got %d", cfg.SMTP.Port)
	}
	if cfg.Migrations.AutoMigrate {
		t.Error("auto migrate should be off by default")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MPESA_BASE_URL", "https://api.safaricom.co.ke/")
	t.Setenv("MPESA_HTTP_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.MPesa.BaseURL != "https://api.safaricom.co.ke" {
		t.Errorf("trailing slash should be trimmed, got %q", cfg.MPesa.BaseURL)
	}
	if cfg.MPesa.HTTPTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.MPesa.HTTPTimeout)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
	if !cfg.Migrations.AutoMigrate {
		t.Error("expected auto migrate on")
	}
	if cfg.JWT.Secret != "s3cret" {
		t.Errorf("expected secret from env, got %q", cfg.JWT.Secret)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	dsn := DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", DBName: "welfare", SSLMode: "disable",
	}.DSN()

	want := "host=db port=5432 user=u password=p dbname=welfare sslmode=disable"
	if dsn != want {
		t.Errorf("got %q, want %q", dsn, want)
	}
}
