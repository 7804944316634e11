package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.Token.AccessTTL != 15*time.Minute {
		t.Errorf("expected default access TTL 15m, got %v", cfg.Token.AccessTTL)
	}
	if cfg.Token.RefreshTTL != 240*time.Hour {
		t.Errorf("expected default refresh TTL 240h, got %v", cfg.Token.RefreshTTL)
	}
	if cfg.Token.AccessSecret == cfg.Token.RefreshSecret {
		t.Error("dev default secrets must differ between access and refresh")
	}
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when token secrets missing in production")
	}
}

func TestLoad_ProductionRejectsSharedSecret(t *testing.T) {
	secret := strings.Repeat("x", 40)
	t.Setenv("ENV", "production")
	t.Setenv("ACCESS_TOKEN_SECRET", secret)
	t.Setenv("REFRESH_TOKEN_SECRET", secret)

	if _, err := Load(); err == nil {
		t.Fatal("expected error when access and refresh secrets are identical")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		User:     "viewtube",
		Password: "p@ss/word",
		Name:     "viewtube",
	}

	dsn := d.DSN()
	if !strings.Contains(dsn, "tcp(db.internal:3306)") {
		t.Errorf("expected default port appended, got %q", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("expected parseTime=true in DSN, got %q", dsn)
	}
}

func TestDatabaseConfig_DSNOverride(t *testing.T) {
	d := DatabaseConfig{dsnOverride: "user:pass@tcp(host:3306)/db?parseTime=true"}
	if d.DSN() != "user:pass@tcp(host:3306)/db?parseTime=true" {
		t.Errorf("expected DATABASE_URL override to be returned as-is, got %q", d.DSN())
	}
}
