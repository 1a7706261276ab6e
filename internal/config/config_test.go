package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: unit-test-secret\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %d, got %d", defaultPort, cfg.Port)
	}
	if cfg.JWT.Issuer != defaultJWTIssuer || cfg.JWT.Audience != defaultJWTAudience {
		t.Fatalf("expected default issuer/audience, got %q/%q", cfg.JWT.Issuer, cfg.JWT.Audience)
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Fatalf("expected 15m access ttl, got %v", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh ttl, got %v", cfg.RefreshTTL())
	}
	if cfg.LockWindow() != 15*time.Minute {
		t.Fatalf("expected 15m lock window, got %v", cfg.LockWindow())
	}
	if cfg.Security.MaxLoginAttempts != defaultMaxLoginAttempts {
		t.Fatalf("expected %d max attempts, got %d", defaultMaxLoginAttempts, cfg.Security.MaxLoginAttempts)
	}
	if !cfg.IsDev() {
		t.Fatal("default env must be development")
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
port: 9090
env: production
jwt:
  secret: unit-test-secret
  access_ttl_minutes: 5
  refresh_expires_days: 30
security:
  max_login_attempts: 3
  account_lock_minutes: 60
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 || cfg.IsDev() {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.AccessTTL() != 5*time.Minute || cfg.RefreshTTL() != 30*24*time.Hour {
		t.Fatalf("ttl overrides not applied")
	}
	if cfg.Security.MaxLoginAttempts != 3 || cfg.LockWindow() != time.Hour {
		t.Fatalf("security overrides not applied")
	}
}

func TestLoad_RequiresSecret(t *testing.T) {
	path := writeConfig(t, "port: 8080\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing jwt.secret")
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: s\nnot_a_field: true\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []string{
		"port: 0\njwt:\n  secret: s\n",
		"jwt:\n  secret: s\n  access_ttl_minutes: 0\n",
		"jwt:\n  secret: s\n  refresh_expires_days: 0\n",
		"jwt:\n  secret: s\nsecurity:\n  max_login_attempts: 0\n",
	}
	for _, content := range cases {
		path := writeConfig(t, content)
		if _, err := Load(path); err == nil {
			t.Fatalf("expected validation error for %q", content)
		}
	}
}
