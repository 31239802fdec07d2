package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAPIConfigDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "STORE_DRIVER", "AUTH_ENFORCE", "SESSION_TTL_HOURS", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	cfg := LoadAPIConfig()
	if cfg.StoreDriver != StoreDriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.StoreDriver)
	}
	if !cfg.AuthEnforce {
		t.Fatalf("expected auth enforcement by default")
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("unexpected session ttl %s", cfg.SessionTTL)
	}
	if !cfg.Development() {
		t.Fatalf("expected development environment by default")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadAPIConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", " Mongo ")
	t.Setenv("AUTH_ENFORCE", "false")
	t.Setenv("SESSION_TTL_HOURS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://vault.example.com , ,")

	cfg := LoadAPIConfig()
	if cfg.StoreDriver != StoreDriverMongo {
		t.Fatalf("expected mongo driver, got %q", cfg.StoreDriver)
	}
	if cfg.AuthEnforce {
		t.Fatalf("expected auth enforcement disabled")
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("invalid ttl should fall back, got %s", cfg.SessionTTL)
	}
	if cfg.Development() {
		t.Fatalf("production must not be treated as development")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://vault.example.com" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("TV_TEST_NEW=from-file\nTV_TEST_SET=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("TV_TEST_SET", "from-env")
	t.Cleanup(func() { os.Unsetenv("TV_TEST_NEW") })

	LoadDotEnv(path, filepath.Join(dir, "missing.env"))

	if got := GetString("TV_TEST_NEW", ""); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := GetString("TV_TEST_SET", ""); got != "from-env" {
		t.Fatalf("expected existing value preserved, got %q", got)
	}
}
