package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	for _, key := range []string{"ENVIRONMENT", "PORT", "TABLE_PREFIX", "SESSION_TTL", "IDEMPOTENCY_TTL", "DEBUG"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Environment != "dev" || cfg.TablePrefix != "dev_" {
		t.Errorf("env/prefix = %q/%q, want dev/dev_", cfg.Environment, cfg.TablePrefix)
	}
	if cfg.SessionTTL != 24*time.Hour || cfg.IdempotencyTTL != 24*time.Hour {
		t.Errorf("TTLs = %v/%v, want 24h each", cfg.SessionTTL, cfg.IdempotencyTTL)
	}
	if !cfg.Debug {
		t.Error("Debug should default on outside prod")
	}
}

func TestLoadFileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "port: \"9090\"\nenvironment: test\nsession_ttl: 2h\nmax_log_files: 5\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("TABLE_PREFIX", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("PORT", "7070")

	cfg := Load()
	if cfg.Port != "7070" {
		t.Errorf("Port = %q, env var must beat the file", cfg.Port)
	}
	if cfg.Environment != "test" || cfg.TablePrefix != "test_" {
		t.Errorf("env/prefix = %q/%q, want test/test_", cfg.Environment, cfg.TablePrefix)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %v, want 2h from file", cfg.SessionTTL)
	}
	if cfg.MaxLogFiles != 5 {
		t.Errorf("MaxLogFiles = %d, want 5 from file", cfg.MaxLogFiles)
	}
}

func TestLoadMalformedFileIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("port: [not a"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, malformed file must fall back to defaults", cfg.Port)
	}
}
