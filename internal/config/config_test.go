package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")

	cfg, err := LoadConfig(path, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.BaseURL != "http://localhost:8080" {
		t.Errorf("unexpected base url %q", cfg.Server.BaseURL)
	}
	if cfg.Storage.Backend != BackendFile || cfg.Storage.FilePath == "" {
		t.Errorf("expected file backend with a default path, got %+v", cfg.Storage)
	}
	if cfg.Checkout.SessionTTL != 15*time.Minute {
		t.Errorf("expected 15m session ttl, got %s", cfg.Checkout.SessionTTL)
	}
	if cfg.Checkout.RejectExpiredMutations == nil || !*cfg.Checkout.RejectExpiredMutations {
		t.Error("expected expired mutations to be rejected by default")
	}
	if cfg.Webhook.Secret == "" || cfg.Webhook.Timeout <= 0 {
		t.Error("expected webhook defaults")
	}
	if cfg.Workers.Count <= 0 || cfg.Workers.Queue <= 0 || cfg.Workers.DrainTimeout != 30*time.Second {
		t.Error("expected worker defaults")
	}
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  base_url: https://pay.example.com/
storage:
  backend: Postgres
database:
  url: postgres://u:p@localhost/db
checkout:
  session_ttl: 5m
  reject_expired_mutations: false
webhook:
  secret: whsec_live
  timeout: 3s
`)
	cfg, err := LoadConfig(path, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.BaseURL != "https://pay.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Server.BaseURL)
	}
	if cfg.Storage.Backend != BackendPostgres {
		t.Errorf("expected postgres backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Checkout.SessionTTL != 5*time.Minute {
		t.Errorf("expected 5m, got %s", cfg.Checkout.SessionTTL)
	}
	if *cfg.Checkout.RejectExpiredMutations {
		t.Error("expected explicit false to be kept")
	}
	if cfg.Webhook.Secret != "whsec_live" || cfg.Webhook.Timeout != 3*time.Second {
		t.Errorf("unexpected webhook config %+v", cfg.Webhook)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "webhook:\n  secret: from-file\n")
	t.Setenv("WEBHOOK_SECRET", "from-env")
	t.Setenv("CHECKOUT_BASE_URL", "https://env.example.com")

	cfg, err := LoadConfig(path, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Webhook.Secret != "from-env" {
		t.Errorf("expected env secret, got %q", cfg.Webhook.Secret)
	}
	if cfg.Server.BaseURL != "https://env.example.com" {
		t.Errorf("expected env base url, got %q", cfg.Server.BaseURL)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"postgres without url", "storage:\n  backend: postgres\n"},
		{"redis without url", "storage:\n  backend: redis\n"},
		{"unknown backend", "storage:\n  backend: mongo\n"},
		{"rate limit without redis", "checkout:\n  pay_rate_limit: 5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv("REDIS_URL", "")
			if _, err := LoadConfig(writeConfig(t, tt.body), false); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := LoadConfig(missing, false); err == nil {
		t.Fatal("expected an error for a missing file outside dev mode")
	}
	cfg, err := LoadConfig(missing, true)
	if err != nil {
		t.Fatalf("dev mode should run on defaults, got %v", err)
	}
	if !cfg.Runtime.Dev {
		t.Error("expected dev runtime flag")
	}
}
