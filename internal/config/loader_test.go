package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Crowdin.APIURL != "https://api.crowdin.com/api/v2" {
		t.Errorf("expected crowdin api url, got %s", cfg.Crowdin.APIURL)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if err := validate(&cfg); err != nil {
		t.Fatalf("defaults should validate, got %v", err)
	}
}

func TestWebhookURL(t *testing.T) {
	s := Server{PublicURL: "https://connector.example.com", WebhookPath: "/api/v1/crowdin/webhooks"}
	if got := s.WebhookURL(); got != "https://connector.example.com/api/v1/crowdin/webhooks" {
		t.Fatalf("unexpected webhook url %q", got)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  public_url: "https://hooks.example.com"
crowdin:
  secret_length: 16
auth:
  rewarding_managers: ["root", "alice"]
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.PublicURL != "https://hooks.example.com" {
		t.Errorf("expected public url override, got %s", cfg.Server.PublicURL)
	}
	if cfg.Crowdin.SecretLength != 16 {
		t.Errorf("expected secret length 16, got %d", cfg.Crowdin.SecretLength)
	}
	if len(cfg.Auth.RewardingManagers) != 2 || cfg.Auth.RewardingManagers[1] != "alice" {
		t.Errorf("unexpected managers %v", cfg.Auth.RewardingManagers)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestLoadYAMLMissingFile(t *testing.T) {
	cfg := Defaults()
	if err := loadYAML(&cfg, filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	yamlPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte("server: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CROWDIN_CONNECTOR_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test@db/test")
	t.Setenv("CROWDIN_CONNECTOR_WORKERS", "3")
	t.Setenv("CROWDIN_CONNECTOR_TASK_TIMEOUT", "45s")
	t.Setenv("CROWDIN_CONNECTOR_REWARDING_MANAGERS", "root, bob,,")
	t.Setenv("CROWDIN_CONNECTOR_OTEL_ENABLED", "true")
	t.Setenv("CROWDIN_CONNECTOR_CACHE_MAX_COST", "1024")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test@db/test" {
		t.Errorf("expected DSN override, got %s", cfg.Postgres.DSN)
	}
	if cfg.Worker.Size != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Worker.Size)
	}
	if cfg.Worker.TaskTimeout != 45*time.Second {
		t.Errorf("expected task timeout 45s, got %v", cfg.Worker.TaskTimeout)
	}
	if strings.Join(cfg.Auth.RewardingManagers, "|") != "root|bob" {
		t.Errorf("unexpected managers %v", cfg.Auth.RewardingManagers)
	}
	if !cfg.OTEL.Enabled {
		t.Error("expected otel enabled")
	}
	if cfg.Cache.MaxCostBytes != 1024 {
		t.Errorf("expected cache max cost 1024, got %d", cfg.Cache.MaxCostBytes)
	}
}

func TestEnvInvalidValueKeepsDefault(t *testing.T) {
	t.Setenv("CROWDIN_CONNECTOR_WORKERS", "many")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Worker.Size != 8 {
		t.Errorf("expected default worker size 8, got %d", cfg.Worker.Size)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }, "server.port"},
		{"relative webhook path", func(c *Config) { c.Server.WebhookPath = "hooks" }, "webhook_path"},
		{"empty dsn", func(c *Config) { c.Postgres.DSN = "" }, "postgres.dsn"},
		{"no nats", func(c *Config) { c.NATS.URL = "" }, "nats.url"},
		{"short secret", func(c *Config) { c.Crowdin.SecretLength = 4 }, "secret_length"},
		{"no workers", func(c *Config) { c.Worker.Size = 0 }, "worker.size"},
		{"bad token key", func(c *Config) { c.Secrets.TokenKey = "abc" }, "token_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
