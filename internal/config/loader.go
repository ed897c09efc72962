package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "crowdin-connector.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
// CROWDIN_CONNECTOR_CONFIG overrides the YAML path.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if v := os.Getenv("CROWDIN_CONNECTOR_CONFIG"); v != "" {
		path = v
	}
	return LoadFrom(path)
}

// LoadFrom is like Load but reads YAML from the given path.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

func loadEnv(cfg *Config) {
	// Server
	setString(&cfg.Server.Port, "CROWDIN_CONNECTOR_PORT")
	setString(&cfg.Server.PublicURL, "CROWDIN_CONNECTOR_PUBLIC_URL")
	setString(&cfg.Server.WebhookPath, "CROWDIN_CONNECTOR_WEBHOOK_PATH")
	setInt64(&cfg.Server.MaxBodyBytes, "CROWDIN_CONNECTOR_MAX_BODY_BYTES")
	setDuration(&cfg.Server.ShutdownGrace, "CROWDIN_CONNECTOR_SHUTDOWN_GRACE")

	// Postgres
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "CROWDIN_CONNECTOR_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "CROWDIN_CONNECTOR_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "CROWDIN_CONNECTOR_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "CROWDIN_CONNECTOR_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "CROWDIN_CONNECTOR_PG_HEALTH_CHECK")

	// NATS
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Stream, "CROWDIN_CONNECTOR_NATS_STREAM")
	setString(&cfg.NATS.SubjectPrefix, "CROWDIN_CONNECTOR_NATS_SUBJECT_PREFIX")

	// Crowdin
	setString(&cfg.Crowdin.APIURL, "CROWDIN_API_URL")
	setDuration(&cfg.Crowdin.RequestTimeout, "CROWDIN_REQUEST_TIMEOUT")
	setInt(&cfg.Crowdin.SecretLength, "CROWDIN_SECRET_LENGTH")
	setInt(&cfg.Crowdin.RefreshWorkers, "CROWDIN_REFRESH_WORKERS")

	// Worker
	setInt(&cfg.Worker.Size, "CROWDIN_CONNECTOR_WORKERS")
	setInt(&cfg.Worker.QueueSize, "CROWDIN_CONNECTOR_WORKER_QUEUE_SIZE")
	setDuration(&cfg.Worker.TaskTimeout, "CROWDIN_CONNECTOR_TASK_TIMEOUT")

	// Cache
	setInt64(&cfg.Cache.MaxCostBytes, "CROWDIN_CONNECTOR_CACHE_MAX_COST")
	setDuration(&cfg.Cache.ProjectTTL, "CROWDIN_CONNECTOR_CACHE_PROJECT_TTL")

	// Logging
	setString(&cfg.Logging.Level, "CROWDIN_CONNECTOR_LOG_LEVEL")
	setString(&cfg.Logging.Format, "CROWDIN_CONNECTOR_LOG_FORMAT")
	setString(&cfg.Logging.Service, "CROWDIN_CONNECTOR_LOG_SERVICE")

	// Breaker
	setInt(&cfg.Breaker.MaxFailures, "CROWDIN_CONNECTOR_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CROWDIN_CONNECTOR_BREAKER_TIMEOUT")

	// Auth
	setString(&cfg.Auth.UserHeader, "CROWDIN_CONNECTOR_USER_HEADER")
	setStringSlice(&cfg.Auth.RewardingManagers, "CROWDIN_CONNECTOR_REWARDING_MANAGERS")

	// Secrets
	setString(&cfg.Secrets.TokenKey, "CROWDIN_CONNECTOR_TOKEN_KEY")

	// OTEL
	setBool(&cfg.OTEL.Enabled, "CROWDIN_CONNECTOR_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "CROWDIN_CONNECTOR_OTEL_INSECURE")
}

func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.PublicURL == "" {
		return errors.New("server.public_url is required")
	}
	if !strings.HasPrefix(cfg.Server.WebhookPath, "/") {
		return errors.New("server.webhook_path must start with /")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.NATS.SubjectPrefix == "" {
		return errors.New("nats.subject_prefix is required")
	}
	if cfg.Crowdin.APIURL == "" {
		return errors.New("crowdin.api_url is required")
	}
	if cfg.Crowdin.SecretLength < 8 {
		return errors.New("crowdin.secret_length must be >= 8")
	}
	if cfg.Worker.Size < 1 {
		return errors.New("worker.size must be >= 1")
	}
	if cfg.Worker.QueueSize < 1 {
		return errors.New("worker.queue_size must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Secrets.TokenKey != "" && len(cfg.Secrets.TokenKey) != 64 {
		return errors.New("secrets.token_key must be 32 hex-encoded bytes")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setStringSlice reads a comma-separated list; empty entries are dropped.
func setStringSlice(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
