// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mode determines whether the worker reads events from fixture files or from Athena.
type Mode string

const (
	ModeStub       Mode = "stub"
	ModeProduction Mode = "production"
)

// Config holds all application configuration.
type Config struct {
	Mode             Mode
	FixturesDir      string
	AWSRegion        string
	AWSProfile       string
	CrossAccountRole string

	// Athena events table, production mode only.
	EventsDatabase     string
	EventsTable        string
	EventsWorkgroup    string
	EventsOutputBucket string

	CloudWatchNamespace string

	// EventCommand, when set, fetches events by running an external program
	// instead of querying Athena or reading fixtures.
	EventCommand string

	// AliasFile optionally points at a YAML list of alias rules.
	AliasFile        string
	BatchConcurrency int

	// ActivityBudget caps fetch and publish activities per audit per hour; 0 disables.
	ActivityBudget int

	// API server settings.
	APIPort        string
	CORSOrigins    []string
	OIDCIssuer     string
	OIDCAudience   string
	RateLimitRPS   float64
	RateLimitBurst int

	// RedisAddr selects the Redis result store; empty keeps results in memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// ResultTTL bounds how long stored comparisons live in either store.
	ResultTTL     time.Duration

	TemporalHostPort  string
	TemporalNamespace string
	// WorkerQueues is a comma-separated queue list; empty polls every queue.
	WorkerQueues      string

	OTelEnabled     bool
	// OTelEndpoint overrides the OTLP collector URL; empty defers to the
	// standard OTEL_EXPORTER_OTLP_* variables.
	OTelEndpoint    string
	OTelSampleRatio float64
	ServiceVersion  string
	LogLevel        string
}

// OIDCEnabled reports whether bearer token auth should be enforced.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuer != ""
}

// LoadFromEnv reads configuration from environment variables with sensible defaults.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Mode:                Mode(envOr("EVENTCHECK_MODE", "stub")),
		FixturesDir:         os.Getenv("FIXTURES_DIR"),
		AWSRegion:           envOr("AWS_REGION", "us-east-1"),
		AWSProfile:          os.Getenv("AWS_PROFILE"),
		CrossAccountRole:    os.Getenv("EVENTCHECK_CROSS_ACCOUNT_ROLE"),
		EventsDatabase:      os.Getenv("EVENTCHECK_EVENTS_DATABASE"),
		EventsTable:         os.Getenv("EVENTCHECK_EVENTS_TABLE"),
		EventsWorkgroup:     envOr("EVENTCHECK_EVENTS_WORKGROUP", "primary"),
		EventsOutputBucket:  os.Getenv("EVENTCHECK_EVENTS_OUTPUT_BUCKET"),
		CloudWatchNamespace: envOr("EVENTCHECK_CLOUDWATCH_NAMESPACE", "EventCheck"),
		EventCommand:        os.Getenv("EVENTCHECK_EVENT_COMMAND"),
		AliasFile:           os.Getenv("EVENTCHECK_ALIAS_FILE"),
		APIPort:             envOr("EVENTCHECK_API_PORT", "8080"),
		CORSOrigins:         parseCORSOrigins(os.Getenv("EVENTCHECK_CORS_ORIGINS")),
		OIDCIssuer:          os.Getenv("EVENTCHECK_OIDC_ISSUER"),
		OIDCAudience:        os.Getenv("EVENTCHECK_OIDC_AUDIENCE"),
		RedisAddr:           os.Getenv("EVENTCHECK_REDIS_ADDR"),
		RedisPassword:       os.Getenv("EVENTCHECK_REDIS_PASSWORD"),
		TemporalHostPort:    os.Getenv("TEMPORAL_ADDRESS"),
		TemporalNamespace:   envOr("TEMPORAL_NAMESPACE", "default"),
		WorkerQueues:        os.Getenv("EVENTCHECK_WORKER_QUEUES"),
		OTelEndpoint:        os.Getenv("EVENTCHECK_OTEL_ENDPOINT"),
		ServiceVersion:      envOr("EVENTCHECK_VERSION", "dev"),
		LogLevel:            envOr("EVENTCHECK_LOG_LEVEL", "info"),
	}

	var err error
	if cfg.BatchConcurrency, err = intEnv("EVENTCHECK_BATCH_CONCURRENCY", 8); err != nil {
		return Config{}, err
	}
	if cfg.ActivityBudget, err = intEnv("EVENTCHECK_ACTIVITY_BUDGET", 0); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = floatEnv("EVENTCHECK_RATE_LIMIT_RPS", 10); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = intEnv("EVENTCHECK_RATE_LIMIT_BURST", 20); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = intEnv("EVENTCHECK_REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.ResultTTL, err = durationEnv("EVENTCHECK_RESULT_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OTelEnabled, err = boolEnv("EVENTCHECK_OTEL_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.OTelSampleRatio, err = floatEnv("EVENTCHECK_OTEL_SAMPLE_RATIO", 1); err != nil {
		return Config{}, err
	}

	if cfg.Mode != ModeStub && cfg.Mode != ModeProduction {
		return Config{}, fmt.Errorf("config: invalid EVENTCHECK_MODE %q (must be stub or production)", cfg.Mode)
	}
	if cfg.BatchConcurrency < 1 {
		return Config{}, fmt.Errorf("config: EVENTCHECK_BATCH_CONCURRENCY must be at least 1, got %d", cfg.BatchConcurrency)
	}
	if cfg.ActivityBudget < 0 {
		return Config{}, fmt.Errorf("config: EVENTCHECK_ACTIVITY_BUDGET must not be negative, got %d", cfg.ActivityBudget)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst < 1 {
		return Config{}, fmt.Errorf("config: rate limit must be positive (rps=%v burst=%d)", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.OTelSampleRatio < 0 || cfg.OTelSampleRatio > 1 {
		return Config{}, fmt.Errorf("config: EVENTCHECK_OTEL_SAMPLE_RATIO must be within [0, 1], got %v", cfg.OTelSampleRatio)
	}
	if cfg.RedisDB < 0 {
		return Config{}, fmt.Errorf("config: EVENTCHECK_REDIS_DB must not be negative, got %d", cfg.RedisDB)
	}
	if cfg.OIDCIssuer != "" && cfg.OIDCAudience == "" {
		return Config{}, fmt.Errorf("config: EVENTCHECK_OIDC_AUDIENCE required when EVENTCHECK_OIDC_ISSUER is set")
	}

	if cfg.Mode == ModeProduction && cfg.EventCommand == "" {
		if cfg.EventsDatabase == "" {
			return Config{}, fmt.Errorf("config: EVENTCHECK_EVENTS_DATABASE required in production mode")
		}
		if cfg.EventsTable == "" {
			return Config{}, fmt.Errorf("config: EVENTCHECK_EVENTS_TABLE required in production mode")
		}
		if cfg.EventsOutputBucket == "" {
			return Config{}, fmt.Errorf("config: EVENTCHECK_EVENTS_OUTPUT_BUCKET required in production mode")
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func parseCORSOrigins(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(o); t != "" {
			origins = append(origins, t)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
