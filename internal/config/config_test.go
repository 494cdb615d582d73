package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ModeStub, cfg.Mode)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, "primary", cfg.EventsWorkgroup)
	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 8, cfg.BatchConcurrency)
	assert.Zero(t, cfg.ActivityBudget)
	assert.Equal(t, 24*time.Hour, cfg.ResultTTL)
	assert.Equal(t, "default", cfg.TemporalNamespace)
	assert.Empty(t, cfg.WorkerQueues)
	assert.False(t, cfg.OIDCEnabled())
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, 1.0, cfg.OTelSampleRatio)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Empty(t, cfg.RedisPassword)
	assert.Zero(t, cfg.RedisDB)
}

func TestLoadFromEnv_ProductionValid(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENTCHECK_MODE", "production")
	t.Setenv("EVENTCHECK_EVENTS_DATABASE", "analytics")
	t.Setenv("EVENTCHECK_EVENTS_TABLE", "raw_events")
	t.Setenv("EVENTCHECK_EVENTS_OUTPUT_BUCKET", "s3://athena-out")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ModeProduction, cfg.Mode)
	assert.Equal(t, "analytics", cfg.EventsDatabase)
	assert.Equal(t, "raw_events", cfg.EventsTable)
}

func TestLoadFromEnv_ProductionMissingRequired(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENTCHECK_MODE", "production")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EVENTCHECK_EVENTS_DATABASE")
}

func TestLoadFromEnv_ProductionWithEventCommand(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENTCHECK_MODE", "production")
	t.Setenv("EVENTCHECK_EVENT_COMMAND", "fetch-event --env prod")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "fetch-event --env prod", cfg.EventCommand)
}

func TestLoadFromEnv_InvalidMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENTCHECK_MODE", "invalid")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid EVENTCHECK_MODE")
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENTCHECK_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("EVENTCHECK_BATCH_CONCURRENCY", "3")
	t.Setenv("EVENTCHECK_RESULT_TTL", "90m")
	t.Setenv("EVENTCHECK_OTEL_ENABLED", "true")
	t.Setenv("EVENTCHECK_OIDC_ISSUER", "https://issuer.example")
	t.Setenv("EVENTCHECK_OIDC_AUDIENCE", "eventcheck")
	t.Setenv("EVENTCHECK_REDIS_ADDR", "redis:6379")
	t.Setenv("EVENTCHECK_REDIS_PASSWORD", "s3cret")
	t.Setenv("EVENTCHECK_REDIS_DB", "2")
	t.Setenv("EVENTCHECK_OTEL_ENDPOINT", "http://collector:4318")
	t.Setenv("EVENTCHECK_OTEL_SAMPLE_RATIO", "0.25")
	t.Setenv("EVENTCHECK_VERSION", "1.4.0")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "s3cret", cfg.RedisPassword)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "http://collector:4318", cfg.OTelEndpoint)
	assert.Equal(t, 0.25, cfg.OTelSampleRatio)
	assert.Equal(t, "1.4.0", cfg.ServiceVersion)
	assert.Equal(t, 3, cfg.BatchConcurrency)
	assert.Equal(t, 90*time.Minute, cfg.ResultTTL)
	assert.True(t, cfg.OTelEnabled)
	assert.True(t, cfg.OIDCEnabled())
}

func TestLoadFromEnv_InvalidNumbers(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"EVENTCHECK_BATCH_CONCURRENCY", "many", "EVENTCHECK_BATCH_CONCURRENCY"},
		{"EVENTCHECK_BATCH_CONCURRENCY", "0", "at least 1"},
		{"EVENTCHECK_RATE_LIMIT_RPS", "-1", "rate limit"},
		{"EVENTCHECK_ACTIVITY_BUDGET", "-5", "must not be negative"},
		{"EVENTCHECK_RESULT_TTL", "forever", "EVENTCHECK_RESULT_TTL"},
		{"EVENTCHECK_OTEL_ENABLED", "maybe", "EVENTCHECK_OTEL_ENABLED"},
		{"EVENTCHECK_OTEL_SAMPLE_RATIO", "1.5", "within [0, 1]"},
		{"EVENTCHECK_REDIS_DB", "-1", "EVENTCHECK_REDIS_DB must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromEnv_IssuerWithoutAudience(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENTCHECK_OIDC_ISSUER", "https://issuer.example")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EVENTCHECK_OIDC_AUDIENCE")
}

func TestLoadAliases_Default(t *testing.T) {
	rules, err := LoadAliases("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAliasRules(), rules)
}

func TestLoadAliases_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
aliases:
  - a: user_id
    b: userId
    label: user
  - a: event_type
    b: type
`), 0o600))

	rules, err := LoadAliases(path)
	require.NoError(t, err)
	assert.Equal(t, []domain.AliasRule{
		{A: "user_id", B: "userId", Label: "user"},
		{A: "event_type", B: "type"},
	}, rules)
}

func TestLoadAliases_Missing(t *testing.T) {
	_, err := LoadAliases(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read alias file")
}

func TestParseAliases(t *testing.T) {
	rules, err := ParseAliases([]byte("aliases: []\n"))
	require.NoError(t, err)
	assert.Empty(t, rules)

	_, err = ParseAliases([]byte("aliases:\n  - a: x\n    b: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")

	_, err = ParseAliases([]byte("aliases: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse alias file")
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"EVENTCHECK_MODE", "FIXTURES_DIR", "AWS_REGION", "AWS_PROFILE",
		"EVENTCHECK_CROSS_ACCOUNT_ROLE", "EVENTCHECK_EVENTS_DATABASE", "EVENTCHECK_EVENTS_TABLE",
		"EVENTCHECK_EVENTS_WORKGROUP", "EVENTCHECK_EVENTS_OUTPUT_BUCKET",
		"EVENTCHECK_CLOUDWATCH_NAMESPACE", "EVENTCHECK_ALIAS_FILE", "EVENTCHECK_API_PORT",
		"EVENTCHECK_CORS_ORIGINS", "EVENTCHECK_OIDC_ISSUER", "EVENTCHECK_OIDC_AUDIENCE",
		"EVENTCHECK_RATE_LIMIT_RPS", "EVENTCHECK_RATE_LIMIT_BURST", "EVENTCHECK_REDIS_ADDR",
		"EVENTCHECK_RESULT_TTL", "TEMPORAL_ADDRESS", "TEMPORAL_NAMESPACE", "EVENTCHECK_WORKER_QUEUES",
		"EVENTCHECK_BATCH_CONCURRENCY", "EVENTCHECK_OTEL_ENABLED", "EVENTCHECK_LOG_LEVEL",
		"EVENTCHECK_EVENT_COMMAND", "EVENTCHECK_ACTIVITY_BUDGET", "EVENTCHECK_REDIS_PASSWORD",
		"EVENTCHECK_REDIS_DB", "EVENTCHECK_OTEL_ENDPOINT", "EVENTCHECK_OTEL_SAMPLE_RATIO",
		"EVENTCHECK_VERSION",
	} {
		// t.Setenv saves the current value and restores it on cleanup.
		// Setting to "" then unsetting ensures the key is absent during the test.
		orig, wasSet := os.LookupEnv(key)
		if wasSet {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}
