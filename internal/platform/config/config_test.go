package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEnvPostgresDSN = "POSTGRES_DSN"
	testPostgresDSN    = "postgres://localhost/test"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv(testEnvPostgresDSN, "")
	os.Unsetenv(testEnvPostgresDSN)

	_, err := Load()
	require.Error(t, err, "expected error for missing required env vars")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testPostgresDSN, cfg.PostgresDSN)
	assert.Equal(t, "local", cfg.AppEnv)
	assert.True(t, cfg.IsLocal())
	assert.Equal(t, 6*time.Hour, cfg.ArticleTTL)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 8*time.Second, cfg.FetchConfig.Timeout)
	assert.Equal(t, 1, cfg.BatchSize)
	assert.True(t, cfg.LLMConfig.Enabled)
	assert.Equal(t, 3, cfg.Attempts)
	assert.Equal(t, time.Second, cfg.InitialDelay)
	assert.Equal(t, 24*time.Hour, cfg.Window)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("FETCH_CONCURRENCY", "5")
	t.Setenv("SUMMARY_BATCH_SIZE", "4")
	t.Setenv("LLM_ENABLED", "false")
	t.Setenv("FETCH_SKIP_HOSTS", "x.com, Instagram.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, 4, cfg.BatchSize)
	assert.False(t, cfg.LLMConfig.Enabled)
	assert.Equal(t, []string{"x.com", "instagram.com"}, SplitList(cfg.SkipHosts))
}

func TestLoad_Aliases(t *testing.T) {
	setRequiredEnvVars(t)
	os.Unsetenv("LLM_API_KEY")
	os.Unsetenv("FETCH_CONCURRENCY")
	t.Setenv("OPENAI_API_KEY", "sk-alias")
	t.Setenv("ENRICHMENT_CONCURRENCY", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-alias", cfg.APIKey)
	assert.Equal(t, 7, cfg.Concurrency)
}

func TestLoad_IngestSettings(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("INGEST_RETENTION", "168h")
	t.Setenv("INGEST_USER_AGENT", "Poller/2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.PollInterval)
	assert.Equal(t, 50, cfg.MaxItems)
	assert.Equal(t, 168*time.Hour, cfg.Retention)
	assert.Equal(t, "Poller/2", cfg.IngestConfig.UserAgent)
	assert.Equal(t, "FeedDigest/1.0 (+digest builder)", cfg.FetchConfig.UserAgent)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList("   "))
	assert.Equal(t, []string{"a", "b"}, SplitList("A, ,b,"))
}
