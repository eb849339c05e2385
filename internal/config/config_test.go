package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8788, cfg.Server.Port)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.Equal(t, int64(1024), cfg.Anthropic.ScoreMaxTokens)
	assert.Equal(t, "https://api.apollo.io", cfg.Apollo.BaseURL)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "anthropic", cfg.Research.Provider)
	assert.Equal(t, 5, cfg.Research.MaxSearches)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.Equal(t, 40, cfg.Pipeline.MinScore)
	assert.Equal(t, 15000, cfg.Pipeline.MaxContentLength)
	assert.Equal(t, 7*24*time.Hour, cfg.Pipeline.StaleAfter())
	assert.Equal(t, time.Second, cfg.Pipeline.EnrichDelay())
	assert.Equal(t, 500*time.Millisecond, cfg.Pipeline.LLMDelay())
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 10, cfg.Retry.ApolloBaseSecs)
	assert.Equal(t, 5, cfg.Retry.LLMBaseSecs)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: warmline.db
log:
  level: debug
  format: console
server:
  port: 9090
pipeline:
  min_score: 55
  templates_dir: /srv/templates
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warmline.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 55, cfg.Pipeline.MinScore)
	assert.Equal(t, "/srv/templates", cfg.Pipeline.TemplatesDir)
	// Defaults still apply for unset values
	assert.Equal(t, 7, cfg.Pipeline.StaleAfterDays)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("WARMLINE_STORE_DRIVER", "postgres")
	t.Setenv("WARMLINE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("WARMLINE_SERVER_PORT", "3000")
	t.Setenv("WARMLINE_APOLLO_KEY", "ap-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "ap-key", cfg.Apollo.Key)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/warmline"
	cfg.Pipeline.MinScore = 40
	cfg.Pipeline.ProfilePath = "profile.yaml"
	cfg.Pipeline.TemplatesDir = "templates"
	cfg.Research.Provider = "anthropic"
	cfg.Retry.MaxAttempts = 3
	cfg.Server.Port = 8788
	return cfg
}

func TestValidateDiscover(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("discover")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("discover"))
}

func TestValidateEnrich(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apollo.key is required")
}

func TestValidate_MissingDatabaseURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.Driver = "sqlite"
	assert.NoError(t, cfg.Validate("score"))
}

func TestValidate_BadDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	err := cfg.Validate("migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidateResearchDraft_Gemini(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Research.Provider = "gemini"

	err := cfg.Validate("research-draft")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.key is required")

	cfg.Gemini.Key = "g-key"
	assert.NoError(t, cfg.Validate("research-draft"))

	cfg.Research.Provider = "bing"
	assert.ErrorContains(t, cfg.Validate("research-draft"), "research.provider")
}

func TestValidateCRM_MissingFields(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("crm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salesforce.client_id is required")
	assert.Contains(t, err.Error(), "salesforce.username is required")
	assert.Contains(t, err.Error(), "salesforce.key_path is required")
}

func TestValidateNotion(t *testing.T) {
	cfg := validDefaults()
	cfg.Notion.Token = "ntn_token"
	err := cfg.Validate("notion")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.sources_db is required")

	cfg.Notion.SourcesDB = "db-id"
	assert.NoError(t, cfg.Validate("notion"))
}

func TestValidateServe_Port(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidate_Bounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.MinScore = 101
	assert.ErrorContains(t, cfg.Validate("migrate"), "pipeline.min_score")

	cfg.Pipeline.MinScore = 40
	cfg.Retry.MaxAttempts = 0
	assert.ErrorContains(t, cfg.Validate("migrate"), "retry.max_attempts")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
