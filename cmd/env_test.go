package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/warmline/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "warmline.db"),
		},
		Anthropic: config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", MaxTokens: 4096},
		Apollo:    config.ApolloConfig{BaseURL: "http://127.0.0.1:0"},
		Pipeline:  config.PipelineConfig{MinScore: 40, StaleAfterDays: 7, EnrichDelayMS: 250},
		Retry:     config.RetryConfig{MaxAttempts: 4, ApolloBaseSecs: 2, LLMBaseSecs: 5},
		Research:  config.ResearchConfig{Provider: "anthropic"},
		Server:    config.ServerConfig{Port: 8788},
	}
}

func TestStageEnv_Close_Nil(t *testing.T) {
	se := &stageEnv{}
	assert.NotPanics(t, func() {
		se.Close()
	})
}

func TestOpenStore_SQLite(t *testing.T) {
	cfg = testConfig(t)

	st, err := openStore(context.Background())
	require.NoError(t, err)
	se := &stageEnv{Store: st}
	assert.NotPanics(t, func() {
		se.Close()
	})
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = testConfig(t)
	cfg.Store.Driver = "mysql"

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitPipeline_ValidatesConfig(t *testing.T) {
	cfg = testConfig(t)

	env, err := initPipeline(context.Background(), "enrich")
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apollo.key is required")
}

func TestInitPipeline_MissingProfile(t *testing.T) {
	cfg = testConfig(t)
	cfg.Anthropic.Key = "sk-ant-test"
	cfg.Pipeline.ProfilePath = filepath.Join(t.TempDir(), "missing.yaml")
	cfg.Pipeline.TemplatesDir = t.TempDir()

	_, err := initPipeline(context.Background(), "score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load profile")
}

func TestSettings(t *testing.T) {
	cfg = testConfig(t)

	s := settings()
	assert.Equal(t, 40, s.MinScore)
	assert.Equal(t, int64(4096), s.MaxTokens)
	assert.Equal(t, 4, s.ApolloPolicy.MaxAttempts)
	assert.Equal(t, 4, s.LLMPolicy.MaxAttempts)
	assert.Equal(t, "apollo", s.ApolloPolicy.Service)
	assert.Equal(t, "salesforce", s.CRMPolicy.Service)
	assert.Equal(t, 7*24, int(s.StaleAfter.Hours()))
	assert.Equal(t, int64(250), s.EnrichDelay.Milliseconds())
}
