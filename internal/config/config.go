package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Apollo     ApolloConfig     `yaml:"apollo" mapstructure:"apollo"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	Model          string `yaml:"model" mapstructure:"model"`
	MaxTokens      int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	ScoreMaxTokens int64  `yaml:"score_max_tokens" mapstructure:"score_max_tokens"`
}

// ApolloConfig holds people-data API settings.
type ApolloConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ResearchConfig configures the web research phase of research-draft.
type ResearchConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	MaxSearches int    `yaml:"max_searches" mapstructure:"max_searches"`
	Focus       string `yaml:"focus" mapstructure:"focus"`
}

// NotionConfig holds Notion API credentials and the sources database ID.
type NotionConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	SourcesDB string `yaml:"sources_db" mapstructure:"sources_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID   string `yaml:"client_id" mapstructure:"client_id"`
	Username   string `yaml:"username" mapstructure:"username"`
	KeyPath    string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL   string `yaml:"login_url" mapstructure:"login_url"`
	LeadSource string `yaml:"lead_source" mapstructure:"lead_source"`
}

// PipelineConfig configures the outreach stages.
type PipelineConfig struct {
	ProfilePath      string `yaml:"profile_path" mapstructure:"profile_path"`
	TemplatesDir     string `yaml:"templates_dir" mapstructure:"templates_dir"`
	SchedulingLink   string `yaml:"scheduling_link" mapstructure:"scheduling_link"`
	MinScore         int    `yaml:"min_score" mapstructure:"min_score"`
	StaleAfterDays   int    `yaml:"stale_after_days" mapstructure:"stale_after_days"`
	MaxContentLength int    `yaml:"max_content_length" mapstructure:"max_content_length"`
	EnrichDelayMS    int    `yaml:"enrich_delay_ms" mapstructure:"enrich_delay_ms"`
	LLMDelayMS       int    `yaml:"llm_delay_ms" mapstructure:"llm_delay_ms"`
}

// StaleAfter returns the score staleness window.
func (p PipelineConfig) StaleAfter() time.Duration {
	return time.Duration(p.StaleAfterDays) * 24 * time.Hour
}

// EnrichDelay returns the pause between people-data lookups.
func (p PipelineConfig) EnrichDelay() time.Duration {
	return time.Duration(p.EnrichDelayMS) * time.Millisecond
}

// LLMDelay returns the pause between language-model calls.
func (p PipelineConfig) LLMDelay() time.Duration {
	return time.Duration(p.LLMDelayMS) * time.Millisecond
}

// RetryConfig configures rate-limit retries.
type RetryConfig struct {
	MaxAttempts    int `yaml:"max_attempts" mapstructure:"max_attempts"`
	ApolloBaseSecs int `yaml:"apollo_base_secs" mapstructure:"apollo_base_secs"`
	LLMBaseSecs    int `yaml:"llm_base_secs" mapstructure:"llm_base_secs"`
}

// ServerConfig configures the control server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WARMLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8788)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.score_max_tokens", 1024)
	v.SetDefault("apollo.key", "")
	v.SetDefault("apollo.base_url", "https://api.apollo.io")
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("research.provider", "anthropic")
	v.SetDefault("research.max_searches", 5)
	v.SetDefault("research.focus", "sustainability")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.sources_db", "")
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.lead_source", "Warmline")
	v.SetDefault("pipeline.profile_path", "profile.yaml")
	v.SetDefault("pipeline.templates_dir", "templates")
	v.SetDefault("pipeline.scheduling_link", "")
	v.SetDefault("pipeline.min_score", 40)
	v.SetDefault("pipeline.stale_after_days", 7)
	v.SetDefault("pipeline.max_content_length", 15000)
	v.SetDefault("pipeline.enrich_delay_ms", 1000)
	v.SetDefault("pipeline.llm_delay_ms", 500)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.apollo_base_secs", 10)
	v.SetDefault("retry.llm_base_secs", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command needs are present. mode names
// the command: discover, enrich, score, draft, research-draft, crm, notion,
// migrate, serve, or sources.
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(val, key string) {
		if strings.TrimSpace(val) == "" {
			errs = append(errs, key+" is required")
		}
	}

	switch c.Store.Driver {
	case "postgres":
		if mode != "serve" {
			require(c.Store.DatabaseURL, "store.database_url")
		}
	case "sqlite":
	default:
		errs = append(errs, "store.driver must be postgres or sqlite")
	}

	switch mode {
	case "discover", "score":
		require(c.Anthropic.Key, "anthropic.key")
	case "enrich":
		require(c.Apollo.Key, "apollo.key")
	case "draft":
		require(c.Anthropic.Key, "anthropic.key")
		require(c.Pipeline.ProfilePath, "pipeline.profile_path")
		require(c.Pipeline.TemplatesDir, "pipeline.templates_dir")
	case "research-draft":
		require(c.Anthropic.Key, "anthropic.key")
		require(c.Pipeline.ProfilePath, "pipeline.profile_path")
		require(c.Pipeline.TemplatesDir, "pipeline.templates_dir")
		switch c.Research.Provider {
		case "anthropic":
		case "gemini":
			require(c.Gemini.Key, "gemini.key")
		default:
			errs = append(errs, "research.provider must be anthropic or gemini")
		}
	case "crm":
		require(c.Salesforce.ClientID, "salesforce.client_id")
		require(c.Salesforce.Username, "salesforce.username")
		require(c.Salesforce.KeyPath, "salesforce.key_path")
	case "notion":
		require(c.Notion.Token, "notion.token")
		require(c.Notion.SourcesDB, "notion.sources_db")
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "migrate", "sources":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Pipeline.MinScore < 0 || c.Pipeline.MinScore > 100 {
		errs = append(errs, "pipeline.min_score must be between 0 and 100")
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry.max_attempts must be >= 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
