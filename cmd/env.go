package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/internal/fetch"
	"github.com/sells-group/warmline/internal/pipeline"
	"github.com/sells-group/warmline/internal/research"
	"github.com/sells-group/warmline/internal/resilience"
	"github.com/sells-group/warmline/internal/store"
	"github.com/sells-group/warmline/internal/templates"
	anthropicpkg "github.com/sells-group/warmline/pkg/anthropic"
	"github.com/sells-group/warmline/pkg/apollo"
	"github.com/sells-group/warmline/pkg/gemini"
	"github.com/sells-group/warmline/pkg/jina"
	"github.com/sells-group/warmline/pkg/salesforce"
)

// stageEnv holds the store and pipeline built for one command.
type stageEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (se *stageEnv) Close() {
	if se.Store != nil {
		_ = se.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "warmline.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func settings() pipeline.Settings {
	llmBase := time.Duration(cfg.Retry.LLMBaseSecs) * time.Second
	apolloBase := time.Duration(cfg.Retry.ApolloBaseSecs) * time.Second

	apolloPolicy := resilience.DefaultPolicy("apollo", apolloBase)
	llmPolicy := resilience.DefaultPolicy("anthropic", llmBase)
	crmPolicy := resilience.DefaultPolicy("salesforce", apolloBase)
	for _, p := range []*resilience.Policy{&apolloPolicy, &llmPolicy, &crmPolicy} {
		p.MaxAttempts = cfg.Retry.MaxAttempts
	}

	return pipeline.Settings{
		Model:          cfg.Anthropic.Model,
		MaxTokens:      cfg.Anthropic.MaxTokens,
		ScoreMaxTokens: cfg.Anthropic.ScoreMaxTokens,
		SchedulingLink: cfg.Pipeline.SchedulingLink,
		MinScore:       cfg.Pipeline.MinScore,
		StaleAfter:     cfg.Pipeline.StaleAfter(),
		EnrichDelay:    cfg.Pipeline.EnrichDelay(),
		LLMDelay:       cfg.Pipeline.LLMDelay(),
		ApolloPolicy:   apolloPolicy,
		LLMPolicy:      llmPolicy,
		CRMPolicy:      crmPolicy,
		LeadSource:     cfg.Salesforce.LeadSource,
	}
}

// initPipeline validates the config for mode, opens the store and wires the
// clients that stage needs. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string, extra ...pipeline.Option) (*stageEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	opts, err := stageOptions(ctx, mode)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	return &stageEnv{
		Store:    st,
		Pipeline: pipeline.New(st, settings(), opts...),
	}, nil
}

func stageOptions(ctx context.Context, mode string) ([]pipeline.Option, error) {
	var opts []pipeline.Option

	var llm anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		llm = anthropicpkg.NewClient(cfg.Anthropic.Key)
		opts = append(opts, pipeline.WithLLM(llm))
	}

	switch mode {
	case "discover":
		reader := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
		opts = append(opts, pipeline.WithFetcher(fetch.New(reader, fetch.WithMaxLength(cfg.Pipeline.MaxContentLength))))

	case "enrich":
		opts = append(opts, pipeline.WithApollo(apollo.NewClient(cfg.Apollo.Key, apollo.WithBaseURL(cfg.Apollo.BaseURL))))

	case "score":
		profile, err := templates.LoadProfile(cfg.Pipeline.ProfilePath)
		if err != nil {
			return nil, eris.Wrap(err, "load profile")
		}
		opts = append(opts, pipeline.WithTemplates(profile, nil))

	case "draft", "research-draft":
		profile, err := templates.LoadProfile(cfg.Pipeline.ProfilePath)
		if err != nil {
			return nil, eris.Wrap(err, "load profile")
		}
		opts = append(opts, pipeline.WithTemplates(profile, templates.NewLibrary(cfg.Pipeline.TemplatesDir)))

		if mode == "research-draft" {
			r, err := initResearcher(ctx, llm)
			if err != nil {
				return nil, err
			}
			opts = append(opts, pipeline.WithResearcher(r))
		}

	case "crm":
		sf, err := salesforce.Dial(salesforce.Config{
			ClientID: cfg.Salesforce.ClientID,
			Username: cfg.Salesforce.Username,
			KeyPath:  cfg.Salesforce.KeyPath,
			LoginURL: cfg.Salesforce.LoginURL,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithCRM(sf))
	}

	return opts, nil
}

func initResearcher(ctx context.Context, llm anthropicpkg.Client) (research.Researcher, error) {
	llmBase := time.Duration(cfg.Retry.LLMBaseSecs) * time.Second

	switch cfg.Research.Provider {
	case "gemini":
		client, err := gemini.NewClient(ctx, gemini.Config{APIKey: cfg.Gemini.Key, Model: cfg.Gemini.Model})
		if err != nil {
			return nil, eris.Wrap(err, "init gemini")
		}
		policy := resilience.DefaultPolicy("gemini", llmBase)
		policy.MaxAttempts = cfg.Retry.MaxAttempts
		zap.L().Info("research provider: gemini", zap.String("model", cfg.Gemini.Model))
		return research.NewGemini(client, research.GeminiConfig{
			MaxTokens:   int32(cfg.Anthropic.MaxTokens),
			MaxSearches: cfg.Research.MaxSearches,
			Focus:       cfg.Research.Focus,
			Policy:      policy,
		}), nil
	default:
		policy := resilience.DefaultPolicy("anthropic", llmBase)
		policy.MaxAttempts = cfg.Retry.MaxAttempts
		return research.NewAnthropic(llm, research.AnthropicConfig{
			Model:       cfg.Anthropic.Model,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			MaxSearches: cfg.Research.MaxSearches,
			Focus:       cfg.Research.Focus,
			Policy:      policy,
		}), nil
	}
}
