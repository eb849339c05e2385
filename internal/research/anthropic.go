package research

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/resilience"
	"github.com/sells-group/warmline/pkg/anthropic"
)

// AnthropicConfig configures the Anthropic web-search researcher.
type AnthropicConfig struct {
	Model       string
	MaxTokens   int64
	MaxSearches int
	Focus       string
	Policy      resilience.Policy
}

// AnthropicResearcher researches with the server-side web search tool.
type AnthropicResearcher struct {
	client anthropic.Client
	cfg    AnthropicConfig
}

// NewAnthropic creates an AnthropicResearcher.
func NewAnthropic(client anthropic.Client, cfg AnthropicConfig) *AnthropicResearcher {
	if cfg.MaxSearches <= 0 {
		cfg.MaxSearches = 5
	}
	return &AnthropicResearcher{client: client, cfg: cfg}
}

func (r *AnthropicResearcher) Name() string { return "anthropic" }

func (r *AnthropicResearcher) Research(ctx context.Context, p *model.Prospect) (*model.ResearchResult, error) {
	req := anthropic.MessageRequest{
		Model:     r.cfg.Model,
		MaxTokens: r.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages:  []anthropic.Message{{Role: "user", Content: Prompt(p, r.cfg.Focus, r.cfg.MaxSearches)}},
		WebSearch: &anthropic.WebSearch{MaxUses: int64(r.cfg.MaxSearches)},
	}

	resp, ok, err := resilience.Call(ctx, r.cfg.Policy.For("research"), func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return r.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "research: anthropic for %s", p.ID)
	}
	if !ok {
		return nil, ErrRejected
	}
	resp.Usage.LogCost(r.cfg.Model, "research")

	out, err := decode(resp.Text(), resp.Truncated())
	if err != nil {
		return nil, err
	}
	zap.L().Debug("research: complete",
		zap.String("person_id", p.ID),
		zap.Int("org_news", len(out.OrgNews)),
		zap.Int("person_news", len(out.PersonNews)),
		zap.String("quality", out.SearchQuality),
	)
	return out, nil
}
