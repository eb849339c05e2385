package research

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/resilience"
	"github.com/sells-group/warmline/pkg/gemini"
)

// GeminiConfig configures the Gemini grounded researcher.
type GeminiConfig struct {
	MaxTokens   int32
	MaxSearches int
	Focus       string
	Policy      resilience.Policy
}

// GeminiResearcher researches with Google Search grounding.
type GeminiResearcher struct {
	client gemini.Client
	cfg    GeminiConfig
}

// NewGemini creates a GeminiResearcher.
func NewGemini(client gemini.Client, cfg GeminiConfig) *GeminiResearcher {
	if cfg.MaxSearches <= 0 {
		cfg.MaxSearches = 5
	}
	return &GeminiResearcher{client: client, cfg: cfg}
}

func (r *GeminiResearcher) Name() string { return "gemini" }

func (r *GeminiResearcher) Research(ctx context.Context, p *model.Prospect) (*model.ResearchResult, error) {
	req := gemini.Request{
		System:    systemPrompt,
		Prompt:    Prompt(p, r.cfg.Focus, r.cfg.MaxSearches),
		MaxTokens: r.cfg.MaxTokens,
	}

	resp, ok, err := resilience.Call(ctx, r.cfg.Policy.For("research"), func(ctx context.Context) (*gemini.Response, error) {
		return r.client.GroundedGenerate(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "research: gemini for %s", p.ID)
	}
	if !ok {
		return nil, ErrRejected
	}

	out, err := decode(resp.Text, resp.Truncated)
	if err != nil {
		return nil, err
	}
	if len(out.Sources) == 0 {
		out.Sources = resp.Sources
	}
	zap.L().Debug("research: complete",
		zap.String("person_id", p.ID),
		zap.Strings("queries", resp.Queries),
		zap.Int("sources", len(resp.Sources)),
		zap.String("quality", out.SearchQuality),
	)
	return out, nil
}
