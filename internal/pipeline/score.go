package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/resilience"
	"github.com/sells-group/warmline/internal/scoring"
	"github.com/sells-group/warmline/internal/store"
	"github.com/sells-group/warmline/internal/structured"
	"github.com/sells-group/warmline/pkg/anthropic"
)

// ScorePrompt assembles the scoring prompt for a prospect.
func ScorePrompt(profile string, in scoring.PromptInput) string {
	var b strings.Builder
	b.WriteString("You are scoring a business development prospect for priority outreach.\n\n")
	b.WriteString("## Sender profile\n")
	b.WriteString(profile)
	b.WriteString("\n\n")
	b.WriteString(in.Render())
	b.WriteString("\n")
	b.WriteString(scoring.Instructions)
	return b.String()
}

// Score rates enriched prospects whose score is missing or stale.
func (p *Pipeline) Score(ctx context.Context, opts RunOptions) (*Summary, error) {
	if p.llm == nil || p.profile == nil {
		return nil, resilience.Fatalf("score: llm client and profile are required")
	}
	sum := newSummary("score", opts.DryRun)

	people, targeted, err := p.selectProspects(ctx, opts, store.ProspectFilter{
		Statuses: []model.Status{model.StatusEnriched},
	})
	if err != nil {
		return nil, err
	}
	if !targeted {
		people = ScoreCandidates(people, p.now(), p.cfg.StaleAfter, opts.Force)
	}
	zap.L().Info("score: prospects selected", zap.Int("count", len(people)), zap.Bool("dry_run", opts.DryRun))

	b := batch[model.Prospect]{stage: "score", delay: p.cfg.LLMDelay, describe: describeProspect, report: p.report}
	return b.run(ctx, sum, people, func(ctx context.Context, pr model.Prospect) Result {
		return p.scoreProspect(ctx, opts, &pr)
	}), nil
}

func (p *Pipeline) scoreProspect(ctx context.Context, opts RunOptions, pr *model.Prospect) Result {
	now := p.now().UTC()
	maxTokens := p.cfg.ScoreMaxTokens
	if maxTokens <= 0 {
		maxTokens = p.cfg.MaxTokens
	}
	req := anthropic.MessageRequest{
		Model:     p.cfg.Model,
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: ScorePrompt(p.profile.Text, scoring.NewPromptInput(pr, now)),
		}},
	}

	resp, ok, err := resilience.Call(ctx, p.cfg.LLMPolicy.For("score"), func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return p.llm.CreateMessage(ctx, req)
	})
	if err != nil {
		return Result{Err: eris.Wrapf(err, "score: %s", pr.ID)}
	}
	if !ok {
		return Result{Outcome: OutcomeSkipped, Detail: "request rejected"}
	}
	resp.Usage.LogCost(p.cfg.Model, "score")

	var res model.ScoreResult
	if err := structured.Decode(resp.Text(), structured.ShapeObject, resp.Truncated(), &res); err != nil {
		return Result{Err: eris.Wrapf(err, "score: decode %s", pr.ID)}
	}
	if err := scoring.Validate(res); err != nil {
		return Result{Err: eris.Wrapf(err, "score: validate %s", pr.ID)}
	}

	reasons := scoring.Reasons(res)
	shared := scoring.SharedBackground(res)
	total := res.TotalScore
	pl := &plan{prospectID: pr.ID}
	pl.update.PriorityScore = &total
	pl.update.PriorityReasons = &reasons
	pl.update.SharedBackground = &shared
	pl.update.ScoredAt = &now

	if _, err := p.commit(ctx, opts.DryRun, pl); err != nil {
		return Result{Err: eris.Wrapf(err, "score: save %s", pr.ID)}
	}
	return Result{Detail: fmt.Sprintf("score %d %s", total, reasons)}
}
