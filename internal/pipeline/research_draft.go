package pipeline

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/research"
	"github.com/sells-group/warmline/internal/resilience"
	"github.com/sells-group/warmline/internal/store"
)

// ResearchDraft researches a single prospect on the web and drafts a
// research-backed email in the requested tone.
func (p *Pipeline) ResearchDraft(ctx context.Context, opts RunOptions) (*Summary, error) {
	if opts.PersonID == "" {
		return nil, eris.New("research-draft: person id is required")
	}
	if opts.Tone == "" {
		opts.Tone = model.ToneWarm
	}
	if !opts.Tone.Valid() {
		return nil, eris.Errorf("research-draft: unknown tone %q", opts.Tone)
	}
	if p.llm == nil || p.researcher == nil || p.profile == nil || p.library == nil {
		return nil, resilience.Fatalf("research-draft: llm client, researcher, profile and templates are required")
	}
	sum := newSummary("research-draft", opts.DryRun)

	people, _, err := p.selectProspects(ctx, opts, store.ProspectFilter{})
	if err != nil {
		return nil, err
	}

	b := batch[model.Prospect]{stage: "research-draft", describe: describeProspect, report: p.report}
	return b.run(ctx, sum, people, func(ctx context.Context, pr model.Prospect) Result {
		return p.researchDraftProspect(ctx, opts, &pr)
	}), nil
}

func (p *Pipeline) researchDraftProspect(ctx context.Context, opts RunOptions, pr *model.Prospect) Result {
	existing, err := p.existingOutreach(ctx, pr.ID)
	if err != nil {
		return Result{Err: err}
	}
	if existing != nil && !opts.Force {
		return Result{Outcome: OutcomeSkipped, Detail: "outreach already drafted"}
	}

	tag := pr.ForTag
	if opts.ForTag != "" {
		tag = opts.ForTag
	}
	if _, err := p.library.Get(tag); err != nil {
		return Result{Err: err}
	}

	found, err := p.researcher.Research(ctx, pr)
	if err != nil {
		if errors.Is(err, research.ErrRejected) {
			return Result{Outcome: OutcomeSkipped, Detail: "research rejected"}
		}
		return Result{Err: eris.Wrapf(err, "research-draft: research %s", pr.ID)}
	}
	zap.L().Info("research-draft: research complete",
		zap.String("person_id", pr.ID),
		zap.String("provider", p.researcher.Name()),
		zap.Int("org_news", len(found.OrgNews)),
		zap.Int("person_news", len(found.PersonNews)),
		zap.String("quality", found.SearchQuality),
	)

	return p.draftProspect(ctx, opts, pr, found)
}

func marshalResearch(r *model.ResearchResult) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: marshal research notes")
	}
	return data, nil
}
