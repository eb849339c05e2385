package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/internal/fetch"
	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/resilience"
	"github.com/sells-group/warmline/internal/store"
	"github.com/sells-group/warmline/internal/structured"
	"github.com/sells-group/warmline/pkg/anthropic"
)

const extractInstructions = `Analyze the following web page content and extract all people mentioned. For each person, provide their name, title or role, organization, email address and LinkedIn profile URL when present on the page, and a personalization-ready context.

The context field is used to write personalized outreach:
1. If the person is quoted or paraphrased on the page, use the quote or a close paraphrase.
2. Otherwise describe the event or setting where they appear, with the event name, date, location and their role.
3. Be specific. "Mentioned on the page" is useless.

Only include email and linkedin when they actually appear on the page. Do not guess.

Return ONLY a JSON array. Each element has the string fields "name", "title", "organization", "email", "linkedin" and "context" (empty string when unknown). Return [] when no people are found.`

// ExtractPrompt builds the extraction prompt for a fetched page.
func ExtractPrompt(page *fetch.Page) string {
	var b strings.Builder
	b.WriteString(extractInstructions)
	fmt.Fprintf(&b, "\n\nPage title: %s\nPage URL: %s\n\nPage content:\n%s", page.Title, page.URL, page.Text)
	return b.String()
}

// Discover fetches every due source, extracts the people on it and inserts
// them as discovered prospects.
func (p *Pipeline) Discover(ctx context.Context, opts RunOptions) (*Summary, error) {
	if p.fetcher == nil || p.llm == nil {
		return nil, resilience.Fatalf("discover: fetcher and llm client are required")
	}
	sum := newSummary("discover", opts.DryRun)

	var sources []model.Source
	if opts.SourceID != "" {
		s, err := p.store.GetSource(ctx, opts.SourceID)
		if err != nil {
			return nil, eris.Wrapf(err, "discover: load source %s", opts.SourceID)
		}
		sources = []model.Source{*s}
	} else {
		list, err := p.store.ListSources(ctx, store.SourceFilter{ActiveOnly: true, ForTag: opts.ForTag})
		if err != nil {
			return nil, eris.Wrap(err, "discover: list sources")
		}
		sources = DueSources(list, p.now())
	}
	zap.L().Info("discover: sources selected", zap.Int("count", len(sources)), zap.Bool("dry_run", opts.DryRun))

	b := batch[model.Source]{
		stage:    "discover",
		describe: func(s model.Source) (string, string) { return s.ID, s.URL },
		report:   p.report,
	}
	return b.run(ctx, sum, sources, func(ctx context.Context, s model.Source) Result {
		return p.discoverSource(ctx, opts, sum, s)
	}), nil
}

func (p *Pipeline) discoverSource(ctx context.Context, opts RunOptions, sum *Summary, src model.Source) Result {
	page, err := p.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return Result{Err: eris.Wrapf(err, "discover: fetch %s", src.URL)}
	}

	people, err := p.extractPeople(ctx, page)
	if err != nil {
		return Result{Err: err}
	}

	pl := &plan{prospectID: src.ID, sourceID: src.ID, sourceMarked: true}
	seen := make(map[string]struct{}, len(people))
	for _, ep := range people {
		if !ep.Valid() {
			continue
		}
		key := model.IdentityKey(ep.Name, ep.Organization, src.ForTag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		pl.inserts = append(pl.inserts, newProspect(ep, src))
	}
	pl.sourceCount = len(pl.inserts)
	sum.Count("extracted", len(pl.inserts))

	res, err := p.commit(ctx, opts.DryRun, pl)
	sum.Count("inserted", res.inserted)
	sum.Count("duplicates", res.duplicates)
	if err != nil {
		return Result{Err: eris.Wrapf(err, "discover: save people from %s", src.URL)}
	}
	return Result{Detail: fmt.Sprintf("%d extracted, %d inserted, %d duplicates", len(pl.inserts), res.inserted, res.duplicates)}
}

func (p *Pipeline) extractPeople(ctx context.Context, page *fetch.Page) ([]model.ExtractedPerson, error) {
	req := anthropic.MessageRequest{
		Model:     p.cfg.Model,
		MaxTokens: p.cfg.MaxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: ExtractPrompt(page)}},
	}
	resp, ok, err := resilience.Call(ctx, p.cfg.LLMPolicy.For("extract"), func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return p.llm.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "discover: extract people from %s", page.URL)
	}
	if !ok {
		return nil, nil
	}
	resp.Usage.LogCost(p.cfg.Model, "extract")

	var people []model.ExtractedPerson
	if err := structured.Decode(resp.Text(), structured.ShapeArray, resp.Truncated(), &people); err != nil {
		return nil, eris.Wrapf(err, "discover: decode people from %s", page.URL)
	}
	return people, nil
}

func newProspect(ep model.ExtractedPerson, src model.Source) *model.Prospect {
	return &model.Prospect{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(ep.Name),
		Title:        strings.TrimSpace(ep.Title),
		Organization: strings.TrimSpace(ep.Organization),
		Email:        strings.TrimSpace(ep.Email),
		LinkedIn:     strings.TrimSpace(ep.LinkedIn),
		Context:      strings.TrimSpace(ep.Context),
		SourceURL:    src.URL,
		ForTag:       src.ForTag,
		Status:       model.StatusDiscovered,
	}
}
