// Package pipeline runs the outreach stages: discover, enrich, score, draft,
// research-draft and CRM push. Every stage selects due entities from the
// store, processes them one at a time and commits each entity's writes as its
// last step.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/internal/fetch"
	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/research"
	"github.com/sells-group/warmline/internal/resilience"
	"github.com/sells-group/warmline/internal/store"
	"github.com/sells-group/warmline/internal/templates"
	"github.com/sells-group/warmline/pkg/anthropic"
	"github.com/sells-group/warmline/pkg/apollo"
	"github.com/sells-group/warmline/pkg/salesforce"
)

// Fetcher retrieves a source page as text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// Settings holds the tuning shared by all stages.
type Settings struct {
	Model          string
	MaxTokens      int64
	ScoreMaxTokens int64

	SchedulingLink string
	MinScore       int
	StaleAfter     time.Duration

	EnrichDelay time.Duration
	LLMDelay    time.Duration

	ApolloPolicy resilience.Policy
	LLMPolicy    resilience.Policy
	CRMPolicy    resilience.Policy

	// LeadSource labels leads created by the CRM push.
	LeadSource string
}

// RunOptions are the per-invocation flags shared by every stage.
type RunOptions struct {
	PersonID string
	SourceID string
	ForTag   string
	DryRun   bool
	Force    bool
	Tone     model.Tone

	// MinScore overrides Settings.MinScore for one draft run. Nil keeps the
	// configured threshold; zero drafts every scored prospect.
	MinScore *int

	// Connections is the loaded offline contact export. Nil skips contact
	// matching.
	Connections []model.Contact
}

// Pipeline wires the stages to their collaborators.
type Pipeline struct {
	store      store.Store
	cfg        Settings
	llm        anthropic.Client
	apollo     apollo.Client
	fetcher    Fetcher
	researcher research.Researcher
	library    *templates.Library
	profile    *templates.Profile
	crm        salesforce.Client
	report     func(Result)
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLLM sets the Anthropic client used for extraction, scoring and drafting.
func WithLLM(c anthropic.Client) Option { return func(p *Pipeline) { p.llm = c } }

// WithApollo sets the people-data client.
func WithApollo(c apollo.Client) Option { return func(p *Pipeline) { p.apollo = c } }

// WithFetcher sets the page fetcher used by discovery.
func WithFetcher(f Fetcher) Option { return func(p *Pipeline) { p.fetcher = f } }

// WithResearcher sets the research provider used by research-draft.
func WithResearcher(r research.Researcher) Option { return func(p *Pipeline) { p.researcher = r } }

// WithTemplates sets the sender profile and the per-tag template library.
func WithTemplates(profile *templates.Profile, lib *templates.Library) Option {
	return func(p *Pipeline) { p.profile, p.library = profile, lib }
}

// WithCRM sets the Salesforce client used by the CRM push.
func WithCRM(c salesforce.Client) Option { return func(p *Pipeline) { p.crm = c } }

// WithReporter registers a callback invoked after each entity.
func WithReporter(fn func(Result)) Option { return func(p *Pipeline) { p.report = fn } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// New creates a Pipeline.
func New(st store.Store, cfg Settings, opts ...Option) *Pipeline {
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.LeadSource == "" {
		cfg.LeadSource = "Warmline"
	}
	p := &Pipeline{store: st, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// plan is every write one entity needs. commit applies it, or logs and drops
// it in a dry run.
type plan struct {
	prospectID string

	inserts []*model.Prospect
	update  store.ProspectUpdate

	outreach       *model.Outreach
	outreachExists bool

	lead *leadWrite

	logs []model.EnrichmentLog

	sourceID     string
	sourceCount  int
	sourceMarked bool
}

type leadWrite struct {
	existingID string
	fields     map[string]any
}

type commitResult struct {
	inserted   int
	duplicates int
	leadID     string
}

// commit applies pl. Primary writes fail the entity; audit rows and the
// source check timestamp are best effort.
func (p *Pipeline) commit(ctx context.Context, dryRun bool, pl *plan) (commitResult, error) {
	var res commitResult
	log := zap.L().With(zap.String("entity_id", pl.prospectID))

	if dryRun {
		log.Debug("pipeline: dry run, skipping writes",
			zap.Int("inserts", len(pl.inserts)),
			zap.Bool("update", !pl.update.Empty()),
			zap.Bool("outreach", pl.outreach != nil),
			zap.Int("audit_rows", len(pl.logs)),
		)
		return res, nil
	}

	var insertErr error
	for _, np := range pl.inserts {
		err := p.store.InsertProspect(ctx, np)
		switch {
		case err == nil:
			res.inserted++
		case errors.Is(err, store.ErrDuplicate):
			res.duplicates++
		default:
			log.Warn("pipeline: insert prospect failed", zap.String("name", np.Name), zap.Error(err))
			if insertErr == nil {
				insertErr = err
			}
		}
	}

	if pl.outreach != nil {
		var err error
		if pl.outreachExists {
			err = p.store.UpdateOutreach(ctx, pl.outreach)
		} else {
			err = p.store.InsertOutreach(ctx, pl.outreach)
		}
		if err != nil {
			return res, eris.Wrap(err, "pipeline: save outreach")
		}
	}

	if pl.lead != nil {
		id, err := p.pushLead(ctx, pl.lead)
		if err != nil {
			return res, err
		}
		res.leadID = id
		pl.update.CRMLeadID = &id
	}

	if !pl.update.Empty() {
		if err := p.store.UpdateProspect(ctx, pl.prospectID, pl.update); err != nil {
			return res, eris.Wrap(err, "pipeline: update prospect")
		}
	}

	if pl.sourceMarked {
		if err := p.store.MarkSourceChecked(ctx, pl.sourceID, p.now().UTC(), pl.sourceCount); err != nil {
			log.Warn("pipeline: could not update source", zap.String("source_id", pl.sourceID), zap.Error(err))
		}
	}

	for i := range pl.logs {
		if err := p.store.AppendEnrichmentLog(ctx, &pl.logs[i]); err != nil {
			log.Warn("pipeline: could not write enrichment log", zap.String("source", string(pl.logs[i].Source)), zap.Error(err))
		}
	}

	return res, insertErr
}

// selectProspects returns the single targeted prospect, or the result of
// filter when no prospect is targeted.
func (p *Pipeline) selectProspects(ctx context.Context, opts RunOptions, filter store.ProspectFilter) ([]model.Prospect, bool, error) {
	if opts.PersonID != "" {
		pr, err := p.store.GetProspect(ctx, opts.PersonID)
		if err != nil {
			return nil, true, eris.Wrapf(err, "pipeline: load prospect %s", opts.PersonID)
		}
		return []model.Prospect{*pr}, true, nil
	}
	filter.ForTag = opts.ForTag
	list, err := p.store.ListProspects(ctx, filter)
	if err != nil {
		return nil, false, eris.Wrap(err, "pipeline: list prospects")
	}
	return list, false, nil
}

func describeProspect(pr model.Prospect) (string, string) {
	label := pr.Name
	if pr.Organization != "" {
		label += " | " + pr.Organization
	}
	return pr.ID, label
}

func statusPtr(s model.Status) *model.Status { return &s }
