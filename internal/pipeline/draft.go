package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/resilience"
	"github.com/sells-group/warmline/internal/store"
	"github.com/sells-group/warmline/internal/structured"
	"github.com/sells-group/warmline/internal/templates"
	"github.com/sells-group/warmline/pkg/anthropic"
)

// DraftInput is everything the drafting prompt is built from.
type DraftInput struct {
	Prospect       *model.Prospect
	Profile        *templates.Profile
	Templates      *templates.Set
	EmailSkills    string
	SchedulingLink string

	// Research and Tone are set for research-backed drafts only.
	Research string
	Tone     model.Tone
}

// DraftPrompt builds the drafting prompt.
func DraftPrompt(in DraftInput) string {
	var parts []string
	add := func(lines ...string) { parts = append(parts, lines...) }

	add(`You are drafting a personalized cold outreach email on behalf of the sender. Return ONLY valid JSON with keys "subject" and "body". No other text.`, "")
	if in.EmailSkills != "" {
		add("## Email drafting guidelines (follow these strictly)", in.EmailSkills, "")
	}
	add("## Sender profile", in.Profile.Text, "")
	add("## Email template (structural guide, do NOT copy verbatim)", in.Templates.Introductory, "")
	if in.Templates.CaseStudies != "" {
		add("## Case studies",
			"Pick 2-3 case studies most relevant to the recipient's industry, role and organization. Preserve the original hyperlinks exactly.",
			in.Templates.CaseStudies, "")
	}
	if in.Templates.Offerings != "" {
		add("## Offerings",
			"Optionally reference ONE offering, only if it is highly relevant to the recipient's role.",
			in.Templates.Offerings, "")
	}
	if in.Research != "" {
		add("## Research findings (use these to personalize the email)", in.Research, "")
	}

	pr := in.Prospect
	employees := "Unknown"
	if pr.OrgEmployeeCount != nil {
		employees = fmt.Sprintf("%d", *pr.OrgEmployeeCount)
	}
	add("## Recipient",
		"Name: "+pr.Name,
		"Title: "+or(pr.Title, "Unknown"),
		"Organization: "+or(pr.Organization, "Unknown"),
		"Context: "+or(pr.Context, "None"),
		"Org Industry: "+or(pr.OrgIndustry, "Unknown"),
		"Org Employee Count: "+employees,
		"Seniority: "+or(pr.Seniority, "Unknown"),
		"Shared Background: "+or(pr.SharedBackground, "None"),
		"Priority Reasons: "+or(pr.PriorityReasons, "None"),
		"",
	)
	if in.SchedulingLink != "" {
		add("Scheduling link: "+in.SchedulingLink, "")
	}

	add("## Instructions")
	if in.Tone != "" {
		add(fmt.Sprintf("- Use the %q tone as described in the guidelines above.", in.Tone))
	}
	if in.Research != "" {
		add("- Weave in 1-2 specific research findings naturally. Do NOT be generic.")
	}
	add(
		"- Rewrite the raw context into a natural opening sentence. Do NOT paste it verbatim.",
		"- Subject line: under 60 characters, personal, no clickbait.",
		"- Body: 5-8 sentences, excluding case study bullets.",
	)
	if in.SchedulingLink != "" {
		add("- End with the scheduling link for booking a call.")
	}
	switch {
	case in.Templates.Signature != "":
		add("- End the email with this exact HTML signature (do not modify it):\n" + in.Templates.Signature)
	case in.Profile.Name != "":
		add(fmt.Sprintf("- Sign off as %q.", in.Profile.Name))
	}
	add("",
		"## Output format",
		`- "subject" is plain text.`,
		`- "body" MUST be HTML using only <p>, <br>, <strong>, <em>, <u>, <a href="...">, <ul>, <ol>, <li>. No markdown, no <div> or <span>, no inline styles.`,
		"",
		`Return ONLY: {"subject": "...", "body": "<p>...</p>"}`,
	)
	return strings.Join(parts, "\n")
}

func or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// Draft writes an outreach email for every enriched prospect at or above the
// score threshold that has no outreach yet.
func (p *Pipeline) Draft(ctx context.Context, opts RunOptions) (*Summary, error) {
	if p.llm == nil || p.profile == nil || p.library == nil {
		return nil, resilience.Fatalf("draft: llm client, profile and templates are required")
	}
	sum := newSummary("draft", opts.DryRun)

	scored := true
	people, targeted, err := p.selectProspects(ctx, opts, store.ProspectFilter{
		Statuses: []model.Status{model.StatusEnriched},
		Scored:   &scored,
	})
	if err != nil {
		return nil, err
	}
	if !targeted {
		minScore := p.cfg.MinScore
		if opts.MinScore != nil {
			minScore = *opts.MinScore
		}
		people = DraftCandidates(people, minScore)
	}
	zap.L().Info("draft: prospects selected", zap.Int("count", len(people)), zap.Bool("dry_run", opts.DryRun))

	b := batch[model.Prospect]{stage: "draft", delay: p.cfg.LLMDelay, describe: describeProspect, report: p.report}
	return b.run(ctx, sum, people, func(ctx context.Context, pr model.Prospect) Result {
		return p.draftProspect(ctx, opts, &pr, nil)
	}), nil
}

// existingOutreach returns the prospect's outreach row, or nil.
func (p *Pipeline) existingOutreach(ctx context.Context, personID string) (*model.Outreach, error) {
	o, err := p.store.GetOutreachByPerson(ctx, personID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load outreach for %s", personID)
	}
	return o, nil
}

// draftProspect drafts and saves one email. A non-nil research result makes
// it a research-backed draft.
func (p *Pipeline) draftProspect(ctx context.Context, opts RunOptions, pr *model.Prospect, research *model.ResearchResult) Result {
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
	set, err := p.library.Get(tag)
	if err != nil {
		return Result{Err: err}
	}
	skills, err := p.library.EmailSkills()
	if err != nil {
		return Result{Err: err}
	}

	in := DraftInput{
		Prospect:       pr,
		Profile:        p.profile,
		Templates:      set,
		EmailSkills:    skills,
		SchedulingLink: p.cfg.SchedulingLink,
	}
	var notes []byte
	if research != nil {
		if notes, err = marshalResearch(research); err != nil {
			return Result{Err: err}
		}
		in.Research = string(notes)
		in.Tone = opts.Tone
	}

	draft, ok, err := p.draftEmail(ctx, in)
	if err != nil {
		return Result{Err: eris.Wrapf(err, "draft: %s", pr.ID)}
	}
	if !ok {
		return Result{Outcome: OutcomeSkipped, Detail: "request rejected"}
	}

	pl := &plan{prospectID: pr.ID}
	pl.outreach = &model.Outreach{
		ID:            uuid.NewString(),
		PersonID:      pr.ID,
		Channel:       model.ChannelEmail,
		Subject:       strings.TrimSpace(draft.Subject),
		Body:          strings.TrimSpace(draft.Body),
		ResearchNotes: notes,
		Tone:          in.Tone,
		Status:        model.OutreachStatusDrafted,
	}
	if existing != nil {
		pl.outreach.ID = existing.ID
		pl.outreach.CreatedAt = existing.CreatedAt
		pl.outreachExists = true
	}
	pl.update.Status = statusPtr(pr.Status.Advance(model.StatusOutreachDrafted))

	if _, err := p.commit(ctx, opts.DryRun, pl); err != nil {
		return Result{Err: eris.Wrapf(err, "draft: save %s", pr.ID)}
	}
	detail := "subject: " + pl.outreach.Subject
	if pl.outreachExists {
		detail += " (updated)"
	}
	return Result{Detail: detail}
}

func (p *Pipeline) draftEmail(ctx context.Context, in DraftInput) (*model.DraftResult, bool, error) {
	req := anthropic.MessageRequest{
		Model:     p.cfg.Model,
		MaxTokens: p.cfg.MaxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: DraftPrompt(in)}},
	}
	resp, ok, err := resilience.Call(ctx, p.cfg.LLMPolicy.For("draft"), func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return p.llm.CreateMessage(ctx, req)
	})
	if err != nil || !ok {
		return nil, ok, err
	}
	resp.Usage.LogCost(p.cfg.Model, "draft")

	var out model.DraftResult
	if err := structured.Decode(resp.Text(), structured.ShapeObject, resp.Truncated(), &out); err != nil {
		return nil, false, err
	}
	if !out.Valid() {
		return nil, false, &structured.MalformedOutputError{Shape: structured.ShapeObject, Reason: "subject and body are required"}
	}
	return &out, true, nil
}
