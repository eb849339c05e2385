package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/resilience"
	"github.com/sells-group/warmline/internal/store"
	"github.com/sells-group/warmline/pkg/salesforce"
)

// PushCRM creates a Salesforce Lead for every drafted prospect that is not
// yet linked to one. A Lead that already exists with the same email is
// linked instead of duplicated.
func (p *Pipeline) PushCRM(ctx context.Context, opts RunOptions) (*Summary, error) {
	if p.crm == nil {
		return nil, resilience.Fatalf("crm: salesforce client is required")
	}
	sum := newSummary("crm", opts.DryRun)

	people, targeted, err := p.selectProspects(ctx, opts, store.ProspectFilter{
		Statuses: []model.Status{model.StatusOutreachDrafted},
	})
	if err != nil {
		return nil, err
	}
	if !targeted {
		people = unlinked(people)
	}
	zap.L().Info("crm: prospects selected", zap.Int("count", len(people)), zap.Bool("dry_run", opts.DryRun))

	b := batch[model.Prospect]{stage: "crm", describe: describeProspect, report: p.report}
	return b.run(ctx, sum, people, func(ctx context.Context, pr model.Prospect) Result {
		return p.pushProspect(ctx, opts, sum, &pr)
	}), nil
}

func unlinked(people []model.Prospect) []model.Prospect {
	var out []model.Prospect
	for _, pr := range people {
		if pr.CRMLeadID == "" {
			out = append(out, pr)
		}
	}
	return out
}

func (p *Pipeline) pushProspect(ctx context.Context, opts RunOptions, sum *Summary, pr *model.Prospect) Result {
	if pr.CRMLeadID != "" && !opts.Force {
		return Result{Outcome: OutcomeSkipped, Detail: "already linked to lead " + pr.CRMLeadID}
	}

	lw := &leadWrite{fields: LeadFields(pr, p.cfg.LeadSource)}
	if pr.Email != "" {
		existing, _, err := resilience.Call(ctx, p.cfg.CRMPolicy.For("find_lead"), func(ctx context.Context) (*salesforce.Lead, error) {
			return salesforce.FindLeadByEmail(ctx, p.crm, pr.Email)
		})
		if err != nil {
			return Result{Err: eris.Wrapf(err, "crm: find lead for %s", pr.ID)}
		}
		if existing != nil {
			lw.existingID = existing.ID
		}
	}

	pl := &plan{prospectID: pr.ID, lead: lw}
	res, err := p.commit(ctx, opts.DryRun, pl)
	if err != nil {
		return Result{Err: eris.Wrapf(err, "crm: push %s", pr.ID)}
	}
	if lw.existingID != "" {
		sum.Count("linked", 1)
		return Result{Detail: "linked existing lead " + lw.existingID}
	}
	sum.Count("created", 1)
	if opts.DryRun {
		return Result{Detail: "would create lead"}
	}
	return Result{Detail: "created lead " + res.leadID}
}

// LeadFields maps a prospect onto Salesforce Lead fields.
func LeadFields(pr *model.Prospect, leadSource string) map[string]any {
	first, last := model.SplitName(pr.Name)
	if last == "" {
		first, last = "", first
	}
	fields := map[string]any{
		"LastName":   last,
		"Company":    or(pr.Organization, "Unknown"),
		"LeadSource": leadSource,
	}
	set := func(key, value string) {
		if v := strings.TrimSpace(value); v != "" {
			fields[key] = v
		}
	}
	set("FirstName", first)
	set("Title", pr.Title)
	set("Email", pr.Email)
	set("Description", pr.Context)
	if pr.OrgIndustry != "" {
		fields["Industry"] = pr.OrgIndustry
	}
	if pr.OrgEmployeeCount != nil {
		fields["NumberOfEmployees"] = *pr.OrgEmployeeCount
	}
	if pr.PriorityScore != nil {
		fields["Rating"] = rating(*pr.PriorityScore)
	}
	return fields
}

// rating buckets a priority score into Salesforce's Hot/Warm/Cold picklist.
func rating(score int) string {
	switch {
	case score >= 70:
		return "Hot"
	case score >= 40:
		return "Warm"
	default:
		return "Cold"
	}
}

// pushLead returns the linked lead id, creating the lead when it does not
// exist.
func (p *Pipeline) pushLead(ctx context.Context, lw *leadWrite) (string, error) {
	if lw.existingID != "" {
		return lw.existingID, nil
	}
	id, ok, err := resilience.Call(ctx, p.cfg.CRMPolicy.For("create_lead"), func(ctx context.Context) (string, error) {
		return salesforce.CreateLead(ctx, p.crm, lw.fields)
	})
	if err != nil {
		return "", eris.Wrap(err, "pipeline: create lead")
	}
	if !ok {
		return "", eris.New("pipeline: lead rejected by salesforce")
	}
	return id, nil
}
