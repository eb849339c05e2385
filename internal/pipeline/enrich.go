package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/internal/contacts"
	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/resilience"
	"github.com/sells-group/warmline/internal/store"
	"github.com/sells-group/warmline/pkg/apollo"
)

// Enrich matches discovered prospects against the people-data API and the
// offline contact export, fills blank fields and marks them enriched.
func (p *Pipeline) Enrich(ctx context.Context, opts RunOptions) (*Summary, error) {
	if p.apollo == nil {
		return nil, resilience.Fatalf("enrich: apollo client is required")
	}
	sum := newSummary("enrich", opts.DryRun)

	people, _, err := p.selectProspects(ctx, opts, store.ProspectFilter{
		Statuses: []model.Status{model.StatusDiscovered},
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("enrich: prospects selected",
		zap.Int("count", len(people)),
		zap.Int("connections", len(opts.Connections)),
		zap.Bool("dry_run", opts.DryRun),
	)

	b := batch[model.Prospect]{stage: "enrich", delay: p.cfg.EnrichDelay, describe: describeProspect, report: p.report}
	return b.run(ctx, sum, people, func(ctx context.Context, pr model.Prospect) Result {
		return p.enrichProspect(ctx, opts, sum, &pr)
	}), nil
}

func (p *Pipeline) enrichProspect(ctx context.Context, opts RunOptions, sum *Summary, pr *model.Prospect) Result {
	pl := &plan{prospectID: pr.ID}
	first, last := model.SplitName(pr.Name)

	req := apollo.MatchRequest{FirstName: first, LastName: last, OrganizationName: strings.TrimSpace(pr.Organization)}
	match, _, err := resilience.Call(ctx, p.cfg.ApolloPolicy.For("people_match"), func(ctx context.Context) (*model.PersonMatch, error) {
		return p.apollo.Match(ctx, req)
	})
	pl.logs = append(pl.logs, auditRow(pr.ID, model.EnrichmentSourceApollo, match, err))
	if resilience.IsFatal(err) {
		return Result{Err: eris.Wrapf(err, "enrich: apollo match for %s", pr.ID)}
	}
	// Any other lookup failure is reported once the contact match and the
	// status change are saved.
	apolloErr := err

	var details []string
	if match != nil {
		MergeMatch(pr, match, &pl.update)
		sum.Count("apollo_matches", 1)
		details = append(details, "apollo match")
	}

	if opts.Connections != nil {
		c, ok := contacts.Match(first, last, opts.Connections)
		var found *model.Contact
		if ok {
			found = &c
			MergeContact(pr, c, &pl.update)
			sum.Count("first_degree", 1)
			details = append(details, "1st-degree connection")
		}
		pl.logs = append(pl.logs, auditRow(pr.ID, model.EnrichmentSourceContacts, found, nil))
	}

	if len(details) > 0 {
		sum.Count("updated", 1)
	}
	pl.update.Status = statusPtr(pr.Status.Advance(model.StatusEnriched))

	if _, err := p.commit(ctx, opts.DryRun, pl); err != nil {
		return Result{Err: eris.Wrapf(err, "enrich: save %s", pr.ID)}
	}

	detail := "no new data"
	if len(details) > 0 {
		detail = strings.Join(details, ", ")
	}
	if apolloErr != nil {
		return Result{Detail: detail, Err: eris.Wrapf(apolloErr, "enrich: apollo match for %s", pr.ID)}
	}
	return Result{Detail: detail}
}

// auditRow records one enrichment attempt. A nil result is stored as JSON
// null.
func auditRow[T any](personID string, source model.EnrichmentSource, result *T, err error) model.EnrichmentLog {
	entry := model.EnrichmentLog{ID: uuid.NewString(), PersonID: personID, Source: source}
	if result != nil {
		if raw, merr := json.Marshal(result); merr == nil {
			entry.Result = raw
		}
	}
	if err != nil {
		entry.Error = err.Error()
	}
	return entry
}
