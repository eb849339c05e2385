package store

import (
	"fmt"
	"strings"
	"time"
)

type assignment struct {
	col string
	val any
}

// Empty reports whether the update changes nothing.
func (u ProspectUpdate) Empty() bool {
	return len(u.assignments()) == 0
}

func (u ProspectUpdate) assignments() []assignment {
	var out []assignment
	str := func(col string, v *string) {
		if v != nil {
			out = append(out, assignment{col, *v})
		}
	}
	i64 := func(col string, v *int64) {
		if v != nil {
			out = append(out, assignment{col, *v})
		}
	}

	str("title", u.Title)
	str("organization", u.Organization)
	str("email", u.Email)
	str("linkedin", u.LinkedIn)
	str("context", u.Context)
	if u.Status != nil {
		out = append(out, assignment{"status", string(*u.Status)})
	}
	str("seniority", u.Seniority)
	str("org_industry", u.OrgIndustry)
	i64("org_employee_count", u.OrgEmployeeCount)
	i64("org_revenue", u.OrgRevenue)
	i64("org_total_funding", u.OrgTotalFunding)
	if len(u.EnrichmentData) > 0 {
		out = append(out, assignment{"enrichment_data", string(u.EnrichmentData)})
	}
	if u.PriorityScore != nil {
		out = append(out, assignment{"priority_score", *u.PriorityScore})
	}
	str("priority_reasons", u.PriorityReasons)
	str("shared_background", u.SharedBackground)
	if u.ScoredAt != nil {
		out = append(out, assignment{"scored_at", u.ScoredAt.UTC()})
	}
	str("crm_lead_id", u.CRMLeadID)
	return out
}

// updateSQL builds an UPDATE for the prospect with the given placeholder
// style. The id is always the last argument.
func (u ProspectUpdate) updateSQL(placeholder func(int) string, id string, now time.Time) (string, []any) {
	as := u.assignments()
	sets := make([]string, 0, len(as)+1)
	args := make([]any, 0, len(as)+2)
	for i, a := range as {
		sets = append(sets, fmt.Sprintf("%s = %s", a.col, placeholder(i+1)))
		args = append(args, a.val)
	}
	sets = append(sets, fmt.Sprintf("updated_at = %s", placeholder(len(as)+1)))
	args = append(args, now, id)
	return fmt.Sprintf("UPDATE people SET %s WHERE id = %s", strings.Join(sets, ", "), placeholder(len(as)+2)), args
}

func dollar(i int) string { return fmt.Sprintf("$%d", i) }
func question(int) string { return "?" }

const prospectColumns = `id, name, title, organization, email, linkedin, context, source_url, for_tag, status,
	seniority, org_industry, org_employee_count, org_revenue, org_total_funding, enrichment_data,
	priority_score, priority_reasons, shared_background, scored_at, crm_lead_id, created_at, updated_at`

const sourceColumns = `id, url, for_tag, is_active, check_frequency_hours, last_checked_at, last_people_count, created_at`

const outreachColumns = `id, person_id, channel, subject, body, research_notes, tone, status, created_at, updated_at`

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
