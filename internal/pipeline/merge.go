package pipeline

import (
	"strings"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/store"
)

// fillString sets *dst to value when the stored field is blank, nothing is
// pending for it yet, and value is non-blank.
func fillString(dst **string, current, value string) {
	value = strings.TrimSpace(value)
	if *dst != nil || strings.TrimSpace(current) != "" || value == "" {
		return
	}
	*dst = &value
}

func fillInt(dst **int64, current, value *int64) {
	if *dst != nil || current != nil || value == nil {
		return
	}
	v := *value
	*dst = &v
}

// MergeMatch folds a people-data match into u using the fill-blanks rule.
// The raw payload always replaces the previous one.
func MergeMatch(p *model.Prospect, m *model.PersonMatch, u *store.ProspectUpdate) {
	if m == nil {
		return
	}
	fillString(&u.Email, p.Email, m.Email)
	fillString(&u.LinkedIn, p.LinkedIn, m.LinkedInURL)
	fillString(&u.Title, p.Title, m.Title)
	fillString(&u.Organization, p.Organization, m.OrganizationName)
	fillString(&u.Seniority, p.Seniority, m.Seniority)
	fillString(&u.OrgIndustry, p.OrgIndustry, m.OrgIndustry)
	fillInt(&u.OrgEmployeeCount, p.OrgEmployeeCount, m.OrgEmployeeCount)
	fillInt(&u.OrgRevenue, p.OrgRevenue, m.OrgRevenue)
	fillInt(&u.OrgTotalFunding, p.OrgTotalFunding, m.OrgTotalFunding)
	if len(m.Raw) > 0 {
		u.EnrichmentData = m.Raw
	}
}

// MergeContact folds an offline contact into u. Fields already filled by an
// earlier merge in the same pass are left alone. The first-degree marker is
// appended to the context once.
func MergeContact(p *model.Prospect, c model.Contact, u *store.ProspectUpdate) {
	fillString(&u.Email, p.Email, c.Email)
	fillString(&u.LinkedIn, p.LinkedIn, c.URL)
	fillString(&u.Title, p.Title, c.Position)
	if !p.IsFirstDegree() {
		ctx := strings.TrimSpace(p.Context + " " + model.FirstDegreeMarker)
		u.Context = &ctx
	}
}
