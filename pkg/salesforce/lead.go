package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Lead is a subset of Salesforce Lead fields.
type Lead struct {
	ID         string `json:"Id"`
	FirstName  string `json:"FirstName"`
	LastName   string `json:"LastName"`
	Company    string `json:"Company"`
	Title      string `json:"Title"`
	Email      string `json:"Email"`
	Status     string `json:"Status"`
	LeadSource string `json:"LeadSource"`
}

var leadFields = []string{"Id", "FirstName", "LastName", "Company", "Title", "Email", "Status", "LeadSource"}

// FindLeadByEmail returns the first Lead with the given email, or nil.
func FindLeadByEmail(ctx context.Context, c Client, email string) (*Lead, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE Email = '%s' LIMIT 1",
		strings.Join(leadFields, ", "),
		escapeSoql(email),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead by email %s", email))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// CreateLead creates a Lead and returns its Salesforce ID. LastName and
// Company are required by Salesforce.
func CreateLead(ctx context.Context, c Client, fields map[string]any) (string, error) {
	for _, required := range []string{"LastName", "Company"} {
		if v, _ := fields[required].(string); strings.TrimSpace(v) == "" {
			return "", eris.New(fmt.Sprintf("sf: lead %s is required", required))
		}
	}
	id, err := c.InsertOne(ctx, "Lead", fields)
	if err != nil {
		return "", eris.Wrap(err, "sf: create lead")
	}
	return id, nil
}

// UpdateLead updates a Lead with the given fields.
func UpdateLead(ctx context.Context, c Client, leadID string, fields map[string]any) error {
	if leadID == "" {
		return eris.New("sf: lead id is required")
	}
	if len(fields) == 0 {
		return eris.New("sf: no fields to update")
	}
	if err := c.UpdateOne(ctx, "Lead", leadID, fields); err != nil {
		return eris.Wrap(err, fmt.Sprintf("sf: update lead %s", leadID))
	}
	return nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
