package store

import (
	"encoding/json"

	"github.com/sells-group/warmline/internal/model"
)

func scanProspect(row rowScanner) (*model.Prospect, error) {
	var p model.Prospect
	var status string
	var enrichment *string
	err := row.Scan(
		&p.ID, &p.Name, &p.Title, &p.Organization, &p.Email, &p.LinkedIn, &p.Context, &p.SourceURL, &p.ForTag, &status,
		&p.Seniority, &p.OrgIndustry, &p.OrgEmployeeCount, &p.OrgRevenue, &p.OrgTotalFunding, &enrichment,
		&p.PriorityScore, &p.PriorityReasons, &p.SharedBackground, &p.ScoredAt, &p.CRMLeadID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = model.Status(status)
	if enrichment != nil && *enrichment != "" {
		p.EnrichmentData = json.RawMessage(*enrichment)
	}
	return &p, nil
}

func scanSource(row rowScanner) (*model.Source, error) {
	var s model.Source
	err := row.Scan(&s.ID, &s.URL, &s.ForTag, &s.IsActive, &s.CheckFrequencyHours, &s.LastCheckedAt, &s.LastPeopleCount, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanOutreach(row rowScanner) (*model.Outreach, error) {
	var o model.Outreach
	var notes *string
	var tone string
	err := row.Scan(&o.ID, &o.PersonID, &o.Channel, &o.Subject, &o.Body, &notes, &tone, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Tone = model.Tone(tone)
	if notes != nil && *notes != "" {
		o.ResearchNotes = json.RawMessage(*notes)
	}
	return &o, nil
}

// nullJSON converts a raw JSON value to a nullable column value.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
