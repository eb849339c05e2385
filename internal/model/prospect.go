package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the pipeline position of a prospect.
type Status string

const (
	StatusDiscovered      Status = "discovered"
	StatusEnriched        Status = "enriched"
	StatusOutreachDrafted Status = "outreach_drafted"
)

// rank orders statuses along the pipeline.
var rank = map[Status]int{
	StatusDiscovered:      0,
	StatusEnriched:        1,
	StatusOutreachDrafted: 2,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := rank[s]
	return ok
}

// CanTransition reports whether a prospect may move from s to next in an
// untargeted batch. Status only advances one step at a time; staying put is
// allowed for re-runs of the same stage.
func (s Status) CanTransition(next Status) bool {
	from, ok := rank[s]
	if !ok {
		return false
	}
	to, ok := rank[next]
	if !ok {
		return false
	}
	return to == from || to == from+1
}

// Advance returns next unless that would move the prospect backwards, in
// which case it returns s. Unlike CanTransition it may skip a step: a draft
// or research-draft targeted at one person bypasses the status filter, so a
// discovered prospect goes straight to outreach_drafted.
func (s Status) Advance(next Status) Status {
	if rank[next] < rank[s] {
		return s
	}
	return next
}

// FirstDegreeMarker is appended to a prospect's context when the offline
// contact export shows a direct connection.
const FirstDegreeMarker = "[1st-degree LinkedIn connection]"

// Prospect is a person who may become an outreach target.
type Prospect struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Title        string `json:"title,omitempty"`
	Organization string `json:"organization,omitempty"`
	Email        string `json:"email,omitempty"`
	LinkedIn     string `json:"linkedin,omitempty"`
	Context      string `json:"context,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
	ForTag       string `json:"for_tag"`
	Status       Status `json:"status"`

	Seniority        string `json:"seniority,omitempty"`
	OrgIndustry      string `json:"org_industry,omitempty"`
	OrgEmployeeCount *int64 `json:"org_employee_count,omitempty"`
	OrgRevenue       *int64 `json:"org_revenue,omitempty"`
	OrgTotalFunding  *int64 `json:"org_total_funding,omitempty"`

	// EnrichmentData is the raw people-data payload from the latest match.
	EnrichmentData json.RawMessage `json:"enrichment_data,omitempty"`

	PriorityScore    *int       `json:"priority_score,omitempty"`
	PriorityReasons  string     `json:"priority_reasons,omitempty"`
	SharedBackground string     `json:"shared_background,omitempty"`
	ScoredAt         *time.Time `json:"scored_at,omitempty"`

	CRMLeadID string `json:"crm_lead_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IdentityKey returns the dedup key for a prospect discovered for a tag.
func IdentityKey(name, organization, forTag string) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(name) + "|" + norm(organization) + "|" + norm(forTag)
}

// SplitName splits a full name at the first run of whitespace.
func SplitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	first = fields[0]
	if len(fields) > 1 {
		last = strings.Join(fields[1:], " ")
	}
	return first, last
}

// IsFirstDegree reports whether the prospect's context carries the
// first-degree connection marker.
func (p *Prospect) IsFirstDegree() bool {
	return strings.Contains(p.Context, FirstDegreeMarker)
}

// EnrichmentSource identifies which collaborator produced an audit row.
type EnrichmentSource string

const (
	EnrichmentSourceApollo   EnrichmentSource = "apollo_enrichment_api"
	EnrichmentSourceContacts EnrichmentSource = "offline_contacts"
)

// EnrichmentLog is an append-only audit record of one enrichment attempt.
type EnrichmentLog struct {
	ID        string           `json:"id"`
	PersonID  string           `json:"person_id"`
	Source    EnrichmentSource `json:"source"`
	Result    json.RawMessage  `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
