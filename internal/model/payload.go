package model

import (
	"encoding/json"
	"strings"
)

// ExtractedPerson is one prospect found on a source page by the LLM.
type ExtractedPerson struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Organization string `json:"organization"`
	Email        string `json:"email"`
	LinkedIn     string `json:"linkedin"`
	Context      string `json:"context"`
}

// Valid reports whether the extraction is usable. A name is required.
func (e ExtractedPerson) Valid() bool {
	return strings.TrimSpace(e.Name) != ""
}

// PersonMatch is a normalized people-data API match.
type PersonMatch struct {
	Email            string          `json:"email,omitempty"`
	EmailStatus      string          `json:"email_status,omitempty"`
	LinkedInURL      string          `json:"linkedin_url,omitempty"`
	Title            string          `json:"title,omitempty"`
	Headline         string          `json:"headline,omitempty"`
	City             string          `json:"city,omitempty"`
	State            string          `json:"state,omitempty"`
	Country          string          `json:"country,omitempty"`
	Seniority        string          `json:"seniority,omitempty"`
	Departments      []string        `json:"departments,omitempty"`
	PhotoURL         string          `json:"photo_url,omitempty"`
	TwitterURL       string          `json:"twitter_url,omitempty"`
	GithubURL        string          `json:"github_url,omitempty"`
	OrganizationName string          `json:"organization_name,omitempty"`
	OrgEmployeeCount *int64          `json:"org_employee_count,omitempty"`
	OrgRevenue       *int64          `json:"org_revenue,omitempty"`
	OrgTotalFunding  *int64          `json:"org_total_funding,omitempty"`
	OrgIndustry      string          `json:"org_industry,omitempty"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

// Contact is one row of an offline contact export.
type Contact struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	Company     string `json:"company,omitempty"`
	Position    string `json:"position,omitempty"`
	URL         string `json:"url,omitempty"`
	ConnectedOn string `json:"connected_on,omitempty"`
}

// ScoreResult is the rubric output for one prospect.
type ScoreResult struct {
	TotalScore       int        `json:"total_score"`
	ProximityScore   int        `json:"proximity_score"`
	RelevanceScore   int        `json:"relevance_score"`
	UrgencyScore     int        `json:"urgency_score"`
	ProximityReasons ReasonList `json:"proximity_reasons"`
	RelevanceReasons ReasonList `json:"relevance_reasons"`
	UrgencyReasons   ReasonList `json:"urgency_reasons"`
	Summary          string     `json:"summary"`
}

// ReasonList decodes either a JSON array of strings or a single string.
type ReasonList []string

// UnmarshalJSON implements json.Unmarshaler.
func (r *ReasonList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if strings.TrimSpace(one) == "" {
			*r = nil
		} else {
			*r = ReasonList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*r = many
	return nil
}

// DraftResult is a drafted email.
type DraftResult struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Valid reports whether both subject and body are present.
func (d DraftResult) Valid() bool {
	return strings.TrimSpace(d.Subject) != "" && strings.TrimSpace(d.Body) != ""
}

// NewsItem is one research finding.
type NewsItem struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Date     string `json:"date,omitempty"`
	URL      string `json:"url,omitempty"`
}

// ResearchResult is the output of the web research phase.
type ResearchResult struct {
	OrgNews       []NewsItem `json:"org_news"`
	PersonNews    []NewsItem `json:"person_news"`
	TalkingPoints []string   `json:"talking_points"`
	SearchQuality string     `json:"search_quality"`
	// Sources lists grounding URLs reported by the provider, when it reports them.
	Sources []string `json:"sources,omitempty"`
}

// Valid reports whether the search quality is one of high, medium or low.
func (r ResearchResult) Valid() bool {
	switch r.SearchQuality {
	case "high", "medium", "low":
		return true
	}
	return false
}
