// Package apollo provides a client for the Apollo People Match API.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/warmline/internal/model"
)

const defaultBaseURL = "https://api.apollo.io"

// Client matches people against the Apollo people database.
type Client interface {
	// Match returns the best match for req, or nil when Apollo has none.
	Match(ctx context.Context, req MatchRequest) (*model.PersonMatch, error)
}

// MatchRequest is the request body for POST /api/v1/people/match. Empty
// fields are omitted from the payload.
type MatchRequest struct {
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
	Email            string `json:"email,omitempty"`
	LinkedInURL      string `json:"linkedin_url,omitempty"`
}

// Empty reports whether the request carries no identifying fields.
func (r MatchRequest) Empty() bool {
	return r == MatchRequest{}
}

// APIError is a non-2xx response from Apollo.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apollo: unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an Apollo API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type matchResponse struct {
	Person json.RawMessage `json:"person"`
}

type person struct {
	Email        string        `json:"email"`
	EmailStatus  string        `json:"email_status"`
	LinkedInURL  string        `json:"linkedin_url"`
	Title        string        `json:"title"`
	Headline     string        `json:"headline"`
	City         string        `json:"city"`
	State        string        `json:"state"`
	Country      string        `json:"country"`
	Seniority    string        `json:"seniority"`
	Departments  []string      `json:"departments"`
	PhotoURL     string        `json:"photo_url"`
	TwitterURL   string        `json:"twitter_url"`
	GithubURL    string        `json:"github_url"`
	Organization *organization `json:"organization"`
}

type organization struct {
	Name                  string `json:"name"`
	EstimatedNumEmployees *int64 `json:"estimated_num_employees"`
	AnnualRevenue         *int64 `json:"annual_revenue"`
	TotalFunding          *int64 `json:"total_funding"`
	Industry              string `json:"industry"`
}

func (c *httpClient) Match(ctx context.Context, req MatchRequest) (*model.PersonMatch, error) {
	if req.Empty() {
		return nil, nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/people/match", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "apollo: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result matchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "apollo: unmarshal response")
	}
	if len(result.Person) == 0 || string(result.Person) == "null" {
		return nil, nil
	}

	return normalize(result.Person)
}

func normalize(raw json.RawMessage) (*model.PersonMatch, error) {
	var p person
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, eris.Wrap(err, "apollo: unmarshal person")
	}

	m := &model.PersonMatch{
		Email:       p.Email,
		EmailStatus: p.EmailStatus,
		LinkedInURL: p.LinkedInURL,
		Title:       p.Title,
		Headline:    p.Headline,
		City:        p.City,
		State:       p.State,
		Country:     p.Country,
		Seniority:   p.Seniority,
		Departments: p.Departments,
		PhotoURL:    p.PhotoURL,
		TwitterURL:  p.TwitterURL,
		GithubURL:   p.GithubURL,
		Raw:         raw,
	}
	if org := p.Organization; org != nil {
		m.OrganizationName = org.Name
		m.OrgEmployeeCount = org.EstimatedNumEmployees
		m.OrgRevenue = org.AnnualRevenue
		m.OrgTotalFunding = org.TotalFunding
		m.OrgIndustry = org.Industry
	}
	return m, nil
}
