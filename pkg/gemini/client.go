// Package gemini wraps the Gemini API for search-grounded generation.
package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// Client generates text grounded on Google Search results.
type Client interface {
	GroundedGenerate(ctx context.Context, req Request) (*Response, error)
}

// Request is a single grounded generation request.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int32
}

// Response is the generated text plus the grounding metadata.
type Response struct {
	Text      string
	Truncated bool
	Sources   []string
	Queries   []string
}

// APIError is a non-2xx response from the Gemini API.
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string   { return e.Err.Error() }
func (e *APIError) Unwrap() error   { return e.Err }
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Config holds client settings.
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API base URL for proxies and tests.
	BaseURL string
}

type sdkClient struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client using the Gemini API backend.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, eris.New("gemini: api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: new client")
	}
	return &sdkClient{client: client, model: model}, nil
}

func (c *sdkClient) GroundedGenerate(ctx context.Context, req Request) (*Response, error) {
	gc := &genai.GenerateContentConfig{
		Tools:          []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		CandidateCount: 1,
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = req.MaxTokens
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), gc)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &APIError{StatusCode: apiErr.Code, Err: eris.Wrap(err, "gemini: generate content")}
		}
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	out := &Response{Text: resp.Text()}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		cand := resp.Candidates[0]
		out.Truncated = cand.FinishReason == genai.FinishReasonMaxTokens
		out.Sources = sources(cand)
		if cand.GroundingMetadata != nil {
			out.Queries = cand.GroundingMetadata.WebSearchQueries
		}
	}
	return out, nil
}

func sources(c *genai.Candidate) []string {
	if c.GroundingMetadata == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, chunk := range c.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		uri := strings.TrimSpace(chunk.Web.URI)
		if uri == "" || seen[uri] {
			continue
		}
		seen[uri] = true
		out = append(out, uri)
	}
	return out
}
