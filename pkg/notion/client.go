// Package notion reads the Notion database that curates discovery sources.
package notion

import (
	"context"
	"errors"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond is Notion's documented average request rate.
const DefaultRequestsPerSecond = 3

// Client is the read-only slice of the Notion API the source import needs.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// APIError is a non-success response from Notion. It reports its status so
// rate limits (429) and invalid requests (400/422) can be told apart.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Database   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion: database %s: status %d %s: %s", e.Database, e.StatusCode, e.Code, e.Message)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// ClientOption configures the client.
type ClientOption func(*sourceReader)

// WithRateLimit sets the request rate. A non-positive rate disables
// throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sourceReader) {
		c.limiter = nil
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type sourceReader struct {
	db      notionapi.DatabaseService
	limiter *rate.Limiter
}

// NewClient returns a Client authenticated with an integration token and
// throttled to DefaultRequestsPerSecond.
func NewClient(token string, opts ...ClientOption) Client {
	c := &sourceReader{
		db:      notionapi.NewClient(notionapi.Token(token)).Database,
		limiter: rate.NewLimiter(DefaultRequestsPerSecond, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *sourceReader) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *sourceReader) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrapf(err, "notion: wait to query %s", dbID)
	}
	resp, err := c.db.Query(ctx, notionapi.DatabaseID(dbID), req)
	if err != nil {
		return nil, apiError(dbID, err)
	}
	return resp, nil
}

func apiError(dbID string, err error) error {
	var nerr *notionapi.Error
	if errors.As(err, &nerr) {
		return &APIError{StatusCode: nerr.Status, Code: string(nerr.Code), Message: nerr.Message, Database: dbID}
	}
	return eris.Wrapf(err, "notion: query database %s", dbID)
}
