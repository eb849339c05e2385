package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sells-group/warmline/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when an insert violates a uniqueness rule.
	ErrDuplicate = errors.New("store: duplicate")
)

// ProspectFilter specifies criteria for listing prospects. Zero values do not
// filter.
type ProspectFilter struct {
	ID       string
	Statuses []model.Status
	ForTag   string
	// Scored restricts to prospects that have (true) or lack (false) a score.
	Scored *bool
	Limit  int
}

// SourceFilter specifies criteria for listing sources.
type SourceFilter struct {
	ID         string
	ActiveOnly bool
	ForTag     string
}

// ProspectUpdate is a partial update; nil fields are left unchanged.
type ProspectUpdate struct {
	Title        *string
	Organization *string
	Email        *string
	LinkedIn     *string
	Context      *string
	Status       *model.Status

	Seniority        *string
	OrgIndustry      *string
	OrgEmployeeCount *int64
	OrgRevenue       *int64
	OrgTotalFunding  *int64
	EnrichmentData   json.RawMessage

	PriorityScore    *int
	PriorityReasons  *string
	SharedBackground *string
	ScoredAt         *time.Time

	CRMLeadID *string
}

// Store defines the persistence interface for the outreach pipeline.
type Store interface {
	// Prospects
	ListProspects(ctx context.Context, filter ProspectFilter) ([]model.Prospect, error)
	GetProspect(ctx context.Context, id string) (*model.Prospect, error)
	InsertProspect(ctx context.Context, p *model.Prospect) error
	UpdateProspect(ctx context.Context, id string, u ProspectUpdate) error

	// Sources
	ListSources(ctx context.Context, filter SourceFilter) ([]model.Source, error)
	GetSource(ctx context.Context, id string) (*model.Source, error)
	InsertSource(ctx context.Context, s *model.Source) error
	MarkSourceChecked(ctx context.Context, id string, at time.Time, peopleCount int) error

	// Outreach
	GetOutreachByPerson(ctx context.Context, personID string) (*model.Outreach, error)
	InsertOutreach(ctx context.Context, o *model.Outreach) error
	UpdateOutreach(ctx context.Context, o *model.Outreach) error

	// Audit
	AppendEnrichmentLog(ctx context.Context, entry *model.EnrichmentLog) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
