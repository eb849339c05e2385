package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/warmline/internal/fetch"
	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/resilience"
	"github.com/sells-group/warmline/internal/store"
	"github.com/sells-group/warmline/internal/templates"
	"github.com/sells-group/warmline/pkg/anthropic"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "warmline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testSettings() Settings {
	quiet := func(int, time.Duration, error) {}
	policy := resilience.Policy{MaxAttempts: 3, OnRetry: quiet}
	return Settings{
		Model:          "claude-haiku-4-5-20251001",
		MaxTokens:      4096,
		ScoreMaxTokens: 1024,
		SchedulingLink: "https://cal.example.com/intro",
		ApolloPolicy:   policy,
		LLMPolicy:      policy,
		CRMPolicy:      policy,
	}
}

func newTestPipeline(st store.Store, opts ...Option) *Pipeline {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(st, testSettings(), opts...)
}

func seedProspect(t *testing.T, st store.Store, p *model.Prospect) *model.Prospect {
	t.Helper()
	status := p.Status
	require.NoError(t, st.InsertProspect(context.Background(), p))
	if status != "" && status != model.StatusDiscovered {
		require.NoError(t, st.UpdateProspect(context.Background(), p.ID, store.ProspectUpdate{Status: &status}))
	}
	got, err := st.GetProspect(context.Background(), p.ID)
	require.NoError(t, err)
	return got
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
		Usage:      anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

// writeTemplates lays out a profile and a template library with one tag.
func writeTemplates(t *testing.T, tag string) (*templates.Profile, *templates.Library) {
	t.Helper()
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(profilePath, []byte("name: Dana Reyes\nbackground: operator turned founder\n"), 0o644))

	lib := filepath.Join(dir, "templates")
	require.NoError(t, os.MkdirAll(filepath.Join(lib, tag), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lib, tag, "introductory_email.md"), []byte("Hi {name}, a short note."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(lib, tag, "case_studies.md"), []byte("- [Acme](https://example.com/acme)"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "email_skills.md"), []byte("Be brief."), 0o644))

	profile, err := templates.LoadProfile(profilePath)
	require.NoError(t, err)
	return profile, templates.NewLibrary(lib)
}

type fakeFetcher struct {
	pages map[string]*fetch.Page
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*fetch.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return &fetch.Page{URL: url}, nil
}

type fakeResearcher struct {
	result *model.ResearchResult
	err    error
	calls  int
}

func (f *fakeResearcher) Name() string { return "fake" }

func (f *fakeResearcher) Research(context.Context, *model.Prospect) (*model.ResearchResult, error) {
	f.calls++
	return f.result, f.err
}

// countingStore counts every mutating call that reaches the wrapped store.
type countingStore struct {
	store.Store

	mu     sync.Mutex
	writes map[string]int
}

func newCountingStore(inner store.Store) *countingStore {
	return &countingStore{Store: inner, writes: make(map[string]int)}
}

func (c *countingStore) count(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes[op]++
}

func (c *countingStore) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.writes {
		n += v
	}
	return n
}

func (c *countingStore) InsertProspect(ctx context.Context, p *model.Prospect) error {
	c.count("InsertProspect")
	return c.Store.InsertProspect(ctx, p)
}

func (c *countingStore) UpdateProspect(ctx context.Context, id string, u store.ProspectUpdate) error {
	c.count("UpdateProspect")
	return c.Store.UpdateProspect(ctx, id, u)
}

func (c *countingStore) InsertSource(ctx context.Context, s *model.Source) error {
	c.count("InsertSource")
	return c.Store.InsertSource(ctx, s)
}

func (c *countingStore) MarkSourceChecked(ctx context.Context, id string, at time.Time, n int) error {
	c.count("MarkSourceChecked")
	return c.Store.MarkSourceChecked(ctx, id, at, n)
}

func (c *countingStore) InsertOutreach(ctx context.Context, o *model.Outreach) error {
	c.count("InsertOutreach")
	return c.Store.InsertOutreach(ctx, o)
}

func (c *countingStore) UpdateOutreach(ctx context.Context, o *model.Outreach) error {
	c.count("UpdateOutreach")
	return c.Store.UpdateOutreach(ctx, o)
}

func (c *countingStore) AppendEnrichmentLog(ctx context.Context, e *model.EnrichmentLog) error {
	c.count("AppendEnrichmentLog")
	return c.Store.AppendEnrichmentLog(ctx, e)
}
