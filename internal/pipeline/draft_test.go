package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/resilience"
	"github.com/sells-group/warmline/internal/store"
	"github.com/sells-group/warmline/internal/templates"
	anthropicmocks "github.com/sells-group/warmline/pkg/anthropic/mocks"
)

const draftJSON = `{"subject": "Quick hello from Dana", "body": "<p>Hi Jane,</p><p>Loved your keynote.</p>"}`

func scoredProspect(t *testing.T, st store.Store, name string, score int) *model.Prospect {
	t.Helper()
	pr := seedProspect(t, st, &model.Prospect{Name: name, Organization: "Acme", ForTag: "acceler", Status: model.StatusEnriched})
	require.NoError(t, st.UpdateProspect(context.Background(), pr.ID, store.ProspectUpdate{PriorityScore: &score, ScoredAt: &testNow}))
	return pr
}

func TestDraftPrompt(t *testing.T) {
	pr := &model.Prospect{Name: "Jane Doe", Title: "CIO", Context: "Keynote at Summit"}
	in := DraftInput{
		Prospect:       pr,
		Profile:        &templates.Profile{Text: "name: Dana", Name: "Dana"},
		Templates:      &templates.Set{Introductory: "Intro template", Offerings: "Course A"},
		SchedulingLink: "https://cal.example.com",
	}

	prompt := DraftPrompt(in)
	assert.Contains(t, prompt, "## Email template (structural guide, do NOT copy verbatim)\nIntro template")
	assert.Contains(t, prompt, "## Offerings")
	assert.NotContains(t, prompt, "## Case studies")
	assert.NotContains(t, prompt, "## Research findings")
	assert.Contains(t, prompt, "Title: CIO")
	assert.Contains(t, prompt, "Organization: Unknown")
	assert.Contains(t, prompt, "Shared Background: None")
	assert.Contains(t, prompt, `Sign off as "Dana"`)
	assert.Contains(t, prompt, "Scheduling link: https://cal.example.com")

	in.Templates.Signature = "<p>Dana Reyes</p>"
	in.Research = `{"talking_points":["net zero"]}`
	in.Tone = model.ToneProfessional
	prompt = DraftPrompt(in)
	assert.Contains(t, prompt, "exact HTML signature")
	assert.NotContains(t, prompt, "Sign off as")
	assert.Contains(t, prompt, `Use the "professional" tone`)
	assert.Contains(t, prompt, `{"talking_points":["net zero"]}`)
}

func TestDraft_DraftsAboveThreshold(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	hot := scoredProspect(t, st, "Jane Doe", 55)
	cold := scoredProspect(t, st, "John Roe", 20)
	profile, lib := writeTemplates(t, "acceler")

	llm := anthropicmocks.NewMockClient(t)
	llm.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(draftJSON), nil).Once()

	sum, err := newTestPipeline(st, WithLLM(llm), WithTemplates(profile, lib)).Draft(ctx, RunOptions{})
	require.NoError(t, err)
	assert.True(t, sum.OK())
	assert.Equal(t, 1, sum.Succeeded)

	o, err := st.GetOutreachByPerson(ctx, hot.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quick hello from Dana", o.Subject)
	assert.Equal(t, model.ChannelEmail, o.Channel)
	assert.Equal(t, model.OutreachStatusDrafted, o.Status)

	got, err := st.GetProspect(ctx, hot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOutreachDrafted, got.Status)

	_, err = st.GetOutreachByPerson(ctx, cold.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDraft_ExplicitZeroMinScoreDraftsEveryScored(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	low := scoredProspect(t, st, "John Roe", 10)
	profile, lib := writeTemplates(t, "acceler")

	llm := anthropicmocks.NewMockClient(t)
	p := newTestPipeline(st, WithLLM(llm), WithTemplates(profile, lib))

	sum, err := p.Draft(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Zero(t, sum.Processed, "configured threshold applies when unset")

	llm.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(draftJSON), nil).Once()
	zero := 0
	sum, err = p.Draft(ctx, RunOptions{MinScore: &zero})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)

	_, err = st.GetOutreachByPerson(ctx, low.ID)
	require.NoError(t, err)
}

func TestDraft_ExistingOutreachSkippedUnlessForced(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	pr := scoredProspect(t, st, "Jane Doe", 80)
	require.NoError(t, st.InsertOutreach(ctx, &model.Outreach{
		PersonID: pr.ID, Channel: model.ChannelEmail, Subject: "Old", Body: "<p>old</p>", Status: model.OutreachStatusDrafted,
	}))
	before, err := st.GetOutreachByPerson(ctx, pr.ID)
	require.NoError(t, err)
	profile, lib := writeTemplates(t, "acceler")

	llm := anthropicmocks.NewMockClient(t)
	p := newTestPipeline(st, WithLLM(llm), WithTemplates(profile, lib))

	sum, err := p.Draft(ctx, RunOptions{PersonID: pr.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	llm.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)

	llm.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(draftJSON), nil).Once()
	sum, err = p.Draft(ctx, RunOptions{PersonID: pr.ID, Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)

	after, err := st.GetOutreachByPerson(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID, "forced re-draft updates in place")
	assert.Equal(t, "Quick hello from Dana", after.Subject)
}

func TestDraft_MissingTemplateAbortsBatch(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	scoredProspect(t, st, "Jane Doe", 80)
	scoredProspect(t, st, "John Roe", 80)
	profile, lib := writeTemplates(t, "terra")

	llm := anthropicmocks.NewMockClient(t)
	sum, err := newTestPipeline(st, WithLLM(llm), WithTemplates(profile, lib)).Draft(ctx, RunOptions{})
	require.NoError(t, err)
	assert.True(t, sum.Aborted)
	assert.Equal(t, 1, sum.Processed)
	assert.True(t, resilience.IsFatal(sum.Err))
}

func TestDraft_DryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	base := newTestStore(t)
	pr := scoredProspect(t, base, "Jane Doe", 80)
	st := newCountingStore(base)
	profile, lib := writeTemplates(t, "acceler")

	llm := anthropicmocks.NewMockClient(t)
	llm.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(draftJSON), nil).Once()

	sum, err := newTestPipeline(st, WithLLM(llm), WithTemplates(profile, lib)).Draft(ctx, RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 0, st.total())

	got, err := base.GetProspect(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEnriched, got.Status)
}

func TestDraft_MissingSubjectIsEntityError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	scoredProspect(t, st, "Jane Doe", 80)
	profile, lib := writeTemplates(t, "acceler")

	llm := anthropicmocks.NewMockClient(t)
	llm.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(`{"subject": "", "body": "<p>x</p>"}`), nil)

	sum, err := newTestPipeline(st, WithLLM(llm), WithTemplates(profile, lib)).Draft(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Errored)
	assert.False(t, sum.Aborted)
}
