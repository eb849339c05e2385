package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/store"
)

func TestMergeMatch_FillsOnlyBlanks(t *testing.T) {
	p := &model.Prospect{Email: "kept@acme.com", Title: "", OrgEmployeeCount: int64Ptr(10)}
	m := &model.PersonMatch{
		Email:            "other@acme.com",
		Title:            "VP Engineering",
		LinkedInURL:      "  ",
		OrgEmployeeCount: int64Ptr(500),
		OrgRevenue:       int64Ptr(1_000_000),
		Raw:              json.RawMessage(`{"id":"p1"}`),
	}

	var u store.ProspectUpdate
	MergeMatch(p, m, &u)

	assert.Nil(t, u.Email)
	assert.Nil(t, u.LinkedIn, "blank values never fill")
	assert.Nil(t, u.OrgEmployeeCount)
	require.NotNil(t, u.Title)
	assert.Equal(t, "VP Engineering", *u.Title)
	require.NotNil(t, u.OrgRevenue)
	assert.Equal(t, int64(1_000_000), *u.OrgRevenue)
	assert.JSONEq(t, `{"id":"p1"}`, string(u.EnrichmentData))
}

func TestMergeMatch_Nil(t *testing.T) {
	var u store.ProspectUpdate
	MergeMatch(&model.Prospect{}, nil, &u)
	assert.True(t, u.Empty())
}

func TestMergeContact(t *testing.T) {
	p := &model.Prospect{Context: "Speaker"}
	var u store.ProspectUpdate
	title := "CTO"
	u.Title = &title

	MergeContact(p, model.Contact{Email: "a@b.com", Position: "Advisor", URL: "https://linkedin.com/in/a"}, &u)
	assert.Equal(t, "CTO", *u.Title, "earlier merge in the same pass wins")
	assert.Equal(t, "a@b.com", *u.Email)
	assert.Equal(t, "https://linkedin.com/in/a", *u.LinkedIn)
	assert.Equal(t, "Speaker "+model.FirstDegreeMarker, *u.Context)

	marked := &model.Prospect{Context: "x " + model.FirstDegreeMarker}
	var u2 store.ProspectUpdate
	MergeContact(marked, model.Contact{}, &u2)
	assert.Nil(t, u2.Context, "marker is appended once")
}

func TestMergeContact_EmptyContext(t *testing.T) {
	var u store.ProspectUpdate
	MergeContact(&model.Prospect{}, model.Contact{}, &u)
	assert.Equal(t, model.FirstDegreeMarker, *u.Context)
}
