package salesforce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLeadByEmail(t *testing.T) {
	var gotSOQL string
	c := &mockClient{
		queryFn: func(_ context.Context, soql string, out any) error {
			gotSOQL = soql
			leads := out.(*[]Lead)
			*leads = []Lead{{ID: "00Q1", Email: "o'neil@acme.com"}}
			return nil
		},
	}

	lead, err := FindLeadByEmail(context.Background(), c, "o'neil@acme.com")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "00Q1", lead.ID)
	assert.Contains(t, gotSOQL, `Email = 'o\'neil@acme.com'`)
	assert.Contains(t, gotSOQL, "FROM Lead")
}

func TestFindLeadByEmail_NoneOrBlank(t *testing.T) {
	called := false
	c := &mockClient{queryFn: func(context.Context, string, any) error { called = true; return nil }}

	lead, err := FindLeadByEmail(context.Background(), c, "  ")
	require.NoError(t, err)
	assert.Nil(t, lead)
	assert.False(t, called)

	lead, err = FindLeadByEmail(context.Background(), c, "jane@acme.com")
	require.NoError(t, err)
	assert.Nil(t, lead)
	assert.True(t, called)
}

func TestFindLeadByEmail_Error(t *testing.T) {
	c := &mockClient{queryFn: func(context.Context, string, any) error { return errors.New("boom") }}
	_, err := FindLeadByEmail(context.Background(), c, "jane@acme.com")
	assert.Error(t, err)
}

func TestCreateLead(t *testing.T) {
	var gotObject string
	c := &mockClient{
		insertOneFn: func(_ context.Context, sObjectName string, _ map[string]any) (string, error) {
			gotObject = sObjectName
			return "00Qnew", nil
		},
	}

	id, err := CreateLead(context.Background(), c, map[string]any{"LastName": "Doe", "Company": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "00Qnew", id)
	assert.Equal(t, "Lead", gotObject)
}

func TestCreateLead_RequiredFields(t *testing.T) {
	c := &mockClient{}
	_, err := CreateLead(context.Background(), c, map[string]any{"Company": "Acme"})
	assert.ErrorContains(t, err, "LastName")

	_, err = CreateLead(context.Background(), c, map[string]any{"LastName": "Doe", "Company": " "})
	assert.ErrorContains(t, err, "Company")
}

func TestUpdateLead(t *testing.T) {
	c := &mockClient{}
	assert.Error(t, UpdateLead(context.Background(), c, "", map[string]any{"Status": "x"}))
	assert.Error(t, UpdateLead(context.Background(), c, "00Q1", nil))
	assert.NoError(t, UpdateLead(context.Background(), c, "00Q1", map[string]any{"Status": "Open"}))
}
