package research

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/resilience"
	"github.com/sells-group/warmline/internal/structured"
	"github.com/sells-group/warmline/pkg/anthropic"
	anthropicmocks "github.com/sells-group/warmline/pkg/anthropic/mocks"
	"github.com/sells-group/warmline/pkg/gemini"
	geminimocks "github.com/sells-group/warmline/pkg/gemini/mocks"
)

const researchJSON = `{"org_news":[{"headline":"Acme commits to net zero","summary":"Acme set a 2030 target.","date":"2025-03","url":"https://news.example/acme"}],` +
	`"person_news":[],"talking_points":["Acme's 2030 target","Jane's keynote"],"search_quality":"high"}`

func testPolicy() resilience.Policy {
	p := resilience.DefaultPolicy("test", time.Millisecond)
	p.OnRetry = func(int, time.Duration, error) {}
	return p
}

func prospect() *model.Prospect {
	return &model.Prospect{ID: "p1", Name: "Jane Doe", Title: "CFO", Organization: "Acme"}
}

func textResponse(text, stop string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content:    []anthropic.ContentBlock{{Type: "server_tool_use"}, {Type: "text", Text: text}},
		StopReason: stop,
	}
}

func TestPrompt(t *testing.T) {
	out := Prompt(prospect(), "sustainability", 5)
	assert.Contains(t, out, "Person: Jane Doe")
	assert.Contains(t, out, "Industry: Unknown")
	assert.Contains(t, out, "Use at most 5 searches")
	assert.Contains(t, out, `"Acme sustainability news"`)
	assert.Contains(t, out, `"Jane Doe Acme"`)
}

func TestAnthropicResearcher_Success(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.WebSearch != nil && req.WebSearch.MaxUses == 5 && len(req.Messages) == 1
	})).Return(textResponse("Here is what I found:\n```json\n"+researchJSON+"\n```", "end_turn"), nil)

	r := NewAnthropic(client, AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 4096, Policy: testPolicy()})
	out, err := r.Research(context.Background(), prospect())
	require.NoError(t, err)
	assert.Equal(t, "high", out.SearchQuality)
	require.Len(t, out.OrgNews, 1)
	assert.Equal(t, "Acme commits to net zero", out.OrgNews[0].Headline)
	assert.Len(t, out.TalkingPoints, 2)
	assert.Equal(t, "anthropic", r.Name())
}

func TestAnthropicResearcher_InvalidQuality(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"org_news":[],"person_news":[],"talking_points":[],"search_quality":"great"}`, "end_turn"), nil)

	_, err := NewAnthropic(client, AnthropicConfig{Policy: testPolicy()}).Research(context.Background(), prospect())
	assert.ErrorIs(t, err, structured.ErrMalformedOutput)
}

func TestAnthropicResearcher_NoText(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(&anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "web_search_tool_result"}}}, nil)

	_, err := NewAnthropic(client, AnthropicConfig{Policy: testPolicy()}).Research(context.Background(), prospect())
	assert.ErrorIs(t, err, structured.ErrMalformedOutput)
}

func TestAnthropicResearcher_RateLimitedExhausted(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.APIError{StatusCode: 429, Err: errors.New("rate limited")}).Times(3)

	_, err := NewAnthropic(client, AnthropicConfig{Policy: testPolicy()}).Research(context.Background(), prospect())
	assert.ErrorIs(t, err, resilience.ErrRetriesExceeded)
	assert.True(t, resilience.IsFatal(err))
}

func TestAnthropicResearcher_Rejected(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.APIError{StatusCode: 422, Err: errors.New("invalid")}).Once()

	_, err := NewAnthropic(client, AnthropicConfig{Policy: testPolicy()}).Research(context.Background(), prospect())
	assert.ErrorIs(t, err, ErrRejected)
}

func TestGeminiResearcher_AttachesSources(t *testing.T) {
	client := geminimocks.NewMockClient(t)
	client.On("GroundedGenerate", mock.Anything, mock.MatchedBy(func(req gemini.Request) bool {
		return req.System != "" && req.MaxTokens == 2048
	})).Return(&gemini.Response{
		Text:    researchJSON,
		Sources: []string{"https://news.example/acme"},
		Queries: []string{"Acme sustainability news"},
	}, nil)

	r := NewGemini(client, GeminiConfig{MaxTokens: 2048, Focus: "sustainability", Policy: testPolicy()})
	out, err := r.Research(context.Background(), prospect())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://news.example/acme"}, out.Sources)
	assert.Equal(t, "gemini", r.Name())
}

func TestGeminiResearcher_TruncatedObject(t *testing.T) {
	client := geminimocks.NewMockClient(t)
	client.On("GroundedGenerate", mock.Anything, mock.Anything).
		Return(&gemini.Response{Text: `{"org_news":[{"headline":"Acme`, Truncated: true}, nil)

	_, err := NewGemini(client, GeminiConfig{Policy: testPolicy()}).Research(context.Background(), prospect())
	assert.ErrorIs(t, err, structured.ErrMalformedOutput)
}
