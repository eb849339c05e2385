// Package research gathers recent news about a prospect and their
// organization ahead of a research-informed draft.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/structured"
)

// Researcher runs the web research phase for one prospect.
type Researcher interface {
	Name() string
	Research(ctx context.Context, p *model.Prospect) (*model.ResearchResult, error)
}

// ErrRejected is returned when the provider refused the request as invalid.
var ErrRejected = errors.New("research: request rejected by provider")

const systemPrompt = `You research prospects ahead of a personal outreach email. Search the web, ` +
	`then answer with a single JSON object and nothing else.`

// Prompt builds the research instructions for p. focus names the outreach
// topic the searches should favour, such as "sustainability".
func Prompt(p *model.Prospect, focus string, maxSearches int) string {
	org := strings.TrimSpace(p.Organization)
	if focus == "" {
		focus = "industry"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Research the following person and their organization for a personal outreach email.\n\n")
	fmt.Fprintf(&b, "Person: %s\n", p.Name)
	fmt.Fprintf(&b, "Title: %s\n", orUnknown(p.Title))
	fmt.Fprintf(&b, "Organization: %s\n", orUnknown(org))
	fmt.Fprintf(&b, "Industry: %s\n\n", orUnknown(p.OrgIndustry))

	fmt.Fprintf(&b, "Use at most %d searches:\n", maxSearches)
	fmt.Fprintf(&b, "1. Search for \"%s %s news\" to find recent initiatives, reports or announcements.\n", org, focus)
	fmt.Fprintf(&b, "2. Search for \"%s %s\" to find recent news, talks or publications about this person.\n", p.Name, org)
	fmt.Fprintf(&b, "3. If those yield little, try variations on the organization name and topic.\n\n")

	b.WriteString(`Return a JSON object with this exact structure:
{
  "org_news": [{"headline": "...", "summary": "one sentence", "date": "YYYY-MM or approximate", "url": "..."}],
  "person_news": [{"headline": "...", "summary": "one sentence", "date": "YYYY-MM or approximate", "url": "..."}],
  "talking_points": ["A specific, actionable talking point referencing the research"],
  "search_quality": "high|medium|low"
}

Rules:
- org_news: up to 3 of the most relevant recent items. Empty array if nothing found.
- person_news: up to 2 items about the person. Empty array if nothing found.
- talking_points: 2-4 specific points that reference actual findings.
`)
	fmt.Fprintf(&b, "- search_quality: \"high\" if you found recent %s news, \"medium\" if only general info, \"low\" if very little.\n", focus)
	b.WriteString("- Return ONLY the JSON object, no other text.")
	return b.String()
}

// decode parses a provider's final text into a validated ResearchResult.
func decode(text string, truncated bool) (*model.ResearchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &structured.MalformedOutputError{Shape: structured.ShapeObject, Reason: "no text in research response"}
	}
	var out model.ResearchResult
	if err := structured.Decode(text, structured.ShapeObject, truncated, &out); err != nil {
		return nil, err
	}
	if !out.Valid() {
		return nil, &structured.MalformedOutputError{
			Shape:  structured.ShapeObject,
			Reason: fmt.Sprintf("search_quality %q is not high, medium or low", out.SearchQuality),
			Raw:    text,
		}
	}
	return &out, nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
