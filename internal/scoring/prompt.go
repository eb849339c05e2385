package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/warmline/internal/model"
)

// PromptInput is the deterministic set of facts sent to the scoring model.
type PromptInput struct {
	Today             string
	Name              string
	Title             string
	Organization      string
	Tag               string
	Seniority         string
	Industry          string
	EmployeeCount     string
	Revenue           string
	TotalFunding      string
	Context           string
	EmploymentHistory string
	FirstDegree       bool
}

// NewPromptInput assembles the scoring facts for a prospect.
func NewPromptInput(p *model.Prospect, today time.Time) PromptInput {
	return PromptInput{
		Today:             today.Format("2006-01-02"),
		Name:              p.Name,
		Title:             orUnknown(p.Title),
		Organization:      orUnknown(p.Organization),
		Tag:               orUnknown(p.ForTag),
		Seniority:         orUnknown(p.Seniority),
		Industry:          orUnknown(p.OrgIndustry),
		EmployeeCount:     intOrUnknown(p.OrgEmployeeCount),
		Revenue:           intOrUnknown(p.OrgRevenue),
		TotalFunding:      intOrUnknown(p.OrgTotalFunding),
		Context:           orUnknown(p.Context),
		EmploymentHistory: EmploymentHistory(p.EnrichmentData),
		FirstDegree:       p.IsFirstDegree(),
	}
}

// Render formats the prospect section of the scoring prompt.
func (in PromptInput) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today's date: %s\n\n", in.Today)
	b.WriteString("## Prospect\n")
	fmt.Fprintf(&b, "Name: %s\n", in.Name)
	fmt.Fprintf(&b, "Title: %s\n", in.Title)
	fmt.Fprintf(&b, "Organization: %s\n", in.Organization)
	fmt.Fprintf(&b, "Tag: %s\n", in.Tag)
	fmt.Fprintf(&b, "Seniority: %s\n", in.Seniority)
	fmt.Fprintf(&b, "Industry: %s\n", in.Industry)
	fmt.Fprintf(&b, "Employees: %s\n", in.EmployeeCount)
	fmt.Fprintf(&b, "Annual revenue: %s\n", in.Revenue)
	fmt.Fprintf(&b, "Total funding: %s\n", in.TotalFunding)
	fmt.Fprintf(&b, "First-degree connection: %s\n", yesNo(in.FirstDegree))
	fmt.Fprintf(&b, "Context: %s\n\n", in.Context)
	b.WriteString("## Employment history\n")
	b.WriteString(in.EmploymentHistory)
	b.WriteString("\n")
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// Instructions is the fixed rubric section of the scoring prompt.
const Instructions = `Score this prospect against the sender profile above.

Rubric:
- proximity_score (0-30): shared employers, schools, communities, or a direct connection.
- relevance_score (0-40): how well their seniority, organization scale and role fit what the sender offers under the prospect's tag.
- urgency_score (0-30): recent changes such as funding, new role, or growth that make outreach timely.
total_score must equal the sum of the three.

Return ONLY a JSON object:
{"total_score": int, "proximity_score": int, "relevance_score": int, "urgency_score": int,
 "proximity_reasons": [string], "relevance_reasons": [string], "urgency_reasons": [string],
 "summary": string}`
