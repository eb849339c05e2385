// Package scoring validates rubric results and assembles scoring inputs.
package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/structured"
)

// Dimension bounds.
const (
	MaxProximity = 30
	MaxRelevance = 40
	MaxUrgency   = 30
	MaxTotal     = MaxProximity + MaxRelevance + MaxUrgency
)

// maxHistory caps the number of employment history entries in a prompt.
const maxHistory = 10

// Validate checks that each dimension is within bounds and that the total is
// their exact sum. A violation is reported as malformed output.
func Validate(r model.ScoreResult) error {
	bad := func(reason string) error {
		return &structured.MalformedOutputError{Shape: structured.ShapeObject, Reason: reason}
	}
	switch {
	case r.ProximityScore < 0 || r.ProximityScore > MaxProximity:
		return bad(fmt.Sprintf("proximity_score %d out of range 0-%d", r.ProximityScore, MaxProximity))
	case r.RelevanceScore < 0 || r.RelevanceScore > MaxRelevance:
		return bad(fmt.Sprintf("relevance_score %d out of range 0-%d", r.RelevanceScore, MaxRelevance))
	case r.UrgencyScore < 0 || r.UrgencyScore > MaxUrgency:
		return bad(fmt.Sprintf("urgency_score %d out of range 0-%d", r.UrgencyScore, MaxUrgency))
	case r.TotalScore < 0 || r.TotalScore > MaxTotal:
		return bad(fmt.Sprintf("total_score %d out of range 0-%d", r.TotalScore, MaxTotal))
	}
	sum := r.ProximityScore + r.RelevanceScore + r.UrgencyScore
	if r.TotalScore != sum {
		return bad(fmt.Sprintf("total_score %d does not equal dimension sum %d", r.TotalScore, sum))
	}
	return nil
}

// Reasons formats the persisted priority_reasons value.
func Reasons(r model.ScoreResult) string {
	return fmt.Sprintf("[%d/%d/%d] %s", r.ProximityScore, r.RelevanceScore, r.UrgencyScore, r.Summary)
}

// SharedBackground joins the proximity reasons for storage.
func SharedBackground(r model.ScoreResult) string {
	return strings.Join(r.ProximityReasons, "; ")
}

type employment struct {
	Title            string `json:"title"`
	OrganizationName string `json:"organization_name"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	Current          bool   `json:"current"`
}

// EmploymentHistory flattens the employment history held in a raw
// people-data payload into prompt lines. It returns "Not available" when the
// payload has none.
func EmploymentHistory(raw json.RawMessage) string {
	const none = "Not available"
	if len(raw) == 0 {
		return none
	}
	var person struct {
		EmploymentHistory []employment `json:"employment_history"`
	}
	if err := json.Unmarshal(raw, &person); err != nil || len(person.EmploymentHistory) == 0 {
		return none
	}

	entries := person.EmploymentHistory
	if len(entries) > maxHistory {
		entries = entries[:maxHistory]
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		end := e.EndDate
		if e.Current {
			end = "present"
		}
		lines = append(lines, fmt.Sprintf("- %s at %s (%s to %s)",
			orUnknown(e.Title), orUnknown(e.OrganizationName), orUnknown(e.StartDate), orUnknown(end)))
	}
	return strings.Join(lines, "\n")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func intOrUnknown(v *int64) string {
	if v == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%d", *v)
}
