package pipeline

import (
	"time"

	"github.com/sells-group/warmline/internal/model"
)

// DefaultStaleAfter is how long a score stays fresh.
const DefaultStaleAfter = 7 * 24 * time.Hour

// DefaultMinScore is the drafting threshold.
const DefaultMinScore = 40

// DueSources returns the active sources due for a check at now, in input
// order.
func DueSources(sources []model.Source, now time.Time) []model.Source {
	var out []model.Source
	for _, s := range sources {
		if s.IsActive && s.Due(now) {
			out = append(out, s)
		}
	}
	return out
}

// ScoreCandidates returns the prospects eligible for scoring: never scored,
// or scored at least staleAfter ago. force admits every prospect.
func ScoreCandidates(prospects []model.Prospect, now time.Time, staleAfter time.Duration, force bool) []model.Prospect {
	if force {
		return prospects
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	var out []model.Prospect
	for _, p := range prospects {
		if p.ScoredAt == nil || now.Sub(*p.ScoredAt) >= staleAfter {
			out = append(out, p)
		}
	}
	return out
}

// DraftCandidates returns the scored prospects at or above minScore.
func DraftCandidates(prospects []model.Prospect, minScore int) []model.Prospect {
	var out []model.Prospect
	for _, p := range prospects {
		if p.PriorityScore != nil && *p.PriorityScore >= minScore {
			out = append(out, p)
		}
	}
	return out
}
