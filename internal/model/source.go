package model

import "time"

// Source is a web page that is periodically mined for prospects.
type Source struct {
	ID                  string     `json:"id"`
	URL                 string     `json:"url"`
	ForTag              string     `json:"for_tag"`
	IsActive            bool       `json:"is_active"`
	CheckFrequencyHours int        `json:"check_frequency_hours"`
	LastCheckedAt       *time.Time `json:"last_checked_at,omitempty"`
	LastPeopleCount     int        `json:"last_people_count"`
	CreatedAt           time.Time  `json:"created_at"`
}

// Due reports whether the source should be checked at now.
func (s *Source) Due(now time.Time) bool {
	if s.LastCheckedAt == nil {
		return true
	}
	return now.Sub(*s.LastCheckedAt) >= time.Duration(s.CheckFrequencyHours)*time.Hour
}
