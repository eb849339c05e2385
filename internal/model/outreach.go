package model

import (
	"encoding/json"
	"time"
)

// Outreach statuses and channels.
const (
	OutreachStatusDrafted = "drafted"
	ChannelEmail          = "email"
)

// Tone of a research-backed draft.
type Tone string

const (
	ToneWarm         Tone = "warm"
	ToneProfessional Tone = "professional"
)

// Valid reports whether t is a supported tone.
func (t Tone) Valid() bool {
	return t == ToneWarm || t == ToneProfessional
}

// Outreach is the drafted message for a prospect. There is at most one per
// prospect.
type Outreach struct {
	ID            string          `json:"id"`
	PersonID      string          `json:"person_id"`
	Channel       string          `json:"channel"`
	Subject       string          `json:"subject"`
	Body          string          `json:"body"`
	ResearchNotes json.RawMessage `json:"research_notes,omitempty"`
	Tone          Tone            `json:"tone,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
