package relay

import "github.com/DoyleJ11/swim24-backend/internal/race"

type EventType string

const (
	EvtSessionStarted EventType = "SessionStarted"
	EvtSessionEnded   EventType = "SessionEnded"
	EvtLapRecorded    EventType = "LapRecorded"
)

// Event is published after a write has been committed.
type Event struct {
	Type          EventType      `json:"type"`
	CompetitionID string         `json:"competitionId"`
	TeamID        string         `json:"teamId"`
	Session       *race.Session  `json:"session,omitempty"`
	Lap           *race.LapCount `json:"lap,omitempty"`
}
