package types

import (
	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/relay"
)

type ClientMessage struct {
	Type string `json:"type"` // "Leaderboard" | "Ping"
}

type ServerMessage struct {
	Type          string          `json:"type"` // "Leaderboard" | "SessionStarted" | "SessionEnded" | "LapRecorded" | "Pong" | "Error"
	CompetitionID string          `json:"competitionId,omitempty"`
	TeamID        string          `json:"teamId,omitempty"`
	Session       *race.Session   `json:"session,omitempty"`
	Lap           *race.LapCount  `json:"lap,omitempty"`
	TeamStats     []race.TeamStat `json:"teamStats,omitempty"`
	Error         string          `json:"error,omitempty"`
}

func FromEvent(e relay.Event) ServerMessage {
	return ServerMessage{
		Type:          string(e.Type),
		CompetitionID: e.CompetitionID,
		TeamID:        e.TeamID,
		Session:       e.Session,
		Lap:           e.Lap,
	}
}
