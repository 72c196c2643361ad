// Package store defines the persistence handle the tracker is built on.
// Implementations are injected into constructors; there is no package-level
// connection.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/swim24-backend/internal/race"
)

var ErrNotFound = errors.New("record not found")

type LapFilter struct {
	CompetitionID string
	TeamID        string
	SwimmerID     string
}

type SessionFilter struct {
	CompetitionID string
	TeamID        string
	Active        *bool
}

// Scope selects the open sessions a force-close applies to. Exactly one
// field is expected to be set.
type Scope struct {
	CompetitionID string
	TeamID        string
	SwimmerID     string
}

// Deleted reports how many rows a competition delete removed.
type Deleted struct {
	Teams        int `json:"teams"`
	Swimmers     int `json:"swimmers"`
	Referees     int `json:"referees"`
	LapCounts    int `json:"lapCounts"`
	SwimSessions int `json:"swimSessions"`
}

type Store interface {
	CreateCompetition(ctx context.Context, c race.Competition) error
	GetCompetition(ctx context.Context, id string) (race.Competition, error)
	ListCompetitions(ctx context.Context) ([]race.Competition, error)
	UpdateCompetition(ctx context.Context, c race.Competition) error
	DeleteCompetition(ctx context.Context, id string) (Deleted, error)

	CreateTeam(ctx context.Context, t race.Team) error
	GetTeam(ctx context.Context, id string) (race.Team, error)
	ListTeams(ctx context.Context, competitionID string) ([]race.Team, error)
	UpdateTeam(ctx context.Context, t race.Team) error
	DeleteTeam(ctx context.Context, id string) error

	CreateSwimmer(ctx context.Context, s race.Swimmer) error
	GetSwimmer(ctx context.Context, id string) (race.Swimmer, error)
	ListSwimmers(ctx context.Context, competitionID, teamID string) ([]race.Swimmer, error)
	UpdateSwimmer(ctx context.Context, s race.Swimmer) error
	DeleteSwimmer(ctx context.Context, id string) error

	CreateReferee(ctx context.Context, r race.Referee) error
	GetReferee(ctx context.Context, id string) (race.Referee, error)
	ListReferees(ctx context.Context, competitionID string) ([]race.Referee, error)
	DeleteReferee(ctx context.Context, id string) error

	CreateSession(ctx context.Context, s race.Session) error
	GetSession(ctx context.Context, id string) (race.Session, error)
	UpdateSession(ctx context.Context, s race.Session) error
	ListSessions(ctx context.Context, f SessionFilter) ([]race.Session, error)
	// ActiveSession returns the open session of a team, or ErrNotFound.
	ActiveSession(ctx context.Context, competitionID, teamID string) (race.Session, error)
	IncrementActiveLap(ctx context.Context, competitionID, teamID string) error
	CloseActive(ctx context.Context, scope Scope, at time.Time) (int, error)

	// AppendLap stores the lap and bumps the team's active session counter
	// as one unit; either both happen or neither.
	AppendLap(ctx context.Context, lap race.LapCount) error
	LastLap(ctx context.Context, competitionID, teamID string) (race.LapCount, error)
	CountLaps(ctx context.Context, competitionID, teamID string) (int, error)
	// ListLaps orders by timestamp ascending.
	ListLaps(ctx context.Context, f LapFilter) ([]race.LapCount, error)
	DetachReferee(ctx context.Context, refereeID string) (int, error)

	Close() error
}
