package race

import (
	"strings"
	"time"
)

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
)

var Statuses = []Status{StatusUpcoming, StatusActive, StatusPaused, StatusCompleted, StatusStopped}

func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusPaused, StatusCompleted, StatusStopped:
		return true
	}
	return false
}

// Counting reports whether lap taps and session starts are allowed.
func (s Status) Counting() bool { return s == StatusActive }

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", Errorf("race.parse_status", KindInvalid, "invalid status %q", raw)
	}
	return s, nil
}

type Competition struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Location           string     `json:"location,omitempty"`
	Status             Status     `json:"status"`
	NumberOfLanes      int        `json:"numberOfLanes"`
	LaneLength         int        `json:"laneLength"`
	DoubleCountTimeout int        `json:"doubleCountTimeout"` // seconds
	ActualStartTime    *time.Time `json:"actualStartTime"`
	ActualEndTime      *time.Time `json:"actualEndTime"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// ApplyStatus moves the competition to next and stamps the actual start/end
// times the first time the event goes live or finishes.
func (c Competition) ApplyStatus(next Status, now time.Time) Competition {
	c.Status = next
	switch next {
	case StatusActive:
		if c.ActualStartTime == nil {
			t := now.UTC()
			c.ActualStartTime = &t
		}
	case StatusCompleted, StatusStopped:
		if c.ActualEndTime == nil {
			t := now.UTC()
			c.ActualEndTime = &t
		}
	}
	return c
}

type Team struct {
	ID            string    `json:"id"`
	CompetitionID string    `json:"competitionId"`
	Name          string    `json:"name"`
	Color         string    `json:"color"`
	AssignedLane  int       `json:"assignedLane"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Swimmer struct {
	ID              string    `json:"id"`
	CompetitionID   string    `json:"competitionId"`
	TeamID          string    `json:"teamId"`
	Name            string    `json:"name"`
	IsUnderAge      bool      `json:"isUnder12"`
	GuardianName    string    `json:"parentName,omitempty"`
	GuardianContact string    `json:"parentContact,omitempty"`
	GuardianPresent bool      `json:"parentPresent"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Validate enforces the guardian rule for under-age swimmers. It runs on
// every create and update.
func (s Swimmer) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return Errorf("race.swimmer", KindInvalid, "name is required")
	}
	if !s.IsUnderAge {
		return nil
	}
	if strings.TrimSpace(s.GuardianName) == "" {
		return Errorf("race.swimmer", KindInvalid, "parentName is required for swimmers under 12")
	}
	if strings.TrimSpace(s.GuardianContact) == "" {
		return Errorf("race.swimmer", KindInvalid, "parentContact is required for swimmers under 12")
	}
	return nil
}

type Referee struct {
	ID            string    `json:"id"`
	CompetitionID string    `json:"competitionId"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Session is one swimmer's stint in the water for a team.
type Session struct {
	ID            string     `json:"id"`
	CompetitionID string     `json:"competitionId"`
	TeamID        string     `json:"teamId"`
	SwimmerID     string     `json:"swimmerId"`
	LaneNumber    int        `json:"laneNumber"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime"`
	LapCount      int        `json:"lapCount"`
	IsActive      bool       `json:"isActive"`
}

// WaterSeconds is the closed duration of the session, zero while it is open.
func (s Session) WaterSeconds() float64 {
	if s.StartTime.IsZero() || s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(s.StartTime).Seconds()
}

// LapCount is one accepted lap tap. RefereeID is empty once the referee
// account has been removed.
type LapCount struct {
	ID            string    `json:"id"`
	CompetitionID string    `json:"competitionId"`
	LaneNumber    int       `json:"laneNumber"`
	TeamID        string    `json:"teamId"`
	SwimmerID     string    `json:"swimmerId"`
	RefereeID     string    `json:"refereeId"`
	LapNumber     int       `json:"lapNumber"`
	Timestamp     time.Time `json:"timestamp"`
}

// NextLapNumber returns the explicit lap number if one was supplied, else
// the team's prior lap count plus one.
func NextLapNumber(prior, supplied int) int {
	if supplied > 0 {
		return supplied
	}
	return prior + 1
}
