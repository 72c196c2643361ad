package pgstore

import (
	"time"

	"github.com/DoyleJ11/swim24-backend/internal/race"
)

type competitionRow struct {
	ID                 string `gorm:"type:varchar(64);primaryKey"`
	Name               string `gorm:"type:varchar(200);not null"`
	Location           string `gorm:"type:varchar(200)"`
	Status             string `gorm:"type:varchar(16);not null;default:upcoming"`
	NumberOfLanes      int    `gorm:"not null"`
	LaneLength         int    `gorm:"not null;default:25"`
	DoubleCountTimeout int    `gorm:"not null;default:15"`
	ActualStartTime    *time.Time
	ActualEndTime      *time.Time
	CreatedAt          time.Time
}

func (competitionRow) TableName() string { return "competitions" }

type teamRow struct {
	ID            string `gorm:"type:varchar(64);primaryKey"`
	CompetitionID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_team_color_lane,priority:1"`
	Name          string `gorm:"type:varchar(200);not null"`
	Color         string `gorm:"type:varchar(50);not null;uniqueIndex:idx_team_color_lane,priority:2"`
	AssignedLane  int    `gorm:"not null;uniqueIndex:idx_team_color_lane,priority:3"`
	CreatedAt     time.Time
}

func (teamRow) TableName() string { return "teams" }

type swimmerRow struct {
	ID              string `gorm:"type:varchar(64);primaryKey"`
	CompetitionID   string `gorm:"type:varchar(64);not null;index"`
	TeamID          string `gorm:"type:varchar(64);not null;index"`
	Name            string `gorm:"type:varchar(200);not null"`
	IsUnderAge      bool   `gorm:"column:is_under_12;not null;default:false"`
	GuardianName    string `gorm:"column:parent_name"`
	GuardianContact string `gorm:"column:parent_contact"`
	GuardianPresent bool   `gorm:"column:parent_present;not null;default:false"`
	CreatedAt       time.Time
}

func (swimmerRow) TableName() string { return "swimmers" }

type refereeRow struct {
	ID            string `gorm:"type:varchar(64);primaryKey"`
	CompetitionID string `gorm:"type:varchar(64);not null;index"`
	Name          string `gorm:"type:varchar(200)"`
	CreatedAt     time.Time
}

func (refereeRow) TableName() string { return "referees" }

type sessionRow struct {
	ID            string    `gorm:"type:varchar(64);primaryKey"`
	CompetitionID string    `gorm:"type:varchar(64);not null;index:idx_session_team,priority:1"`
	TeamID        string    `gorm:"type:varchar(64);not null;index:idx_session_team,priority:2"`
	SwimmerID     string    `gorm:"type:varchar(64);not null;index"`
	LaneNumber    int       `gorm:"not null"`
	StartTime     time.Time `gorm:"not null"`
	EndTime       *time.Time
	LapCount      int  `gorm:"not null;default:0"`
	IsActive      bool `gorm:"not null;default:true"`
}

func (sessionRow) TableName() string { return "swim_sessions" }

type lapRow struct {
	ID            string    `gorm:"type:varchar(64);primaryKey"`
	CompetitionID string    `gorm:"type:varchar(64);not null;index:idx_lap_team_ts,priority:1"`
	LaneNumber    int       `gorm:"not null"`
	TeamID        string    `gorm:"type:varchar(64);not null;index:idx_lap_team_ts,priority:2"`
	SwimmerID     string    `gorm:"type:varchar(64);not null;index"`
	RefereeID     *string   `gorm:"type:varchar(64);index"`
	LapNumber     int       `gorm:"not null"`
	Timestamp     time.Time `gorm:"not null;index:idx_lap_team_ts,priority:3"`
}

func (lapRow) TableName() string { return "lap_counts" }

func toCompetitionRow(c race.Competition) competitionRow {
	return competitionRow{
		ID:                 c.ID,
		Name:               c.Name,
		Location:           c.Location,
		Status:             string(c.Status),
		NumberOfLanes:      c.NumberOfLanes,
		LaneLength:         c.LaneLength,
		DoubleCountTimeout: c.DoubleCountTimeout,
		ActualStartTime:    c.ActualStartTime,
		ActualEndTime:      c.ActualEndTime,
		CreatedAt:          c.CreatedAt,
	}
}

func (r competitionRow) domain() race.Competition {
	return race.Competition{
		ID:                 r.ID,
		Name:               r.Name,
		Location:           r.Location,
		Status:             race.Status(r.Status),
		NumberOfLanes:      r.NumberOfLanes,
		LaneLength:         r.LaneLength,
		DoubleCountTimeout: r.DoubleCountTimeout,
		ActualStartTime:    utcPtr(r.ActualStartTime),
		ActualEndTime:      utcPtr(r.ActualEndTime),
		CreatedAt:          r.CreatedAt.UTC(),
	}
}

func toTeamRow(t race.Team) teamRow {
	return teamRow{ID: t.ID, CompetitionID: t.CompetitionID, Name: t.Name, Color: t.Color, AssignedLane: t.AssignedLane, CreatedAt: t.CreatedAt}
}

func (r teamRow) domain() race.Team {
	return race.Team{ID: r.ID, CompetitionID: r.CompetitionID, Name: r.Name, Color: r.Color, AssignedLane: r.AssignedLane, CreatedAt: r.CreatedAt.UTC()}
}

func toSwimmerRow(s race.Swimmer) swimmerRow {
	return swimmerRow{
		ID:              s.ID,
		CompetitionID:   s.CompetitionID,
		TeamID:          s.TeamID,
		Name:            s.Name,
		IsUnderAge:      s.IsUnderAge,
		GuardianName:    s.GuardianName,
		GuardianContact: s.GuardianContact,
		GuardianPresent: s.GuardianPresent,
		CreatedAt:       s.CreatedAt,
	}
}

func (r swimmerRow) domain() race.Swimmer {
	return race.Swimmer{
		ID:              r.ID,
		CompetitionID:   r.CompetitionID,
		TeamID:          r.TeamID,
		Name:            r.Name,
		IsUnderAge:      r.IsUnderAge,
		GuardianName:    r.GuardianName,
		GuardianContact: r.GuardianContact,
		GuardianPresent: r.GuardianPresent,
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

func toRefereeRow(r race.Referee) refereeRow {
	return refereeRow{ID: r.ID, CompetitionID: r.CompetitionID, Name: r.Name, CreatedAt: r.CreatedAt}
}

func (r refereeRow) domain() race.Referee {
	return race.Referee{ID: r.ID, CompetitionID: r.CompetitionID, Name: r.Name, CreatedAt: r.CreatedAt.UTC()}
}

func toSessionRow(s race.Session) sessionRow {
	return sessionRow{
		ID:            s.ID,
		CompetitionID: s.CompetitionID,
		TeamID:        s.TeamID,
		SwimmerID:     s.SwimmerID,
		LaneNumber:    s.LaneNumber,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		LapCount:      s.LapCount,
		IsActive:      s.IsActive,
	}
}

func (r sessionRow) domain() race.Session {
	return race.Session{
		ID:            r.ID,
		CompetitionID: r.CompetitionID,
		TeamID:        r.TeamID,
		SwimmerID:     r.SwimmerID,
		LaneNumber:    r.LaneNumber,
		StartTime:     r.StartTime.UTC(),
		EndTime:       utcPtr(r.EndTime),
		LapCount:      r.LapCount,
		IsActive:      r.IsActive,
	}
}

func toLapRow(l race.LapCount) lapRow {
	row := lapRow{
		ID:            l.ID,
		CompetitionID: l.CompetitionID,
		LaneNumber:    l.LaneNumber,
		TeamID:        l.TeamID,
		SwimmerID:     l.SwimmerID,
		LapNumber:     l.LapNumber,
		Timestamp:     l.Timestamp,
	}
	if l.RefereeID != "" {
		ref := l.RefereeID
		row.RefereeID = &ref
	}
	return row
}

func (r lapRow) domain() race.LapCount {
	l := race.LapCount{
		ID:            r.ID,
		CompetitionID: r.CompetitionID,
		LaneNumber:    r.LaneNumber,
		TeamID:        r.TeamID,
		SwimmerID:     r.SwimmerID,
		LapNumber:     r.LapNumber,
		Timestamp:     r.Timestamp.UTC(),
	}
	if r.RefereeID != nil {
		l.RefereeID = *r.RefereeID
	}
	return l
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
