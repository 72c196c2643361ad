package race

import (
	"math"
	"sort"
	"time"
)

// BirdHours are the UTC hour buckets that earn bonus laps. Hours are taken
// straight from the lap timestamp with no timezone conversion.
type BirdHours struct {
	Late  int
	Early int
}

var DefaultBirdHours = BirdHours{Late: 0, Early: 5}

func (h BirdHours) classify(ts time.Time) (late, early bool) {
	hour := ts.UTC().Hour()
	return hour == h.Late, hour == h.Early
}

// Snapshot is a point-in-time read of one competition.
type Snapshot struct {
	Competition Competition
	Teams       []Team
	Swimmers    []Swimmer
	Sessions    []Session
	Laps        []LapCount
}

type TeamRef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	AssignedLane int    `json:"assignedLane"`
}

type ActiveSwimmer struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	LaneNumber int    `json:"laneNumber"`
}

type TeamStat struct {
	Team          TeamRef        `json:"team"`
	TotalLaps     int            `json:"totalLaps"`
	LateBirdLaps  int            `json:"lateBirdLaps"`
	EarlyBirdLaps int            `json:"earlyBirdLaps"`
	LapsPerHour   float64        `json:"lapsPerHour"`
	FastestLapSec *float64       `json:"fastestLapSec"`
	ActiveSwimmer *ActiveSwimmer `json:"activeSwimmer"`
}

type SwimmerRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TeamID     string `json:"teamId"`
	TeamName   string `json:"teamName"`
	TeamColor  string `json:"teamColor"`
	IsUnderAge bool   `json:"isUnder12"`
}

type SwimmerStat struct {
	Swimmer           SwimmerRef `json:"swimmer"`
	TotalLaps         int        `json:"totalLaps"`
	LateBirdLaps      int        `json:"lateBirdLaps"`
	EarlyBirdLaps     int        `json:"earlyBirdLaps"`
	TotalWaterSeconds int        `json:"totalWaterSeconds"`
}

type CompetitionRef struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Status          Status     `json:"status"`
	NumberOfLanes   int        `json:"numberOfLanes"`
	ActualStartTime *time.Time `json:"actualStartTime"`
	ActualEndTime   *time.Time `json:"actualEndTime"`
}

type Summary struct {
	Competition    CompetitionRef `json:"competition"`
	TotalLaps      int            `json:"totalLaps"`
	ActiveSessions int            `json:"activeSessions"`
	ElapsedSeconds int64          `json:"elapsedSeconds"`
	TeamStats      []TeamStat     `json:"teamStats"`
	SwimmerStats   []SwimmerStat  `json:"swimmerStats"`
}

// TeamStats ranks teams by total laps, descending. Ties keep lane order.
func (s Snapshot) TeamStats(hours BirdHours) []TeamStat {
	teams := append([]Team(nil), s.Teams...)
	sort.SliceStable(teams, func(i, j int) bool {
		if teams[i].AssignedLane != teams[j].AssignedLane {
			return teams[i].AssignedLane < teams[j].AssignedLane
		}
		return teams[i].Name < teams[j].Name
	})

	byTeam := make(map[string][]time.Time, len(teams))
	for _, lap := range s.sortedLaps() {
		byTeam[lap.TeamID] = append(byTeam[lap.TeamID], lap.Timestamp)
	}

	names := make(map[string]string, len(s.Swimmers))
	for _, sw := range s.Swimmers {
		names[sw.ID] = sw.Name
	}
	active := make(map[string]*ActiveSwimmer)
	for _, sess := range s.Sessions {
		if !sess.IsActive {
			continue
		}
		active[sess.TeamID] = &ActiveSwimmer{ID: sess.SwimmerID, Name: names[sess.SwimmerID], LaneNumber: sess.LaneNumber}
	}

	out := make([]TeamStat, 0, len(teams))
	for _, t := range teams {
		stamps := byTeam[t.ID]
		stat := TeamStat{
			Team:          TeamRef{ID: t.ID, Name: t.Name, Color: t.Color, AssignedLane: t.AssignedLane},
			TotalLaps:     len(stamps),
			ActiveSwimmer: active[t.ID],
		}
		for _, ts := range stamps {
			late, early := hours.classify(ts)
			if late {
				stat.LateBirdLaps++
			}
			if early {
				stat.EarlyBirdLaps++
			}
		}
		stat.LapsPerHour, stat.FastestLapSec = pace(stamps)
		out = append(out, stat)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalLaps > out[j].TotalLaps })
	return out
}

// pace needs at least two laps spread over a non-zero span.
func pace(stamps []time.Time) (perHour float64, fastest *float64) {
	if len(stamps) < 2 {
		return 0, nil
	}
	span := stamps[len(stamps)-1].Sub(stamps[0]).Seconds()
	if span <= 0 {
		return 0, nil
	}

	perHour = round(float64(len(stamps)-1)/(span/3600), 2)

	best := math.Inf(1)
	for i := 1; i < len(stamps); i++ {
		best = math.Min(best, stamps[i].Sub(stamps[i-1]).Seconds())
	}
	f := round(best, 1)
	return perHour, &f
}

// SwimmerStats ranks swimmers by total laps, descending. Ties keep name order.
func (s Snapshot) SwimmerStats(hours BirdHours) []SwimmerStat {
	swimmers := append([]Swimmer(nil), s.Swimmers...)
	sort.SliceStable(swimmers, func(i, j int) bool { return swimmers[i].Name < swimmers[j].Name })

	teams := make(map[string]Team, len(s.Teams))
	for _, t := range s.Teams {
		teams[t.ID] = t
	}

	type tally struct{ total, late, early int }
	laps := make(map[string]*tally)
	for _, lap := range s.Laps {
		t := laps[lap.SwimmerID]
		if t == nil {
			t = &tally{}
			laps[lap.SwimmerID] = t
		}
		t.total++
		late, early := hours.classify(lap.Timestamp)
		if late {
			t.late++
		}
		if early {
			t.early++
		}
	}

	water := make(map[string]float64)
	for _, sess := range s.Sessions {
		water[sess.SwimmerID] += sess.WaterSeconds()
	}

	out := make([]SwimmerStat, 0, len(swimmers))
	for _, sw := range swimmers {
		team := teams[sw.TeamID]
		stat := SwimmerStat{
			Swimmer: SwimmerRef{
				ID:         sw.ID,
				Name:       sw.Name,
				TeamID:     sw.TeamID,
				TeamName:   team.Name,
				TeamColor:  team.Color,
				IsUnderAge: sw.IsUnderAge,
			},
			TotalWaterSeconds: int(water[sw.ID]),
		}
		if t := laps[sw.ID]; t != nil {
			stat.TotalLaps, stat.LateBirdLaps, stat.EarlyBirdLaps = t.total, t.late, t.early
		}
		out = append(out, stat)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalLaps > out[j].TotalLaps })
	return out
}

// Summarize combines team and swimmer stats with the event-wide counters.
func (s Snapshot) Summarize(hours BirdHours, now time.Time) Summary {
	c := s.Competition
	sum := Summary{
		Competition: CompetitionRef{
			ID:              c.ID,
			Name:            c.Name,
			Status:          c.Status,
			NumberOfLanes:   c.NumberOfLanes,
			ActualStartTime: c.ActualStartTime,
			ActualEndTime:   c.ActualEndTime,
		},
		TotalLaps:    len(s.Laps),
		TeamStats:    s.TeamStats(hours),
		SwimmerStats: s.SwimmerStats(hours),
	}
	for _, sess := range s.Sessions {
		if sess.IsActive {
			sum.ActiveSessions++
		}
	}
	if c.ActualStartTime != nil {
		sum.ElapsedSeconds = int64(now.Sub(*c.ActualStartTime).Seconds())
	}
	return sum
}

func (s Snapshot) sortedLaps() []LapCount {
	laps := append([]LapCount(nil), s.Laps...)
	sort.SliceStable(laps, func(i, j int) bool { return laps[i].Timestamp.Before(laps[j].Timestamp) })
	return laps
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
