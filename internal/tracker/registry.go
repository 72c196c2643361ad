package tracker

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/relay"
	"github.com/DoyleJ11/swim24-backend/internal/store"
)

// --- competitions ---

type CompetitionInput struct {
	Name               string `json:"name"`
	Location           string `json:"location"`
	NumberOfLanes      int    `json:"numberOfLanes"`
	LaneLength         *int   `json:"laneLength"`
	DoubleCountTimeout *int   `json:"doubleCountTimeout"`
}

func (s *Service) CreateCompetition(ctx context.Context, in CompetitionInput) (race.Competition, error) {
	const op = "tracker.create_competition"

	if strings.TrimSpace(in.Name) == "" {
		return race.Competition{}, race.Errorf(op, race.KindInvalid, "name is required")
	}
	if in.NumberOfLanes < 1 {
		return race.Competition{}, race.Errorf(op, race.KindInvalid, "numberOfLanes must be positive")
	}
	c := race.Competition{
		ID:                 s.newID(),
		Name:               strings.TrimSpace(in.Name),
		Location:           in.Location,
		Status:             race.StatusUpcoming,
		NumberOfLanes:      in.NumberOfLanes,
		LaneLength:         s.defaults.LaneLength,
		DoubleCountTimeout: s.defaults.DoubleCountTimeout,
		CreatedAt:          s.clock(),
	}
	if in.LaneLength != nil {
		if *in.LaneLength < 1 {
			return race.Competition{}, race.Errorf(op, race.KindInvalid, "laneLength must be positive")
		}
		c.LaneLength = *in.LaneLength
	}
	if in.DoubleCountTimeout != nil {
		if *in.DoubleCountTimeout < 0 {
			return race.Competition{}, race.Errorf(op, race.KindInvalid, "doubleCountTimeout must not be negative")
		}
		c.DoubleCountTimeout = *in.DoubleCountTimeout
	}

	if err := s.store.CreateCompetition(ctx, c); err != nil {
		return race.Competition{}, race.Wrap(op, race.KindInternal, err)
	}
	s.log.Info("competition created", zap.String("competition", c.ID), zap.String("name", c.Name))
	return c, nil
}

// GetCompetition is the status and config lookup the core gates on.
func (s *Service) GetCompetition(ctx context.Context, id string) (race.Competition, error) {
	c, err := s.store.GetCompetition(ctx, id)
	if err != nil {
		return race.Competition{}, storeErr("tracker.get_competition", "competition", err)
	}
	return c, nil
}

func (s *Service) ListCompetitions(ctx context.Context) ([]race.Competition, error) {
	out, err := s.store.ListCompetitions(ctx)
	if err != nil {
		return nil, race.Wrap("tracker.list_competitions", race.KindInternal, err)
	}
	return out, nil
}

// CompetitionPatch changes a competition's config. Nil fields are left alone.
type CompetitionPatch struct {
	Name               *string `json:"name"`
	Location           *string `json:"location"`
	NumberOfLanes      *int    `json:"numberOfLanes"`
	LaneLength         *int    `json:"laneLength"`
	DoubleCountTimeout *int    `json:"doubleCountTimeout"`
	Status             *string `json:"status"`
}

// UpdateCompetition applies a config patch. A new doubleCountTimeout gates
// the very next tap, since relays read the competition on every lap.
func (s *Service) UpdateCompetition(ctx context.Context, id string, p CompetitionPatch) (race.Competition, error) {
	const op = "tracker.update_competition"

	var next *race.Status
	if p.Status != nil {
		st, err := race.ParseStatus(*p.Status)
		if err != nil {
			return race.Competition{}, err
		}
		next = &st
	}
	c, err := s.store.GetCompetition(ctx, id)
	if err != nil {
		return race.Competition{}, storeErr(op, "competition", err)
	}

	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return race.Competition{}, race.Errorf(op, race.KindInvalid, "name must not be empty")
		}
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Location != nil {
		c.Location = *p.Location
	}
	if p.NumberOfLanes != nil {
		if *p.NumberOfLanes < 1 {
			return race.Competition{}, race.Errorf(op, race.KindInvalid, "numberOfLanes must be positive")
		}
		c.NumberOfLanes = *p.NumberOfLanes
	}
	if p.LaneLength != nil {
		if *p.LaneLength < 1 {
			return race.Competition{}, race.Errorf(op, race.KindInvalid, "laneLength must be positive")
		}
		c.LaneLength = *p.LaneLength
	}
	if p.DoubleCountTimeout != nil {
		if *p.DoubleCountTimeout < 0 {
			return race.Competition{}, race.Errorf(op, race.KindInvalid, "doubleCountTimeout must not be negative")
		}
		c.DoubleCountTimeout = *p.DoubleCountTimeout
	}
	if next != nil {
		c = c.ApplyStatus(*next, s.clock())
	}

	if err := s.store.UpdateCompetition(ctx, c); err != nil {
		return race.Competition{}, storeErr(op, "competition", err)
	}
	s.log.Info("competition updated", zap.String("competition", id),
		zap.Int("double_count_timeout", c.DoubleCountTimeout), zap.String("status", string(c.Status)))
	return c, nil
}

// UpdateCompetitionStatus accepts any of the five statuses from any other.
func (s *Service) UpdateCompetitionStatus(ctx context.Context, id, status string) (race.Competition, error) {
	const op = "tracker.update_competition_status"

	next, err := race.ParseStatus(status)
	if err != nil {
		return race.Competition{}, err
	}
	c, err := s.store.GetCompetition(ctx, id)
	if err != nil {
		return race.Competition{}, storeErr(op, "competition", err)
	}
	prev := c.Status
	c = c.ApplyStatus(next, s.clock())
	if err := s.store.UpdateCompetition(ctx, c); err != nil {
		return race.Competition{}, storeErr(op, "competition", err)
	}
	s.log.Info("competition status changed", zap.String("competition", id), zap.String("from", string(prev)), zap.String("to", string(next)))
	return c, nil
}

// DeleteCompetition closes open sessions, removes everything the
// competition owns and stops its relays.
func (s *Service) DeleteCompetition(ctx context.Context, id string) (store.Deleted, error) {
	const op = "tracker.delete_competition"

	if _, err := s.store.GetCompetition(ctx, id); err != nil {
		return store.Deleted{}, storeErr(op, "competition", err)
	}
	if _, err := s.CloseAllActiveFor(ctx, store.Scope{CompetitionID: id}); err != nil {
		return store.Deleted{}, err
	}
	d, err := s.store.DeleteCompetition(ctx, id)
	if err != nil {
		return store.Deleted{}, storeErr(op, "competition", err)
	}
	if err := s.hub.RemoveCompetition(ctx, id); err != nil {
		s.log.Warn("relay cleanup failed", zap.String("competition", id), zap.Error(err))
	}
	s.log.Info("competition deleted", zap.String("competition", id),
		zap.Int("teams", d.Teams), zap.Int("swimmers", d.Swimmers), zap.Int("laps", d.LapCounts))
	return d, nil
}

// --- teams ---

type TeamInput struct {
	CompetitionID string `json:"competitionId"`
	Name          string `json:"name"`
	Color         string `json:"color"`
	AssignedLane  int    `json:"assignedLane"`
}

type TeamPatch struct {
	Name         *string `json:"name"`
	Color        *string `json:"color"`
	AssignedLane *int    `json:"assignedLane"`
}

func (s *Service) CreateTeam(ctx context.Context, in TeamInput) (race.Team, error) {
	const op = "tracker.create_team"

	if missing := firstMissing(
		field{"competitionId", in.CompetitionID},
		field{"name", in.Name},
		field{"color", in.Color},
	); missing != "" {
		return race.Team{}, race.Errorf(op, race.KindInvalid, "missing required field %s", missing)
	}
	if in.AssignedLane < 1 {
		return race.Team{}, race.Errorf(op, race.KindInvalid, "assignedLane must be positive")
	}
	if _, err := s.store.GetCompetition(ctx, in.CompetitionID); err != nil {
		return race.Team{}, storeErr(op, "competition", err)
	}

	t := race.Team{
		ID:            s.newID(),
		CompetitionID: in.CompetitionID,
		Name:          strings.TrimSpace(in.Name),
		Color:         strings.TrimSpace(in.Color),
		AssignedLane:  in.AssignedLane,
		CreatedAt:     s.clock(),
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()
	if err := s.checkColorLane(ctx, op, t); err != nil {
		return race.Team{}, err
	}
	if err := s.store.CreateTeam(ctx, t); err != nil {
		return race.Team{}, race.Wrap(op, race.KindInternal, err)
	}
	s.log.Info("team created", zap.String("team", t.ID), zap.String("name", t.Name), zap.Int("lane", t.AssignedLane))
	return t, nil
}

func (s *Service) UpdateTeam(ctx context.Context, id string, p TeamPatch) (race.Team, error) {
	const op = "tracker.update_team"

	s.regMu.Lock()
	defer s.regMu.Unlock()

	t, err := s.store.GetTeam(ctx, id)
	if err != nil {
		return race.Team{}, storeErr(op, "team", err)
	}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return race.Team{}, race.Errorf(op, race.KindInvalid, "name must not be empty")
		}
		t.Name = strings.TrimSpace(*p.Name)
	}
	if p.Color != nil {
		if strings.TrimSpace(*p.Color) == "" {
			return race.Team{}, race.Errorf(op, race.KindInvalid, "color must not be empty")
		}
		t.Color = strings.TrimSpace(*p.Color)
	}
	if p.AssignedLane != nil {
		if *p.AssignedLane < 1 {
			return race.Team{}, race.Errorf(op, race.KindInvalid, "assignedLane must be positive")
		}
		t.AssignedLane = *p.AssignedLane
	}

	if err := s.checkColorLane(ctx, op, t); err != nil {
		return race.Team{}, err
	}
	if err := s.store.UpdateTeam(ctx, t); err != nil {
		return race.Team{}, storeErr(op, "team", err)
	}
	return t, nil
}

// checkColorLane enforces one team per (color, lane) in a competition.
// Colors compare case-folded.
func (s *Service) checkColorLane(ctx context.Context, op string, t race.Team) error {
	teams, err := s.store.ListTeams(ctx, t.CompetitionID)
	if err != nil {
		return race.Wrap(op, race.KindInternal, err)
	}
	fold := cases.Fold()
	color := fold.String(t.Color)
	for _, other := range teams {
		if other.ID == t.ID || other.AssignedLane != t.AssignedLane {
			continue
		}
		if fold.String(other.Color) == color {
			return race.Errorf(op, race.KindConflict, "a team with the same color already exists on this lane")
		}
	}
	return nil
}

func (s *Service) GetTeam(ctx context.Context, id string) (race.Team, error) {
	t, err := s.store.GetTeam(ctx, id)
	if err != nil {
		return race.Team{}, storeErr("tracker.get_team", "team", err)
	}
	return t, nil
}

func (s *Service) ListTeams(ctx context.Context, competitionID string) ([]race.Team, error) {
	out, err := s.store.ListTeams(ctx, competitionID)
	if err != nil {
		return nil, race.Wrap("tracker.list_teams", race.KindInternal, err)
	}
	return out, nil
}

func (s *Service) DeleteTeam(ctx context.Context, id string) error {
	const op = "tracker.delete_team"

	t, err := s.store.GetTeam(ctx, id)
	if err != nil {
		return storeErr(op, "team", err)
	}
	if _, err := s.CloseAllActiveFor(ctx, store.Scope{TeamID: id}); err != nil {
		return err
	}
	if err := s.store.DeleteTeam(ctx, id); err != nil {
		return storeErr(op, "team", err)
	}
	if err := s.hub.Remove(ctx, relay.Key{CompetitionID: t.CompetitionID, TeamID: id}); err != nil {
		s.log.Warn("relay cleanup failed", zap.String("team", id), zap.Error(err))
	}
	s.log.Info("team deleted", zap.String("team", id))
	return nil
}

// TeamInCompetition is the team membership check.
func (s *Service) TeamInCompetition(ctx context.Context, teamID, competitionID string) (bool, error) {
	t, err := s.store.GetTeam(ctx, teamID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, race.Wrap("tracker.team_in_competition", race.KindInternal, err)
	}
	return t.CompetitionID == competitionID, nil
}

// --- swimmers ---

type SwimmerInput struct {
	CompetitionID   string `json:"competitionId"`
	TeamID          string `json:"teamId"`
	Name            string `json:"name"`
	IsUnderAge      bool   `json:"isUnder12"`
	GuardianName    string `json:"parentName"`
	GuardianContact string `json:"parentContact"`
	GuardianPresent bool   `json:"parentPresent"`
}

type SwimmerPatch struct {
	Name            *string `json:"name"`
	IsUnderAge      *bool   `json:"isUnder12"`
	GuardianName    *string `json:"parentName"`
	GuardianContact *string `json:"parentContact"`
	GuardianPresent *bool   `json:"parentPresent"`
}

func (s *Service) CreateSwimmer(ctx context.Context, in SwimmerInput) (race.Swimmer, error) {
	const op = "tracker.create_swimmer"

	if missing := firstMissing(
		field{"competitionId", in.CompetitionID},
		field{"teamId", in.TeamID},
	); missing != "" {
		return race.Swimmer{}, race.Errorf(op, race.KindInvalid, "missing required field %s", missing)
	}
	sw := race.Swimmer{
		ID:              s.newID(),
		CompetitionID:   in.CompetitionID,
		TeamID:          in.TeamID,
		Name:            strings.TrimSpace(in.Name),
		IsUnderAge:      in.IsUnderAge,
		GuardianName:    in.GuardianName,
		GuardianContact: in.GuardianContact,
		GuardianPresent: in.GuardianPresent,
		CreatedAt:       s.clock(),
	}
	if err := sw.Validate(); err != nil {
		return race.Swimmer{}, err
	}

	ok, err := s.TeamInCompetition(ctx, in.TeamID, in.CompetitionID)
	if err != nil {
		return race.Swimmer{}, err
	}
	if !ok {
		return race.Swimmer{}, race.Errorf(op, race.KindNotFound, "team not found in this competition")
	}

	if err := s.store.CreateSwimmer(ctx, sw); err != nil {
		return race.Swimmer{}, race.Wrap(op, race.KindInternal, err)
	}
	return sw, nil
}

// UpdateSwimmer re-checks the guardian rule on the merged record.
func (s *Service) UpdateSwimmer(ctx context.Context, id string, p SwimmerPatch) (race.Swimmer, error) {
	const op = "tracker.update_swimmer"

	sw, err := s.store.GetSwimmer(ctx, id)
	if err != nil {
		return race.Swimmer{}, storeErr(op, "swimmer", err)
	}
	if p.Name != nil {
		sw.Name = strings.TrimSpace(*p.Name)
	}
	if p.IsUnderAge != nil {
		sw.IsUnderAge = *p.IsUnderAge
	}
	if p.GuardianName != nil {
		sw.GuardianName = *p.GuardianName
	}
	if p.GuardianContact != nil {
		sw.GuardianContact = *p.GuardianContact
	}
	if p.GuardianPresent != nil {
		sw.GuardianPresent = *p.GuardianPresent
	}
	if err := sw.Validate(); err != nil {
		return race.Swimmer{}, err
	}
	if err := s.store.UpdateSwimmer(ctx, sw); err != nil {
		return race.Swimmer{}, storeErr(op, "swimmer", err)
	}
	return sw, nil
}

func (s *Service) GetSwimmer(ctx context.Context, id string) (race.Swimmer, error) {
	sw, err := s.store.GetSwimmer(ctx, id)
	if err != nil {
		return race.Swimmer{}, storeErr("tracker.get_swimmer", "swimmer", err)
	}
	return sw, nil
}

func (s *Service) ListSwimmers(ctx context.Context, competitionID, teamID string) ([]race.Swimmer, error) {
	out, err := s.store.ListSwimmers(ctx, competitionID, teamID)
	if err != nil {
		return nil, race.Wrap("tracker.list_swimmers", race.KindInternal, err)
	}
	return out, nil
}

func (s *Service) DeleteSwimmer(ctx context.Context, id string) error {
	const op = "tracker.delete_swimmer"

	if _, err := s.store.GetSwimmer(ctx, id); err != nil {
		return storeErr(op, "swimmer", err)
	}
	if _, err := s.CloseAllActiveFor(ctx, store.Scope{SwimmerID: id}); err != nil {
		return err
	}
	if err := s.store.DeleteSwimmer(ctx, id); err != nil {
		return storeErr(op, "swimmer", err)
	}
	return nil
}

// SwimmerInTeam is the swimmer membership check.
func (s *Service) SwimmerInTeam(ctx context.Context, swimmerID, teamID string) (bool, error) {
	sw, err := s.store.GetSwimmer(ctx, swimmerID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, race.Wrap("tracker.swimmer_in_team", race.KindInternal, err)
	}
	return sw.TeamID == teamID, nil
}

// --- referees ---

func (s *Service) CreateReferee(ctx context.Context, competitionID, name string) (race.Referee, error) {
	const op = "tracker.create_referee"

	if missing := firstMissing(field{"competitionId", competitionID}, field{"name", name}); missing != "" {
		return race.Referee{}, race.Errorf(op, race.KindInvalid, "missing required field %s", missing)
	}
	if _, err := s.store.GetCompetition(ctx, competitionID); err != nil {
		return race.Referee{}, storeErr(op, "competition", err)
	}
	r := race.Referee{ID: s.newID(), CompetitionID: competitionID, Name: strings.TrimSpace(name), CreatedAt: s.clock()}
	if err := s.store.CreateReferee(ctx, r); err != nil {
		return race.Referee{}, race.Wrap(op, race.KindInternal, err)
	}
	return r, nil
}

func (s *Service) ListReferees(ctx context.Context, competitionID string) ([]race.Referee, error) {
	out, err := s.store.ListReferees(ctx, competitionID)
	if err != nil {
		return nil, race.Wrap("tracker.list_referees", race.KindInternal, err)
	}
	return out, nil
}

// DeleteReferee detaches the referee from its laps before removing it.
func (s *Service) DeleteReferee(ctx context.Context, id string) error {
	const op = "tracker.delete_referee"

	if _, err := s.store.GetReferee(ctx, id); err != nil {
		return storeErr(op, "referee", err)
	}
	if _, err := s.DetachReferee(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteReferee(ctx, id); err != nil {
		return storeErr(op, "referee", err)
	}
	return nil
}

// RefereeExists is used for audit only; an unknown referee never blocks a lap.
func (s *Service) RefereeExists(ctx context.Context, id string) (bool, error) {
	_, err := s.store.GetReferee(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, race.Wrap("tracker.referee_exists", race.KindInternal, err)
	}
	return true, nil
}
