package tracker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/relay"
	"github.com/DoyleJ11/swim24-backend/internal/store"
)

type StartSessionInput struct {
	CompetitionID string `json:"competitionId"`
	SwimmerID     string `json:"swimmerId"`
	TeamID        string `json:"teamId"`
	LaneNumber    int    `json:"laneNumber"`
}

type EndSessionInput struct {
	EndTime  *time.Time `json:"endTime"`
	LapCount *int       `json:"lapCount"`
}

// StartSession puts a swimmer in the water for a team.
func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (race.Session, error) {
	const op = "tracker.start_session"

	if missing := firstMissing(
		field{"competitionId", in.CompetitionID},
		field{"swimmerId", in.SwimmerID},
		field{"teamId", in.TeamID},
	); missing != "" {
		return race.Session{}, race.Errorf(op, race.KindInvalid, "missing required field %s", missing)
	}
	if in.LaneNumber < 1 {
		return race.Session{}, race.Errorf(op, race.KindInvalid, "laneNumber must be positive")
	}

	if err := s.gateCompetition(ctx, op, in.CompetitionID); err != nil {
		return race.Session{}, err
	}
	if ok, err := s.TeamInCompetition(ctx, in.TeamID, in.CompetitionID); err != nil {
		return race.Session{}, err
	} else if !ok {
		return race.Session{}, race.Errorf(op, race.KindNotFound, "team not found in this competition")
	}

	var sess race.Session
	err := s.withRelay(ctx, op, relay.Key{CompetitionID: in.CompetitionID, TeamID: in.TeamID}, func(r *relay.Relay) error {
		var err error
		sess, err = r.Start(ctx, in.SwimmerID, in.LaneNumber)
		return err
	})
	return sess, err
}

// EndSession closes a session. Ending an already closed session succeeds.
func (s *Service) EndSession(ctx context.Context, sessionID string, in EndSessionInput) (race.Session, error) {
	const op = "tracker.end_session"

	if sessionID == "" {
		return race.Session{}, race.Errorf(op, race.KindInvalid, "missing session id")
	}
	if in.LapCount != nil && *in.LapCount < 0 {
		return race.Session{}, race.Errorf(op, race.KindInvalid, "lapCount must not be negative")
	}

	existing, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return race.Session{}, storeErr(op, "swim session", err)
	}

	var sess race.Session
	err = s.withRelay(ctx, op, relay.Key{CompetitionID: existing.CompetitionID, TeamID: existing.TeamID}, func(r *relay.Relay) error {
		var err error
		sess, err = r.End(ctx, sessionID, in.EndTime, in.LapCount)
		return err
	})
	return sess, err
}

// IncrementActiveTeamLap bumps the counter of the team's open session. It is
// a no-op when the team has none.
func (s *Service) IncrementActiveTeamLap(ctx context.Context, competitionID, teamID string) error {
	const op = "tracker.increment_active_lap"

	if ok, err := s.TeamInCompetition(ctx, teamID, competitionID); err != nil || !ok {
		return err
	}
	return s.withRelay(ctx, op, relay.Key{CompetitionID: competitionID, TeamID: teamID}, func(r *relay.Relay) error {
		return r.Increment(ctx)
	})
}

// FindActiveSession returns the team's open session if it matches the
// swimmer and lane.
func (s *Service) FindActiveSession(ctx context.Context, competitionID, teamID, swimmerID string, lane int) (race.Session, bool, error) {
	const op = "tracker.find_active_session"

	sess, err := s.store.ActiveSession(ctx, competitionID, teamID)
	if errors.Is(err, store.ErrNotFound) {
		return race.Session{}, false, nil
	}
	if err != nil {
		return race.Session{}, false, race.Wrap(op, race.KindInternal, err)
	}
	if sess.SwimmerID != swimmerID || sess.LaneNumber != lane {
		return race.Session{}, false, nil
	}
	return sess, true, nil
}

// CloseAllActiveFor force-closes every open session in scope and reports how
// many were closed. Team and swimmer scopes go through the owning relay; a
// competition scope fans out to each of its teams.
func (s *Service) CloseAllActiveFor(ctx context.Context, scope store.Scope) (int, error) {
	const op = "tracker.close_all_active"

	switch {
	case scope.SwimmerID != "":
		sw, err := s.store.GetSwimmer(ctx, scope.SwimmerID)
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, race.Wrap(op, race.KindInternal, err)
		}
		return s.closeTeam(ctx, op, sw.CompetitionID, sw.TeamID, sw.ID)

	case scope.TeamID != "":
		t, err := s.store.GetTeam(ctx, scope.TeamID)
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, race.Wrap(op, race.KindInternal, err)
		}
		return s.closeTeam(ctx, op, t.CompetitionID, t.ID, "")

	case scope.CompetitionID != "":
		return s.closeCompetition(ctx, op, scope.CompetitionID)
	}
	return 0, race.Errorf(op, race.KindInvalid, "empty close scope")
}

func (s *Service) closeTeam(ctx context.Context, op, competitionID, teamID, swimmerID string) (int, error) {
	var n int
	err := s.withRelay(ctx, op, relay.Key{CompetitionID: competitionID, TeamID: teamID}, func(r *relay.Relay) error {
		var err error
		n, err = r.Close(ctx, swimmerID)
		return err
	})
	return n, err
}

func (s *Service) closeCompetition(ctx context.Context, op, competitionID string) (int, error) {
	teams, err := s.store.ListTeams(ctx, competitionID)
	if err != nil {
		return 0, race.Wrap(op, race.KindInternal, err)
	}

	var (
		mu    sync.Mutex
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range teams {
		g.Go(func() error {
			n, err := s.closeTeam(gctx, op, competitionID, t.ID, "")
			mu.Lock()
			total += n
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}

	// Sessions whose team row is already gone.
	n, err := s.store.CloseActive(ctx, store.Scope{CompetitionID: competitionID}, s.clock())
	if err != nil {
		return total, race.Wrap(op, race.KindInternal, err)
	}
	total += n

	if total > 0 {
		s.log.Info("competition sessions force-closed", zap.String("competition", competitionID), zap.Int("closed", total))
	}
	return total, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (race.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return race.Session{}, storeErr("tracker.get_session", "swim session", err)
	}
	return sess, nil
}

func (s *Service) ListSessions(ctx context.Context, f store.SessionFilter) ([]race.Session, error) {
	out, err := s.store.ListSessions(ctx, f)
	if err != nil {
		return nil, race.Wrap("tracker.list_sessions", race.KindInternal, err)
	}
	return out, nil
}

// gateCompetition rejects unknown or non-active competitions before a relay
// is started for them. The relay repeats the check under its own exclusion.
func (s *Service) gateCompetition(ctx context.Context, op, competitionID string) error {
	comp, err := s.store.GetCompetition(ctx, competitionID)
	if err != nil {
		return storeErr(op, "competition", err)
	}
	if !comp.Status.Counting() {
		return race.Errorf(op, race.KindNotActive, "competition is %s", comp.Status)
	}
	return nil
}

type field struct{ name, value string }

// firstMissing names the first blank field, in argument order.
func firstMissing(fields ...field) string {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return f.name
		}
	}
	return ""
}
