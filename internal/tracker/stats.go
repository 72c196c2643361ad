package tracker

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/store"
)

// snapshot reads everything the aggregates need for one competition. The
// four reads run concurrently and are not isolated from each other; a
// leaderboard a lap behind is fine.
func (s *Service) snapshot(ctx context.Context, op string, comp race.Competition) (race.Snapshot, error) {
	snap := race.Snapshot{Competition: comp}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Teams, err = s.store.ListTeams(gctx, comp.ID)
		return err
	})
	g.Go(func() (err error) {
		snap.Swimmers, err = s.store.ListSwimmers(gctx, comp.ID, "")
		return err
	})
	g.Go(func() (err error) {
		snap.Sessions, err = s.store.ListSessions(gctx, store.SessionFilter{CompetitionID: comp.ID})
		return err
	})
	g.Go(func() (err error) {
		snap.Laps, err = s.store.ListLaps(gctx, store.LapFilter{CompetitionID: comp.ID})
		return err
	})
	if err := g.Wait(); err != nil {
		return race.Snapshot{}, race.Wrap(op, race.KindInternal, err)
	}
	return snap, nil
}

// lookupForStats returns ok=false for an unknown competition.
func (s *Service) lookupForStats(ctx context.Context, op, competitionID string) (race.Competition, bool, error) {
	comp, err := s.store.GetCompetition(ctx, competitionID)
	if errors.Is(err, store.ErrNotFound) {
		return race.Competition{}, false, nil
	}
	if err != nil {
		return race.Competition{}, false, race.Wrap(op, race.KindInternal, err)
	}
	return comp, true, nil
}

// TeamStats is the team leaderboard. An unknown competition has no teams.
func (s *Service) TeamStats(ctx context.Context, competitionID string) ([]race.TeamStat, error) {
	const op = "tracker.team_stats"

	comp, ok, err := s.lookupForStats(ctx, op, competitionID)
	if err != nil || !ok {
		return []race.TeamStat{}, err
	}
	snap, err := s.snapshot(ctx, op, comp)
	if err != nil {
		return nil, err
	}
	return snap.TeamStats(s.hours), nil
}

// SwimmerStats is the swimmer leaderboard. An unknown competition has no
// swimmers.
func (s *Service) SwimmerStats(ctx context.Context, competitionID string) ([]race.SwimmerStat, error) {
	const op = "tracker.swimmer_stats"

	comp, ok, err := s.lookupForStats(ctx, op, competitionID)
	if err != nil || !ok {
		return []race.SwimmerStat{}, err
	}
	snap, err := s.snapshot(ctx, op, comp)
	if err != nil {
		return nil, err
	}
	return snap.SwimmerStats(s.hours), nil
}

func (s *Service) CompetitionStats(ctx context.Context, competitionID string) (race.Summary, error) {
	const op = "tracker.competition_stats"

	comp, ok, err := s.lookupForStats(ctx, op, competitionID)
	if err != nil {
		return race.Summary{}, err
	}
	if !ok {
		return race.Summary{}, race.Errorf(op, race.KindNotFound, "competition not found")
	}
	snap, err := s.snapshot(ctx, op, comp)
	if err != nil {
		return race.Summary{}, err
	}
	return snap.Summarize(s.hours, s.clock()), nil
}
