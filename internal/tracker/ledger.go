package tracker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/relay"
	"github.com/DoyleJ11/swim24-backend/internal/store"
)

// LapInput is a referee's tap. LapNumber 0 means auto-assign.
type LapInput struct {
	CompetitionID string `json:"competitionId"`
	LaneNumber    int    `json:"laneNumber"`
	TeamID        string `json:"teamId"`
	SwimmerID     string `json:"swimmerId"`
	RefereeID     string `json:"refereeId"`
	LapNumber     int    `json:"lapNumber"`
}

// RecordLap validates a tap and appends it to the ledger. Rejections come
// back in pipeline order: Invalid, NotFound/NotActive, NoActiveSession,
// DoubleCountSuppressed.
func (s *Service) RecordLap(ctx context.Context, in LapInput) (race.LapCount, error) {
	const op = "tracker.record_lap"

	if missing := firstMissing(
		field{"competitionId", in.CompetitionID},
		field{"teamId", in.TeamID},
		field{"swimmerId", in.SwimmerID},
		field{"refereeId", in.RefereeID},
	); missing != "" {
		return race.LapCount{}, race.Errorf(op, race.KindInvalid, "missing required field %s", missing)
	}
	if in.LaneNumber < 1 {
		return race.LapCount{}, race.Errorf(op, race.KindInvalid, "laneNumber must be positive")
	}
	if in.LapNumber < 0 {
		return race.LapCount{}, race.Errorf(op, race.KindInvalid, "lapNumber must be positive")
	}

	if err := s.gateCompetition(ctx, op, in.CompetitionID); err != nil {
		return race.LapCount{}, err
	}
	if ok, err := s.TeamInCompetition(ctx, in.TeamID, in.CompetitionID); err != nil {
		return race.LapCount{}, err
	} else if !ok {
		return race.LapCount{}, race.Errorf(op, race.KindNoActiveSession, "no active swim session found for this swimmer/team/lane")
	}

	if ok, err := s.RefereeExists(ctx, in.RefereeID); err == nil && !ok {
		s.log.Debug("lap from unknown referee", zap.String("referee", in.RefereeID), zap.String("team", in.TeamID))
	}

	var lap race.LapCount
	err := s.withRelay(ctx, op, relay.Key{CompetitionID: in.CompetitionID, TeamID: in.TeamID}, func(r *relay.Relay) error {
		var err error
		lap, err = r.Record(ctx, relay.Tap{
			SwimmerID:  in.SwimmerID,
			LaneNumber: in.LaneNumber,
			RefereeID:  in.RefereeID,
			LapNumber:  in.LapNumber,
		})
		return err
	})
	return lap, err
}

// IsWithinSuppressionWindow reports whether a tap for the team at now would
// be rejected as a double count, and if so how many seconds to wait.
func (s *Service) IsWithinSuppressionWindow(ctx context.Context, competitionID, teamID string, timeoutSeconds int, now time.Time) (bool, int, error) {
	const op = "tracker.suppression_window"
	if timeoutSeconds <= 0 {
		return false, 0, nil
	}

	last, err := s.store.LastLap(ctx, competitionID, teamID)
	if errors.Is(err, store.ErrNotFound) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, race.Wrap(op, race.KindInternal, err)
	}
	block, retry := race.SuppressionWindow(last.Timestamp, timeoutSeconds, now)
	return block, retry, nil
}

func (s *Service) ListLaps(ctx context.Context, f store.LapFilter) ([]race.LapCount, error) {
	laps, err := s.store.ListLaps(ctx, f)
	if err != nil {
		return nil, race.Wrap("tracker.list_laps", race.KindInternal, err)
	}
	return laps, nil
}

// DetachReferee clears the referee reference on every lap it recorded. The
// laps themselves stay.
func (s *Service) DetachReferee(ctx context.Context, refereeID string) (int, error) {
	const op = "tracker.detach_referee"
	if refereeID == "" {
		return 0, race.Errorf(op, race.KindInvalid, "missing referee id")
	}
	n, err := s.store.DetachReferee(ctx, refereeID)
	if err != nil {
		return 0, race.Wrap(op, race.KindInternal, err)
	}
	if n > 0 {
		s.log.Info("referee detached from laps", zap.String("referee", refereeID), zap.Int("laps", n))
	}
	return n, nil
}
