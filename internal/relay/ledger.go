package relay

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/store"
)

// recordLap runs the lap pipeline after input validation. The order is
// fixed: competition gate, active session gate, double count window, lap
// number, then the combined append and counter bump. A tap without a
// matching session is always NoActiveSession, never a double count.
func (r *Relay) recordLap(ctx context.Context, tap Tap) (race.LapCount, error) {
	const op = "relay.record_lap"

	comp, err := r.countingCompetition(ctx, op)
	if err != nil {
		return race.LapCount{}, err
	}

	if _, err := r.findActive(ctx, tap.SwimmerID, tap.LaneNumber); err != nil {
		return race.LapCount{}, err
	}

	now := r.now()
	if err := r.checkDoubleCount(ctx, comp.DoubleCountTimeout, tap, now); err != nil {
		return race.LapCount{}, err
	}

	prior, err := r.deps.Store.CountLaps(ctx, r.key.CompetitionID, r.key.TeamID)
	if err != nil {
		return race.LapCount{}, race.Wrap(op, race.KindInternal, err)
	}

	lap := race.LapCount{
		ID:            r.newID(),
		CompetitionID: r.key.CompetitionID,
		LaneNumber:    tap.LaneNumber,
		TeamID:        r.key.TeamID,
		SwimmerID:     tap.SwimmerID,
		RefereeID:     tap.RefereeID,
		LapNumber:     race.NextLapNumber(prior, tap.LapNumber),
		Timestamp:     now,
	}
	if err := r.deps.Store.AppendLap(ctx, lap); err != nil {
		return race.LapCount{}, race.Wrap(op, race.KindInternal, err)
	}

	r.log.Info("lap recorded",
		zap.Int("lap", lap.LapNumber),
		zap.String("swimmer", lap.SwimmerID),
		zap.Int("lane", lap.LaneNumber),
		zap.String("referee", lap.RefereeID),
	)
	r.deps.Publish(Event{Type: EvtLapRecorded, CompetitionID: lap.CompetitionID, TeamID: lap.TeamID, Lap: &lap})
	return lap, nil
}

// findActive confirms the tap matches the team's open session on the
// given swimmer and lane.
func (r *Relay) findActive(ctx context.Context, swimmerID string, lane int) (race.Session, error) {
	const op = "relay.find_active"

	sess, open, err := r.activeSession(ctx)
	if err != nil {
		return race.Session{}, race.Wrap(op, race.KindInternal, err)
	}
	if !open || sess.SwimmerID != swimmerID || sess.LaneNumber != lane {
		return race.Session{}, race.Errorf(op, race.KindNoActiveSession, "no active swim session found for this swimmer/team/lane")
	}
	return sess, nil
}

func (r *Relay) checkDoubleCount(ctx context.Context, timeout int, tap Tap, now time.Time) error {
	const op = "relay.double_count"
	if timeout <= 0 {
		return nil
	}

	last, err := r.deps.Store.LastLap(ctx, r.key.CompetitionID, r.key.TeamID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return race.Wrap(op, race.KindInternal, err)
	}

	if block, retry := race.SuppressionWindow(last.Timestamp, timeout, now); block {
		r.log.Warn("double count blocked",
			zap.String("swimmer", tap.SwimmerID),
			zap.String("referee", tap.RefereeID),
			zap.Duration("elapsed", now.Sub(last.Timestamp)),
			zap.Int("timeout_s", timeout),
		)
		return race.Suppressed(op, retry)
	}
	return nil
}
