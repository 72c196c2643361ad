package relay

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/store"
)

func (r *Relay) newID() string {
	if r.deps.NewID != nil {
		return r.deps.NewID()
	}
	return uuid.NewString()
}

func (r *Relay) now() time.Time { return r.deps.Now().UTC() }

// countingCompetition loads the competition and requires it to be active.
func (r *Relay) countingCompetition(ctx context.Context, op string) (race.Competition, error) {
	comp, err := r.deps.Store.GetCompetition(ctx, r.key.CompetitionID)
	if errors.Is(err, store.ErrNotFound) {
		return race.Competition{}, race.Errorf(op, race.KindNotFound, "competition not found")
	}
	if err != nil {
		return race.Competition{}, race.Wrap(op, race.KindInternal, err)
	}
	if !comp.Status.Counting() {
		return comp, race.Errorf(op, race.KindNotActive, "competition is %s", comp.Status)
	}
	return comp, nil
}

// activeSession returns the team's open session, if any.
func (r *Relay) activeSession(ctx context.Context) (race.Session, bool, error) {
	sess, err := r.deps.Store.ActiveSession(ctx, r.key.CompetitionID, r.key.TeamID)
	if errors.Is(err, store.ErrNotFound) {
		return race.Session{}, false, nil
	}
	if err != nil {
		return race.Session{}, false, err
	}
	return sess, true, nil
}

func (r *Relay) startSession(ctx context.Context, swimmerID string, lane int) (race.Session, error) {
	const op = "relay.start_session"

	if _, err := r.countingCompetition(ctx, op); err != nil {
		return race.Session{}, err
	}

	_, open, err := r.activeSession(ctx)
	if err != nil {
		return race.Session{}, race.Wrap(op, race.KindInternal, err)
	}
	if open {
		return race.Session{}, race.Errorf(op, race.KindConflict, "team already has an active swimmer")
	}

	sw, err := r.deps.Store.GetSwimmer(ctx, swimmerID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return race.Session{}, race.Wrap(op, race.KindInternal, err)
	}
	if err != nil || sw.TeamID != r.key.TeamID {
		return race.Session{}, race.Errorf(op, race.KindNotFound, "swimmer not found or does not belong to this team")
	}

	sess := race.Session{
		ID:            r.newID(),
		CompetitionID: r.key.CompetitionID,
		TeamID:        r.key.TeamID,
		SwimmerID:     swimmerID,
		LaneNumber:    lane,
		StartTime:     r.now(),
		IsActive:      true,
	}
	if err := r.deps.Store.CreateSession(ctx, sess); err != nil {
		return race.Session{}, race.Wrap(op, race.KindInternal, err)
	}

	r.log.Info("session started", zap.String("swimmer", swimmerID), zap.Int("lane", lane))
	r.deps.Publish(Event{Type: EvtSessionStarted, CompetitionID: sess.CompetitionID, TeamID: sess.TeamID, Session: &sess})
	return sess, nil
}

// endSession is safe to repeat: ending a closed session keeps its original
// end time unless a new one is given.
func (r *Relay) endSession(ctx context.Context, id string, endTime *time.Time, lapCount *int) (race.Session, error) {
	const op = "relay.end_session"

	sess, err := r.deps.Store.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return race.Session{}, race.Errorf(op, race.KindNotFound, "swim session not found")
	}
	if err != nil {
		return race.Session{}, race.Wrap(op, race.KindInternal, err)
	}
	if sess.TeamID != r.key.TeamID || sess.CompetitionID != r.key.CompetitionID {
		return race.Session{}, race.Errorf(op, race.KindNotFound, "swim session not found for this team")
	}

	if lapCount != nil {
		if *lapCount < sess.LapCount {
			return race.Session{}, race.Errorf(op, race.KindInvalid, "lapCount %d is below the recorded %d", *lapCount, sess.LapCount)
		}
		sess.LapCount = *lapCount
	}

	switch {
	case endTime != nil:
		end := endTime.UTC()
		sess.EndTime = &end
	case sess.EndTime == nil:
		end := r.now()
		sess.EndTime = &end
	}
	if sess.EndTime.Before(sess.StartTime) {
		return race.Session{}, race.Errorf(op, race.KindInvalid, "endTime is before startTime")
	}

	wasActive := sess.IsActive
	sess.IsActive = false
	if err := r.deps.Store.UpdateSession(ctx, sess); err != nil {
		return race.Session{}, race.Wrap(op, race.KindInternal, err)
	}

	if wasActive {
		r.log.Info("session ended", zap.String("session", sess.ID), zap.String("swimmer", sess.SwimmerID), zap.Int("laps", sess.LapCount))
		r.deps.Publish(Event{Type: EvtSessionEnded, CompetitionID: sess.CompetitionID, TeamID: sess.TeamID, Session: &sess})
	}
	return sess, nil
}

func (r *Relay) closeActive(ctx context.Context, swimmerID string) (int, error) {
	const op = "relay.close_active"

	scope := store.Scope{TeamID: r.key.TeamID}
	if swimmerID != "" {
		scope = store.Scope{SwimmerID: swimmerID}
	}
	n, err := r.deps.Store.CloseActive(ctx, scope, r.now())
	if err != nil {
		return 0, race.Wrap(op, race.KindInternal, err)
	}
	if n > 0 {
		r.log.Info("sessions force-closed", zap.Int("closed", n), zap.String("swimmer", swimmerID))
		r.deps.Publish(Event{Type: EvtSessionEnded, CompetitionID: r.key.CompetitionID, TeamID: r.key.TeamID})
	}
	return n, nil
}
