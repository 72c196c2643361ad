// Package memstore is an in-memory store.Store. It keeps every record in
// maps guarded by one RWMutex; laps live in an append-only slice.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	competitions map[string]race.Competition
	teams        map[string]race.Team
	swimmers     map[string]race.Swimmer
	referees     map[string]race.Referee
	sessions     map[string]race.Session
	laps         []race.LapCount
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		competitions: map[string]race.Competition{},
		teams:        map[string]race.Team{},
		swimmers:     map[string]race.Swimmer{},
		referees:     map[string]race.Referee{},
		sessions:     map[string]race.Session{},
	}
}

func (s *Store) Close() error { return nil }

// --- competitions ---

func (s *Store) CreateCompetition(_ context.Context, c race.Competition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.competitions[c.ID] = c
	return nil
}

func (s *Store) GetCompetition(_ context.Context, id string) (race.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.competitions[id]
	if !ok {
		return race.Competition{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCompetitions(_ context.Context) ([]race.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]race.Competition, 0, len(s.competitions))
	for _, c := range s.competitions {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateCompetition(_ context.Context, c race.Competition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.competitions[c.ID]; !ok {
		return store.ErrNotFound
	}
	s.competitions[c.ID] = c
	return nil
}

func (s *Store) DeleteCompetition(_ context.Context, id string) (store.Deleted, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var d store.Deleted
	if _, ok := s.competitions[id]; !ok {
		return d, store.ErrNotFound
	}
	for k, t := range s.teams {
		if t.CompetitionID == id {
			delete(s.teams, k)
			d.Teams++
		}
	}
	for k, sw := range s.swimmers {
		if sw.CompetitionID == id {
			delete(s.swimmers, k)
			d.Swimmers++
		}
	}
	for k, r := range s.referees {
		if r.CompetitionID == id {
			delete(s.referees, k)
			d.Referees++
		}
	}
	for k, sess := range s.sessions {
		if sess.CompetitionID == id {
			delete(s.sessions, k)
			d.SwimSessions++
		}
	}
	before := len(s.laps)
	s.dropLaps(func(l race.LapCount) bool { return l.CompetitionID == id })
	d.LapCounts = before - len(s.laps)

	delete(s.competitions, id)
	return d, nil
}

// --- teams ---

func (s *Store) CreateTeam(_ context.Context, t race.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[t.ID] = t
	return nil
}

func (s *Store) GetTeam(_ context.Context, id string) (race.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return race.Team{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTeams(_ context.Context, competitionID string) ([]race.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []race.Team{}
	for _, t := range s.teams {
		if competitionID == "" || t.CompetitionID == competitionID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssignedLane != out[j].AssignedLane {
			return out[i].AssignedLane < out[j].AssignedLane
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) UpdateTeam(_ context.Context, t race.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[t.ID]; !ok {
		return store.ErrNotFound
	}
	s.teams[t.ID] = t
	return nil
}

func (s *Store) DeleteTeam(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		return store.ErrNotFound
	}
	for k, sw := range s.swimmers {
		if sw.TeamID == id {
			delete(s.swimmers, k)
		}
	}
	for k, sess := range s.sessions {
		if sess.TeamID == id {
			delete(s.sessions, k)
		}
	}
	s.dropLaps(func(l race.LapCount) bool { return l.TeamID == id })
	delete(s.teams, id)
	return nil
}

// --- swimmers ---

func (s *Store) CreateSwimmer(_ context.Context, sw race.Swimmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swimmers[sw.ID] = sw
	return nil
}

func (s *Store) GetSwimmer(_ context.Context, id string) (race.Swimmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sw, ok := s.swimmers[id]
	if !ok {
		return race.Swimmer{}, store.ErrNotFound
	}
	return sw, nil
}

func (s *Store) ListSwimmers(_ context.Context, competitionID, teamID string) ([]race.Swimmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []race.Swimmer{}
	for _, sw := range s.swimmers {
		if competitionID != "" && sw.CompetitionID != competitionID {
			continue
		}
		if teamID != "" && sw.TeamID != teamID {
			continue
		}
		out = append(out, sw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateSwimmer(_ context.Context, sw race.Swimmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.swimmers[sw.ID]; !ok {
		return store.ErrNotFound
	}
	s.swimmers[sw.ID] = sw
	return nil
}

func (s *Store) DeleteSwimmer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.swimmers[id]; !ok {
		return store.ErrNotFound
	}
	for k, sess := range s.sessions {
		if sess.SwimmerID == id {
			delete(s.sessions, k)
		}
	}
	s.dropLaps(func(l race.LapCount) bool { return l.SwimmerID == id })
	delete(s.swimmers, id)
	return nil
}

// --- referees ---

func (s *Store) CreateReferee(_ context.Context, r race.Referee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.referees[r.ID] = r
	return nil
}

func (s *Store) GetReferee(_ context.Context, id string) (race.Referee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.referees[id]
	if !ok {
		return race.Referee{}, store.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListReferees(_ context.Context, competitionID string) ([]race.Referee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []race.Referee{}
	for _, r := range s.referees {
		if competitionID == "" || r.CompetitionID == competitionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteReferee(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.referees[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.referees, id)
	return nil
}

// --- sessions ---

func (s *Store) CreateSession(_ context.Context, sess race.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (race.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return race.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (s *Store) UpdateSession(_ context.Context, sess race.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return store.ErrNotFound
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) ListSessions(_ context.Context, f store.SessionFilter) ([]race.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []race.Session{}
	for _, sess := range s.sessions {
		if f.CompetitionID != "" && sess.CompetitionID != f.CompetitionID {
			continue
		}
		if f.TeamID != "" && sess.TeamID != f.TeamID {
			continue
		}
		if f.Active != nil && sess.IsActive != *f.Active {
			continue
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (s *Store) ActiveSession(_ context.Context, competitionID, teamID string) (race.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.activeLocked(competitionID, teamID); ok {
		return sess, nil
	}
	return race.Session{}, store.ErrNotFound
}

func (s *Store) IncrementActiveLap(_ context.Context, competitionID, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incrementLocked(competitionID, teamID)
	return nil
}

func (s *Store) CloseActive(_ context.Context, scope store.Scope, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, sess := range s.sessions {
		if !sess.IsActive || !inScope(sess, scope) {
			continue
		}
		end := at
		sess.IsActive = false
		sess.EndTime = &end
		s.sessions[k] = sess
		n++
	}
	return n, nil
}

func inScope(sess race.Session, scope store.Scope) bool {
	switch {
	case scope.SwimmerID != "":
		return sess.SwimmerID == scope.SwimmerID
	case scope.TeamID != "":
		return sess.TeamID == scope.TeamID
	case scope.CompetitionID != "":
		return sess.CompetitionID == scope.CompetitionID
	}
	return false
}

func (s *Store) activeLocked(competitionID, teamID string) (race.Session, bool) {
	for _, sess := range s.sessions {
		if sess.IsActive && sess.CompetitionID == competitionID && sess.TeamID == teamID {
			return sess, true
		}
	}
	return race.Session{}, false
}

func (s *Store) incrementLocked(competitionID, teamID string) {
	if sess, ok := s.activeLocked(competitionID, teamID); ok {
		sess.LapCount++
		s.sessions[sess.ID] = sess
	}
}

// --- laps ---

func (s *Store) AppendLap(_ context.Context, lap race.LapCount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.laps = append(s.laps, lap)
	s.incrementLocked(lap.CompetitionID, lap.TeamID)
	return nil
}

func (s *Store) LastLap(_ context.Context, competitionID, teamID string) (race.LapCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		last  race.LapCount
		found bool
	)
	for _, l := range s.laps {
		if l.CompetitionID != competitionID || l.TeamID != teamID {
			continue
		}
		if !found || !l.Timestamp.Before(last.Timestamp) {
			last, found = l, true
		}
	}
	if !found {
		return race.LapCount{}, store.ErrNotFound
	}
	return last, nil
}

func (s *Store) CountLaps(_ context.Context, competitionID, teamID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, l := range s.laps {
		if l.CompetitionID == competitionID && l.TeamID == teamID {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListLaps(_ context.Context, f store.LapFilter) ([]race.LapCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []race.LapCount{}
	for _, l := range s.laps {
		if f.CompetitionID != "" && l.CompetitionID != f.CompetitionID {
			continue
		}
		if f.TeamID != "" && l.TeamID != f.TeamID {
			continue
		}
		if f.SwimmerID != "" && l.SwimmerID != f.SwimmerID {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Store) DetachReferee(_ context.Context, refereeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.laps {
		if refereeID != "" && s.laps[i].RefereeID == refereeID {
			s.laps[i].RefereeID = ""
			n++
		}
	}
	return n, nil
}

// dropLaps must be called with mu held.
func (s *Store) dropLaps(match func(race.LapCount) bool) {
	kept := s.laps[:0]
	for _, l := range s.laps {
		if !match(l) {
			kept = append(kept, l)
		}
	}
	s.laps = kept
}
