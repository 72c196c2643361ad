package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/swim24-backend/internal/hub"
	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/store/memstore"
	"github.com/DoyleJ11/swim24-backend/internal/tracker"
	"github.com/DoyleJ11/swim24-backend/pkg/types"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newRouter(t *testing.T) (http.Handler, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 6, 13, 14, 0, 0, 0, time.UTC)}
	st := memstore.New()
	h := hub.NewHub(context.Background(), hub.Deps{Store: st, Now: clock.Now})
	svc := tracker.New(tracker.Options{Store: st, Hub: h, Now: clock.Now})
	t.Cleanup(svc.Shutdown)
	return SetupRoutes(svc, h, Options{}), clock
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// data decodes a {"data": ...} envelope into dst.
func data(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func errBody(t *testing.T, rec *httptest.ResponseRecorder) types.Error {
	t.Helper()
	var e types.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

type seeded struct {
	comp    race.Competition
	team    race.Team
	swimmer race.Swimmer
}

func seed(t *testing.T, h http.Handler, timeout int) seeded {
	t.Helper()
	var s seeded

	rec := do(t, h, http.MethodPost, "/competitions", map[string]any{"name": "Swim 24", "numberOfLanes": 4, "doubleCountTimeout": timeout})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data(t, rec, &s.comp)

	rec = do(t, h, http.MethodPut, "/competitions/"+s.comp.ID+"/status", map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/teams", map[string]any{"competitionId": s.comp.ID, "name": "Sharks", "color": "blue", "assignedLane": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data(t, rec, &s.team)

	rec = do(t, h, http.MethodPost, "/swimmers", map[string]any{"competitionId": s.comp.ID, "teamId": s.team.ID, "name": "Zoe"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data(t, rec, &s.swimmer)
	return s
}

func TestHealthz(t *testing.T) {
	h, _ := newRouter(t)
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLapFlow(t *testing.T) {
	h, clock := newRouter(t)
	s := seed(t, h, 5)

	rec := do(t, h, http.MethodPost, "/swim-sessions", map[string]any{
		"competitionId": s.comp.ID, "teamId": s.team.ID, "swimmerId": s.swimmer.ID, "laneNumber": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess race.Session
	data(t, rec, &sess)

	tap := map[string]any{"competitionId": s.comp.ID, "teamId": s.team.ID, "swimmerId": s.swimmer.ID, "laneNumber": 1, "refereeId": "r1"}

	rec = do(t, h, http.MethodPost, "/lap-counts", tap)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var lap race.LapCount
	data(t, rec, &lap)
	assert.Equal(t, 1, lap.LapNumber)

	clock.Advance(2 * time.Second)
	rec = do(t, h, http.MethodPost, "/lap-counts", tap)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	e := errBody(t, rec)
	assert.Equal(t, string(race.KindDoubleCount), e.Kind)
	assert.Equal(t, 3, e.RetryAfter)
	assert.Equal(t, strconv.Itoa(e.RetryAfter), rec.Header().Get("Retry-After"))

	clock.Advance(6 * time.Second)
	rec = do(t, h, http.MethodPost, "/lap-counts", tap)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/competitions/"+s.comp.ID+"/team-stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats []race.TeamStat
	data(t, rec, &stats)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].TotalLaps)

	rec = do(t, h, http.MethodGet, "/lap-counts?teamId="+s.team.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var laps []race.LapCount
	data(t, rec, &laps)
	assert.Len(t, laps, 2)

	rec = do(t, h, http.MethodPatch, "/swim-sessions/"+sess.ID, map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data(t, rec, &sess)
	assert.False(t, sess.IsActive)
	assert.Equal(t, 2, sess.LapCount)

	rec = do(t, h, http.MethodGet, "/swim-sessions?active=true&teamId="+s.team.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var open []race.Session
	data(t, rec, &open)
	assert.Empty(t, open)

	rec = do(t, h, http.MethodGet, "/competitions/"+s.comp.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum race.Summary
	data(t, rec, &sum)
	assert.Equal(t, 2, sum.TotalLaps)
	assert.Zero(t, sum.ActiveSessions)
}

func TestErrorMapping(t *testing.T) {
	h, _ := newRouter(t)
	s := seed(t, h, 5)

	rec := do(t, h, http.MethodPost, "/swim-sessions", map[string]any{
		"competitionId": s.comp.ID, "teamId": s.team.ID, "swimmerId": s.swimmer.ID, "laneNumber": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   race.ErrorKind
	}{
		{name: "unknown competition", method: http.MethodGet, path: "/competitions/nope", status: http.StatusNotFound, kind: race.KindNotFound},
		{name: "bad status", method: http.MethodPut, path: "/competitions/" + s.comp.ID + "/status", body: map[string]string{"status": "done"}, status: http.StatusBadRequest, kind: race.KindInvalid},
		{name: "second swimmer in water", method: http.MethodPost, path: "/swim-sessions", body: map[string]any{
			"competitionId": s.comp.ID, "teamId": s.team.ID, "swimmerId": s.swimmer.ID, "laneNumber": 1,
		}, status: http.StatusConflict, kind: race.KindConflict},
		{name: "tap on wrong lane", method: http.MethodPost, path: "/lap-counts", body: map[string]any{
			"competitionId": s.comp.ID, "teamId": s.team.ID, "swimmerId": s.swimmer.ID, "laneNumber": 3, "refereeId": "r1",
		}, status: http.StatusUnprocessableEntity, kind: race.KindNoActiveSession},
		{name: "tap without swimmer", method: http.MethodPost, path: "/lap-counts", body: map[string]any{
			"competitionId": s.comp.ID, "teamId": s.team.ID, "laneNumber": 1,
		}, status: http.StatusBadRequest, kind: race.KindInvalid},
		{name: "tap without referee", method: http.MethodPost, path: "/lap-counts", body: map[string]any{
			"competitionId": s.comp.ID, "teamId": s.team.ID, "swimmerId": s.swimmer.ID, "laneNumber": 1,
		}, status: http.StatusBadRequest, kind: race.KindInvalid},
		{name: "duplicate color on lane", method: http.MethodPost, path: "/teams", body: map[string]any{
			"competitionId": s.comp.ID, "name": "Other", "color": "Blue", "assignedLane": 1,
		}, status: http.StatusConflict, kind: race.KindConflict},
		{name: "under-age without guardian", method: http.MethodPost, path: "/swimmers", body: map[string]any{
			"competitionId": s.comp.ID, "teamId": s.team.ID, "name": "Kid", "isUnder12": true,
		}, status: http.StatusBadRequest, kind: race.KindInvalid},
		{name: "bad active filter", method: http.MethodGet, path: "/swim-sessions?active=maybe", status: http.StatusBadRequest, kind: race.KindInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, string(tc.kind), errBody(t, rec).Kind)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/lap-counts", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("paused competition", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/competitions/"+s.comp.ID+"/status", map[string]string{"status": "paused"})
		require.Equal(t, http.StatusOK, rec.Code)
		rec = do(t, h, http.MethodPost, "/lap-counts", map[string]any{
			"competitionId": s.comp.ID, "teamId": s.team.ID, "swimmerId": s.swimmer.ID, "laneNumber": 1, "refereeId": "r1",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, string(race.KindNotActive), errBody(t, rec).Kind)
	})
}

func TestUpdateCompetition(t *testing.T) {
	h, clock := newRouter(t)
	s := seed(t, h, 30)

	rec := do(t, h, http.MethodPost, "/swim-sessions", map[string]any{
		"competitionId": s.comp.ID, "teamId": s.team.ID, "swimmerId": s.swimmer.ID, "laneNumber": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tap := map[string]any{"competitionId": s.comp.ID, "teamId": s.team.ID, "swimmerId": s.swimmer.ID, "laneNumber": 1, "refereeId": "r1"}
	rec = do(t, h, http.MethodPost, "/lap-counts", tap)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	clock.Advance(10 * time.Second)
	rec = do(t, h, http.MethodPut, "/competitions/"+s.comp.ID, map[string]any{"doubleCountTimeout": 5, "location": "Lido"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var comp race.Competition
	data(t, rec, &comp)
	assert.Equal(t, 5, comp.DoubleCountTimeout)
	assert.Equal(t, "Lido", comp.Location)
	assert.Equal(t, s.comp.Name, comp.Name)

	rec = do(t, h, http.MethodPost, "/lap-counts", tap)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/competitions/"+s.comp.ID, map[string]any{"numberOfLanes": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPut, "/competitions/nope", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteEndpoints(t *testing.T) {
	h, _ := newRouter(t)
	s := seed(t, h, 0)

	rec := do(t, h, http.MethodPost, "/referees", map[string]string{"competitionId": s.comp.ID, "name": "Rita"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ref race.Referee
	data(t, rec, &ref)

	rec = do(t, h, http.MethodPost, "/swim-sessions", map[string]any{
		"competitionId": s.comp.ID, "teamId": s.team.ID, "swimmerId": s.swimmer.ID, "laneNumber": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/lap-counts", map[string]any{
		"competitionId": s.comp.ID, "teamId": s.team.ID, "swimmerId": s.swimmer.ID, "laneNumber": 1, "refereeId": ref.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodDelete, "/referees/"+ref.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/lap-counts?competitionId="+s.comp.ID, nil)
	var laps []race.LapCount
	data(t, rec, &laps)
	require.Len(t, laps, 1)
	assert.Empty(t, laps[0].RefereeID)

	rec = do(t, h, http.MethodDelete, "/competitions/"+s.comp.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Deleted struct {
			Teams     int `json:"teams"`
			LapCounts int `json:"lapCounts"`
		} `json:"deleted"`
	}
	data(t, rec, &out)
	assert.Equal(t, 1, out.Deleted.Teams)
	assert.Equal(t, 1, out.Deleted.LapCounts)

	rec = do(t, h, http.MethodGet, "/competitions/"+s.comp.ID+"/team-stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats []race.TeamStat
	data(t, rec, &stats)
	assert.Empty(t, stats)
}
