package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/swim24-backend/internal/race"
	"github.com/DoyleJ11/swim24-backend/internal/store"
	"github.com/DoyleJ11/swim24-backend/internal/tracker"
)

func StartSession(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in tracker.StartSessionInput
		if err := decode(w, r, &in); err != nil {
			writeError(w, log, err)
			return
		}
		sess, err := svc.StartSession(r.Context(), in)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusCreated, sess)
	}
}

// EndSession takes an optional endTime and lapCount. The session is closed
// whatever isActive says in the body.
func EndSession(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in tracker.EndSessionInput
		if r.ContentLength != 0 {
			if err := decode(w, r, &in); err != nil {
				writeError(w, log, err)
				return
			}
		}
		sess, err := svc.EndSession(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, sess)
	}
}

func GetSession(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.GetSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, sess)
	}
}

func ListSessions(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := store.SessionFilter{CompetitionID: q.Get("competitionId"), TeamID: q.Get("teamId")}
		if raw := q.Get("active"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, log, race.Errorf("httpapi.list_sessions", race.KindInvalid, "active must be true or false"))
				return
			}
			f.Active = &active
		}
		out, err := svc.ListSessions(r.Context(), f)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, out)
	}
}

// --- laps ---

func RecordLap(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in tracker.LapInput
		if err := decode(w, r, &in); err != nil {
			writeError(w, log, err)
			return
		}
		lap, err := svc.RecordLap(r.Context(), in)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusCreated, lap)
	}
}

func ListLaps(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		out, err := svc.ListLaps(r.Context(), store.LapFilter{
			CompetitionID: q.Get("competitionId"),
			TeamID:        q.Get("teamId"),
			SwimmerID:     q.Get("swimmerId"),
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, out)
	}
}
