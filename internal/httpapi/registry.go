package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/swim24-backend/internal/tracker"
)

// --- teams ---

func CreateTeam(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in tracker.TeamInput
		if err := decode(w, r, &in); err != nil {
			writeError(w, log, err)
			return
		}
		t, err := svc.CreateTeam(r.Context(), in)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusCreated, t)
	}
}

func ListTeams(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.ListTeams(r.Context(), r.URL.Query().Get("competitionId"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, out)
	}
}

func GetTeam(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTeam(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, t)
	}
}

func UpdateTeam(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p tracker.TeamPatch
		if err := decode(w, r, &p); err != nil {
			writeError(w, log, err)
			return
		}
		t, err := svc.UpdateTeam(r.Context(), chi.URLParam(r, "id"), p)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, t)
	}
}

func DeleteTeam(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteTeam(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- swimmers ---

func CreateSwimmer(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in tracker.SwimmerInput
		if err := decode(w, r, &in); err != nil {
			writeError(w, log, err)
			return
		}
		sw, err := svc.CreateSwimmer(r.Context(), in)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusCreated, sw)
	}
}

func ListSwimmers(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		out, err := svc.ListSwimmers(r.Context(), q.Get("competitionId"), q.Get("teamId"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, out)
	}
}

func GetSwimmer(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw, err := svc.GetSwimmer(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, sw)
	}
}

func UpdateSwimmer(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p tracker.SwimmerPatch
		if err := decode(w, r, &p); err != nil {
			writeError(w, log, err)
			return
		}
		sw, err := svc.UpdateSwimmer(r.Context(), chi.URLParam(r, "id"), p)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, sw)
	}
}

func DeleteSwimmer(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteSwimmer(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- referees ---

func CreateReferee(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			CompetitionID string `json:"competitionId"`
			Name          string `json:"name"`
		}
		if err := decode(w, r, &body); err != nil {
			writeError(w, log, err)
			return
		}
		ref, err := svc.CreateReferee(r.Context(), body.CompetitionID, body.Name)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusCreated, ref)
	}
}

func ListReferees(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.ListReferees(r.Context(), r.URL.Query().Get("competitionId"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, out)
	}
}

func DeleteReferee(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteReferee(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
