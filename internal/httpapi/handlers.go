package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/swim24-backend/internal/tracker"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func CreateCompetition(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in tracker.CompetitionInput
		if err := decode(w, r, &in); err != nil {
			writeError(w, log, err)
			return
		}
		c, err := svc.CreateCompetition(r.Context(), in)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusCreated, c)
	}
}

func ListCompetitions(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.ListCompetitions(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, out)
	}
}

func GetCompetition(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.GetCompetition(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, c)
	}
}

func UpdateCompetition(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p tracker.CompetitionPatch
		if err := decode(w, r, &p); err != nil {
			writeError(w, log, err)
			return
		}
		c, err := svc.UpdateCompetition(r.Context(), chi.URLParam(r, "id"), p)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, c)
	}
}

func UpdateCompetitionStatus(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status string `json:"status"`
		}
		if err := decode(w, r, &body); err != nil {
			writeError(w, log, err)
			return
		}
		c, err := svc.UpdateCompetitionStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, c)
	}
}

func DeleteCompetition(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.DeleteCompetition(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, struct {
			Deleted any `json:"deleted"`
		}{Deleted: d})
	}
}

func CompetitionStats(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := svc.CompetitionStats(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, sum)
	}
}

func TeamStats(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.TeamStats(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, out)
	}
}

func SwimmerStats(svc *tracker.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.SwimmerStats(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeData(w, http.StatusOK, out)
	}
}
