package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/swim24-backend/internal/hub"
	"github.com/DoyleJ11/swim24-backend/internal/tracker"
	"github.com/DoyleJ11/swim24-backend/internal/ws"
)

type Options struct {
	Log            *zap.Logger
	RequestTimeout time.Duration
	CORSOrigins    []string
}

func SetupRoutes(svc *tracker.Service, h *hub.Hub, o Options) http.Handler {
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	if len(o.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: o.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			ExposedHeaders: []string{"Retry-After"},
			MaxAge:         300,
		}))
	}

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, svc, log))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(o.RequestTimeout))

		r.Route("/competitions", func(r chi.Router) {
			r.Get("/", ListCompetitions(svc, log))
			r.Post("/", CreateCompetition(svc, log))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", GetCompetition(svc, log))
				r.Put("/", UpdateCompetition(svc, log))
				r.Patch("/", UpdateCompetition(svc, log))
				r.Delete("/", DeleteCompetition(svc, log))
				r.Put("/status", UpdateCompetitionStatus(svc, log))
				r.Patch("/status", UpdateCompetitionStatus(svc, log))
				r.Get("/stats", CompetitionStats(svc, log))
				r.Get("/team-stats", TeamStats(svc, log))
				r.Get("/swimmer-stats", SwimmerStats(svc, log))
			})
		})

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", ListTeams(svc, log))
			r.Post("/", CreateTeam(svc, log))
			r.Get("/{id}", GetTeam(svc, log))
			r.Patch("/{id}", UpdateTeam(svc, log))
			r.Put("/{id}", UpdateTeam(svc, log))
			r.Delete("/{id}", DeleteTeam(svc, log))
		})

		r.Route("/swimmers", func(r chi.Router) {
			r.Get("/", ListSwimmers(svc, log))
			r.Post("/", CreateSwimmer(svc, log))
			r.Get("/{id}", GetSwimmer(svc, log))
			r.Patch("/{id}", UpdateSwimmer(svc, log))
			r.Put("/{id}", UpdateSwimmer(svc, log))
			r.Delete("/{id}", DeleteSwimmer(svc, log))
		})

		r.Route("/referees", func(r chi.Router) {
			r.Get("/", ListReferees(svc, log))
			r.Post("/", CreateReferee(svc, log))
			r.Delete("/{id}", DeleteReferee(svc, log))
		})

		r.Route("/swim-sessions", func(r chi.Router) {
			r.Get("/", ListSessions(svc, log))
			r.Post("/", StartSession(svc, log))
			r.Get("/{id}", GetSession(svc, log))
			r.Patch("/{id}", EndSession(svc, log))
			r.Put("/{id}", EndSession(svc, log))
		})

		r.Route("/lap-counts", func(r chi.Router) {
			r.Get("/", ListLaps(svc, log))
			r.Post("/", RecordLap(svc, log))
		})
	})

	return r
}

// requestLogger logs each request at debug, and server errors at warn.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if ww.Status() >= http.StatusInternalServerError {
				log.Warn("request", fields...)
				return
			}
			log.Debug("request", fields...)
		})
	}
}
