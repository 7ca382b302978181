package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Elections  *ElectionHandler
	Candidates *CandidateHandler
	Users      *UserHandler
}

// NewHandler wires every route. gatherer may be nil, in which case
// /metrics is not mounted.
func NewHandler(h Handlers, auth *Authenticator, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Route("/elections", func(r chi.Router) {
			r.Get("/active", h.Elections.GetActiveElection)
			r.Get("/stats", h.Elections.GetStats)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth)
				r.Get("/", h.Elections.ListElections)
				r.Get("/closed", h.Elections.ListClosedElections)
				r.Get("/{id}", h.Elections.GetElection)
				r.Post("/{id}/votes", h.Elections.CastVote)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Post("/", h.Elections.CreateElection)
				r.Post("/{id}/start", h.Elections.StartElection)
				r.Post("/{id}/close", h.Elections.CloseElection)
			})
		})

		r.Route("/candidates", func(r chi.Router) {
			r.Get("/", h.Candidates.ListCandidates)
			r.Get("/{id}", h.Candidates.GetCandidate)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Post("/", h.Candidates.CreateCandidate)
				r.Patch("/{id}", h.Candidates.UpdateCandidate)
				r.Delete("/{id}", h.Candidates.DeleteCandidate)
			})
		})

		r.With(auth.RequireAuth).Get("/me", h.Users.GetMe)
		r.With(auth.RequireAdmin).Get("/voters", h.Users.ListVoters)
	})

	return r
}
