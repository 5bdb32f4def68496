// Package api exposes built datasets over HTTP: JSON and CSV retrieval,
// snapshot persistence, and the manual cache refresh control.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/dataset/{indicator}", func(r chi.Router) {
			r.Get("/", h.GetDataset)
			r.Get("/csv", h.ExportCSV)
			r.Post("/snapshot", h.SaveSnapshot)
			r.Get("/snapshot", h.LatestSnapshot)
		})
		r.Post("/cache/refresh", h.RefreshCache)
	})

	return r
}
