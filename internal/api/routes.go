package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrwolf/echo-server/internal/config"
	"github.com/mrwolf/echo-server/internal/db"
	"github.com/mrwolf/echo-server/internal/pipeline"
)

func NewRouter(cfg *config.Config, database *db.DB, p *pipeline.Pipeline) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)

	handlers := NewHandlers(cfg, database, p)

	// Public endpoints
	r.Get("/health", handlers.Health)
	r.Handle("/metrics", promhttp.Handler())

	// API v1 routes (authenticated)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg))
		r.Use(JSONContentType)

		r.Post("/entries", handlers.CreateEntry)
		r.Get("/entries", handlers.ListEntries)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/daily", handlers.Daily)
			r.Get("/weekly", handlers.Weekly)
			r.Post("/recompute", handlers.Recompute)
		})

		r.Get("/insights/summary", handlers.Insights)

		r.Route("/triggers", func(r chi.Router) {
			r.Get("/", handlers.ListTriggers)
			r.Post("/", handlers.UpsertTrigger)
			r.Get("/stats", handlers.TriggerStats)
			r.Get("/suggest", handlers.SuggestTriggers)
		})

		r.Get("/summary", handlers.Summary)
		r.Get("/summary/latest", handlers.LatestSummary)
		r.Get("/jobs/{job}/last", handlers.LastRun)
		r.Get("/reports/weekly", handlers.WeeklyReport)
		r.Get("/schema/{name}", handlers.Schema)
	})

	return r
}
